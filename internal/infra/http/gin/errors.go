package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	listingapp "campusmarket/internal/app/handlers/listings"
	reportapp "campusmarket/internal/app/handlers/reports"
	"campusmarket/internal/app/middleware"
	adminsvc "campusmarket/internal/app/services/admin"
	authsvc "campusmarket/internal/app/services/auth"
	messagingsvc "campusmarket/internal/app/services/messaging"
	domainauth "campusmarket/internal/domain/auth"
	domaincart "campusmarket/internal/domain/cart"
	domainlistings "campusmarket/internal/domain/listings"
	domainmessaging "campusmarket/internal/domain/messaging"
	domainreports "campusmarket/internal/domain/reports"
	domainuser "campusmarket/internal/domain/user"
)

type errorClass struct {
	status int
	code   string
	errs   []error
}

// errorClasses is checked in order; the first match wins.
var errorClasses = []errorClass{
	{http.StatusUnauthorized, "not_authenticated", []error{
		authsvc.ErrNotAuthenticated,
		authsvc.ErrInvalidCredentials,
		domainauth.ErrSessionNotFound,
	}},
	{http.StatusForbidden, "forbidden", []error{
		adminsvc.ErrNotAdmin,
		domainmessaging.ErrNotParticipant,
		domainmessaging.ErrNotSender,
		domainmessaging.ErrNotReceiver,
		messagingsvc.ErrSellerNotInvolved,
		listingapp.ErrListingNotOwned,
	}},
	{http.StatusNotFound, "not_found", []error{
		domainuser.ErrNotFound,
		domainlistings.ErrNotFound,
		domainmessaging.ErrConversationNotFound,
		domainmessaging.ErrMessageNotFound,
		domainreports.ErrNotFound,
		listingapp.ErrOtherInstitution,
	}},
	{http.StatusConflict, "conflict", []error{
		domainuser.ErrEmailAlreadyUsed,
		domainuser.ErrUsernameTaken,
		domainauth.ErrAccountExists,
		domaincart.ErrAlreadyInCart,
		domaincart.ErrListingUnavailable,
		domainreports.ErrDuplicatePending,
		domainreports.ErrAlreadyClosed,
		domainlistings.ErrInvalidState,
		domainmessaging.ErrMessageDeleted,
		messagingsvc.ErrListingUnavailable,
	}},
	{http.StatusBadRequest, "invalid_request", []error{
		middleware.ErrValidation,
		authsvc.ErrPasswordTooShort,
		authsvc.ErrPasswordTooLong,
		domainuser.ErrInvalidEmail,
		domainuser.ErrNonAcademicEmail,
		domainuser.ErrEmailRequired,
		domainuser.ErrNameRequired,
		domainuser.ErrNameTooLong,
		domainuser.ErrInvalidUsername,
		domainlistings.ErrTitleRequired,
		domainlistings.ErrTitleTooLong,
		domainlistings.ErrDescriptionTooLong,
		domainlistings.ErrPriceNegative,
		domainlistings.ErrInvalidCondition,
		domainlistings.ErrPhotoURL,
		domainlistings.ErrTooManyPhotos,
		domainmessaging.ErrSelfConversation,
		domainmessaging.ErrParticipantRequired,
		domainmessaging.ErrListingRequired,
		domainmessaging.ErrBodyRequired,
		domainmessaging.ErrBodyTooLong,
		domainreports.ErrReasonRequired,
		domainreports.ErrReasonTooLong,
		domainreports.ErrInvalidStatus,
		domaincart.ErrOwnListing,
		reportapp.ErrOwnListing,
	}},
	{http.StatusServiceUnavailable, "unavailable", []error{
		listingapp.ErrPhotoStorageUnavailable,
	}},
}

// classifyError maps a sentinel error to an HTTP status and a stable code.
func classifyError(err error) (int, string) {
	for _, class := range errorClasses {
		for _, target := range class.errs {
			if errors.Is(err, target) {
				return class.status, class.code
			}
		}
	}
	return http.StatusInternalServerError, "internal"
}

// respondError writes the error body. Internal errors are logged and masked.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, code := classifyError(err)
	if status >= http.StatusInternalServerError {
		if logger != nil {
			fields := []any{"path", c.FullPath(), "error", err}
			if p, ok := currentPrincipal(c); ok {
				fields = append(fields, "user_id", p.UserID)
			}
			logger.Error("request failed", fields...)
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": http.StatusText(status), "code": code})
		return
	}
	body := gin.H{"error": err.Error(), "code": code}
	var verr *middleware.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message, "code": "invalid_request"})
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " unavailable", "code": "unavailable"})
}
