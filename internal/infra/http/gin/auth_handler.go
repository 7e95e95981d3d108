package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"campusmarket/internal/app/dto"
	authsvc "campusmarket/internal/app/services/auth"
)

type AuthHTTP interface {
	Signup(c *gin.Context)
	Login(c *gin.Context)
	Logout(c *gin.Context)
}

type AuthHandler struct {
	Service *authsvc.Service
	Cookie  CookieSettings
	Logger  *slog.Logger
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup answers 201 with a session, or 202 with partial=true when the
// account exists but its profile could not be stored.
func (h AuthHandler) Signup(c *gin.Context) {
	if h.Service == nil {
		unavailable(c, "auth service")
		return
	}
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := h.Service.Signup(c.Request.Context(), authsvc.SignupParams{
		Email:    req.Email,
		Name:     req.Name,
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		if h.partialProvisioning(c, err) {
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	h.Cookie.set(c, result.Token)
	c.JSON(http.StatusCreated, dto.NewAuthResponse(result.User, result.Token))
}

// Login answers 200 with a session. A login that still cannot store the
// missing profile gets the same 202 partial answer as Signup.
func (h AuthHandler) Login(c *gin.Context) {
	if h.Service == nil {
		unavailable(c, "auth service")
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		if h.partialProvisioning(c, err) {
			return
		}
		respondError(c, h.Logger, err)
		return
	}
	h.Cookie.set(c, result.Token)
	c.JSON(http.StatusOK, dto.NewAuthResponse(result.User, result.Token))
}

func (h AuthHandler) partialProvisioning(c *gin.Context, err error) bool {
	var perr *authsvc.ProvisioningError
	if !errors.As(err, &perr) {
		return false
	}
	if h.Logger != nil {
		h.Logger.Error("profile provisioning failed", "user_id", perr.UserID, "error", perr.Err)
	}
	c.JSON(http.StatusAccepted, gin.H{
		"partial": true,
		"code":    "profile_provisioning_failed",
		"message": "Your account exists but your profile could not be set up. Sign in again to finish profile setup.",
		"user_id": perr.UserID,
	})
	return true
}

// Logout lives under the public auth prefix, so it reads the token itself.
func (h AuthHandler) Logout(c *gin.Context) {
	if h.Service == nil {
		unavailable(c, "auth service")
		return
	}
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		if cookie, err := c.Cookie(h.Cookie.name()); err == nil {
			token = cookie
		}
	}
	h.Cookie.clear(c)
	if strings.TrimSpace(token) == "" {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.Service.Logout(c.Request.Context(), token); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("logout failed", "error", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed", "code": "internal"})
		return
	}
	c.Status(http.StatusNoContent)
}

var _ AuthHTTP = (*AuthHandler)(nil)
