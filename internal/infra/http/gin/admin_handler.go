package ginserver

import (
	"context"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	adminapp "campusmarket/internal/app/handlers/admin"
	listingapp "campusmarket/internal/app/handlers/listings"
	reportapp "campusmarket/internal/app/handlers/reports"
	"campusmarket/internal/app/queries"
	authsvc "campusmarket/internal/app/services/auth"
)

type AdminHTTP interface {
	ListUsers(c *gin.Context)
	UserConversations(c *gin.Context)
	ListReports(c *gin.Context)
	ResolveReport(c *gin.Context)
	RemoveListing(c *gin.Context)
}

// AdminVerifier checks the principal carried by ctx against the admin list.
type AdminVerifier interface {
	VerifyAdmin(ctx context.Context) (authsvc.Principal, error)
}

type AdminHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Gate     AdminVerifier
	Logger   *slog.Logger
}

func (h AdminHandler) ListUsers(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries bus")
		return
	}
	resp, err := queries.Ask[adminapp.ListUsersQuery, dto.UserList](c.Request.Context(), h.Queries, adminapp.ListUsersQuery{
		Query:  c.Query("query"),
		Limit:  parseIntWithDefault(c.Query("limit"), 50),
		Offset: parseIntWithDefault(c.Query("offset"), 0),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h AdminHandler) UserConversations(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries bus")
		return
	}
	resp, err := queries.Ask[adminapp.UserConversationsQuery, dto.UserConversations](c.Request.Context(), h.Queries, adminapp.UserConversationsQuery{
		UserID: c.Param("id"),
		Limit:  parseIntWithDefault(c.Query("limit"), 50),
		Offset: parseIntWithDefault(c.Query("offset"), 0),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h AdminHandler) ListReports(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries bus")
		return
	}
	resp, err := queries.Ask[reportapp.ListReportsQuery, dto.ReportList](c.Request.Context(), h.Queries, reportapp.ListReportsQuery{
		Status: c.Query("status"),
		Limit:  parseIntWithDefault(c.Query("limit"), 50),
		Offset: parseIntWithDefault(c.Query("offset"), 0),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h AdminHandler) ResolveReport(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	var req struct {
		Action        string `json:"action"`
		Note          string `json:"note"`
		RemoveListing bool   `json:"remove_listing"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	report, err := commands.Dispatch[reportapp.ResolveReportCommand, *dto.Report](c.Request.Context(), h.Commands, reportapp.ResolveReportCommand{
		ReportID:      c.Param("id"),
		AdminID:       string(principal.UserID),
		Action:        req.Action,
		Note:          req.Note,
		RemoveListing: req.RemoveListing,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// RemoveListing is the moderation path. The same command serves sellers, so
// the admin check happens here.
func (h AdminHandler) RemoveListing(c *gin.Context) {
	if _, ok := requirePrincipal(c); !ok {
		return
	}
	if h.Commands == nil || h.Gate == nil {
		unavailable(c, "admin gate")
		return
	}
	principal, err := h.Gate.VerifyAdmin(c.Request.Context())
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	listing, err := commands.Dispatch[listingapp.RemoveListingCommand, *dto.Listing](c.Request.Context(), h.Commands, listingapp.RemoveListingCommand{
		CallerID:    string(principal.UserID),
		CallerEmail: principal.Email,
		ListingID:   c.Param("id"),
		Reason:      c.Query("reason"),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

var _ AdminHTTP = (*AdminHandler)(nil)
