package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	listingapp "campusmarket/internal/app/handlers/listings"
	profileapp "campusmarket/internal/app/handlers/profile"
	"campusmarket/internal/app/queries"
)

type MeHTTP interface {
	Profile(c *gin.Context)
	UpdateProfile(c *gin.Context)
	UsernameAvailable(c *gin.Context)
	Listings(c *gin.Context)
}

// AdminLookup marks admins in the profile response.
type AdminLookup interface {
	IsAdmin(email string) bool
}

type MeHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Admins   AdminLookup
	Logger   *slog.Logger
}

type updateProfileRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
}

func (h MeHandler) Profile(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries bus")
		return
	}
	profile, err := queries.Ask[profileapp.GetProfileQuery, dto.UserProfile](c.Request.Context(), h.Queries, profileapp.GetProfileQuery{UserID: string(principal.UserID)})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	profile.IsAdmin = h.Admins != nil && h.Admins.IsAdmin(profile.Email)
	c.JSON(http.StatusOK, profile)
}

func (h MeHandler) UpdateProfile(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	profile, err := commands.Dispatch[profileapp.UpdateProfileCommand, *dto.UserProfile](c.Request.Context(), h.Commands, profileapp.UpdateProfileCommand{
		UserID:   string(principal.UserID),
		Name:     req.Name,
		Username: req.Username,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	profile.IsAdmin = h.Admins != nil && h.Admins.IsAdmin(profile.Email)
	c.JSON(http.StatusOK, profile)
}

func (h MeHandler) UsernameAvailable(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries bus")
		return
	}
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		badRequest(c, "username is required")
		return
	}
	result, err := queries.Ask[profileapp.UsernameAvailabilityQuery, dto.UsernameAvailability](c.Request.Context(), h.Queries, profileapp.UsernameAvailabilityQuery{
		Username: username,
		UserID:   string(principal.UserID),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h MeHandler) Listings(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries bus")
		return
	}
	query := listingapp.MyListingsQuery{
		SellerID: string(principal.UserID),
		State:    strings.ToUpper(strings.TrimSpace(c.Query("state"))),
		Limit:    parseIntWithDefault(c.Query("limit"), 20),
		Offset:   parseInt(c.Query("offset")),
	}
	result, err := queries.Ask[listingapp.MyListingsQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ MeHTTP = (*MeHandler)(nil)
