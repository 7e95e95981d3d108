package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	cartapp "campusmarket/internal/app/handlers/cart"
	"campusmarket/internal/app/queries"
)

type CartHTTP interface {
	Get(c *gin.Context)
	Add(c *gin.Context)
	Remove(c *gin.Context)
	Clear(c *gin.Context)
}

type CartHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h CartHandler) Get(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Queries == nil {
		unavailable(c, "queries bus")
		return
	}
	cart, err := queries.Ask[cartapp.GetCartQuery, *dto.Cart](c.Request.Context(), h.Queries, cartapp.GetCartQuery{UserID: string(principal.UserID)})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h CartHandler) Add(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	var req struct {
		ListingID string `json:"listing_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	cart, err := commands.Dispatch[cartapp.AddToCartCommand, *dto.Cart](c.Request.Context(), h.Commands, cartapp.AddToCartCommand{
		UserID:      string(principal.UserID),
		Institution: principal.Institution.Domain,
		ListingID:   req.ListingID,
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, cart)
}

func (h CartHandler) Remove(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	cart, err := commands.Dispatch[cartapp.RemoveFromCartCommand, *dto.Cart](c.Request.Context(), h.Commands, cartapp.RemoveFromCartCommand{
		UserID:    string(principal.UserID),
		ListingID: c.Param("listing_id"),
	})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

func (h CartHandler) Clear(c *gin.Context) {
	principal, ok := requirePrincipal(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		unavailable(c, "commands bus")
		return
	}
	cart, err := commands.Dispatch[cartapp.ClearCartCommand, *dto.Cart](c.Request.Context(), h.Commands, cartapp.ClearCartCommand{UserID: string(principal.UserID)})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

var _ CartHTTP = (*CartHandler)(nil)
