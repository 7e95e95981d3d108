package cart

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	"campusmarket/internal/app/handlers/support"
	"campusmarket/internal/app/queries"
	"campusmarket/internal/app/uow"
	domaincart "campusmarket/internal/domain/cart"
	domainlistings "campusmarket/internal/domain/listings"
	domainuser "campusmarket/internal/domain/user"
)

const (
	addToCartKey      = "cart.add"
	removeFromCartKey = "cart.remove"
	clearCartKey      = "cart.clear"
	getCartKey        = "cart.get"
)

type AddToCartCommand struct {
	UserID      string `validate:"required"`
	Institution string
	ListingID   string `validate:"required"`
}

func (c AddToCartCommand) Key() string { return addToCartKey }

type AddToCartHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

// Handle saves an active listing of another seller on the caller's campus.
func (h *AddToCartHandler) Handle(ctx context.Context, cmd AddToCartCommand) (*dto.Cart, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if listing.Seller == domainlistings.SellerID(cmd.UserID) {
		return nil, domaincart.ErrOwnListing
	}
	if !listing.Active() || (cmd.Institution != "" && listing.Institution != cmd.Institution) {
		return nil, domaincart.ErrListingUnavailable
	}
	item, err := domaincart.NewItem(domainuser.ID(cmd.UserID), listing.ID, support.Now(h.Now))
	if err != nil {
		return nil, err
	}
	if err := unit.Carts().Add(ctx, item); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("cart item added", "user_id", cmd.UserID, "listing_id", listing.ID)
	}
	return loadCart(ctx, unit, domainuser.ID(cmd.UserID))
}

type RemoveFromCartCommand struct {
	UserID    string `validate:"required"`
	ListingID string `validate:"required"`
}

func (c RemoveFromCartCommand) Key() string { return removeFromCartKey }

type RemoveFromCartHandler struct{}

func (h *RemoveFromCartHandler) Handle(ctx context.Context, cmd RemoveFromCartCommand) (*dto.Cart, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	userID := domainuser.ID(cmd.UserID)
	if err := unit.Carts().Remove(ctx, userID, domainlistings.ListingID(cmd.ListingID)); err != nil {
		return nil, err
	}
	return loadCart(ctx, unit, userID)
}

type ClearCartCommand struct {
	UserID string `validate:"required"`
}

func (c ClearCartCommand) Key() string { return clearCartKey }

type ClearCartHandler struct{}

func (h *ClearCartHandler) Handle(ctx context.Context, cmd ClearCartCommand) (*dto.Cart, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	if err := unit.Carts().Clear(ctx, domainuser.ID(cmd.UserID)); err != nil {
		return nil, err
	}
	return &dto.Cart{Items: []dto.CartItem{}}, nil
}

type GetCartQuery struct {
	UserID string `validate:"required"`
}

func (q GetCartQuery) Key() string { return getCartKey }

type GetCartHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetCartHandler) Handle(ctx context.Context, q GetCartQuery) (*dto.Cart, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	defer release()
	return loadCart(ctx, unit, domainuser.ID(q.UserID))
}

func loadCart(ctx context.Context, unit uow.UnitOfWork, userID domainuser.ID) (*dto.Cart, error) {
	items, err := unit.Carts().List(ctx, userID)
	if err != nil {
		return nil, err
	}
	byID := make(map[domainlistings.ListingID]*domainlistings.Listing, len(items))
	for _, item := range items {
		listing, err := unit.Listings().ByID(ctx, item.ListingID)
		if err != nil {
			if errors.Is(err, domainlistings.ErrNotFound) {
				continue
			}
			return nil, err
		}
		byID[item.ListingID] = listing
	}
	cart := dto.MapCart(items, byID)
	return &cart, nil
}

var (
	_ commands.Handler[AddToCartCommand, *dto.Cart]      = (*AddToCartHandler)(nil)
	_ commands.Handler[RemoveFromCartCommand, *dto.Cart] = (*RemoveFromCartHandler)(nil)
	_ commands.Handler[ClearCartCommand, *dto.Cart]      = (*ClearCartHandler)(nil)
	_ queries.Handler[GetCartQuery, *dto.Cart]           = (*GetCartHandler)(nil)
)
