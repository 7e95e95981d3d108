package listings

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	"campusmarket/internal/app/handlers/support"
	"campusmarket/internal/app/outbox"
	"campusmarket/internal/app/uow"
	domainlistings "campusmarket/internal/domain/listings"
)

const (
	createListingKey = "listings.create"
	updateListingKey = "listings.update"
	markSoldKey      = "listings.mark_sold"
	removeListingKey = "listings.remove"
)

var ErrListingNotOwned = errors.New("listings: listing belongs to another seller")

// AdminChecker tells whether an email is on the admin allow-list.
type AdminChecker interface {
	IsAdmin(email string) bool
}

type ListingPayload struct {
	Title       string `validate:"required,max=120"`
	Description string `validate:"max=5000"`
	PriceCents  int64  `validate:"gte=0"`
	Category    string `validate:"max=40"`
	Condition   string `validate:"omitempty,oneof=new like_new good fair"`
}

type CreateListingCommand struct {
	SellerID    string `validate:"required"`
	Institution string `validate:"required"`
	Payload     ListingPayload
	Photos      []string `validate:"max=8,dive,url"`
	RequestKey  string
}

func (c CreateListingCommand) Key() string            { return createListingKey }
func (c CreateListingCommand) IdempotencyKey() string { return c.RequestKey }
func (c CreateListingCommand) ResultPrototype() any   { return &dto.Listing{} }

type CreateListingHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          domainlistings.ListingID(uuid.NewString()),
		Seller:      domainlistings.SellerID(cmd.SellerID),
		Institution: cmd.Institution,
		Title:       cmd.Payload.Title,
		Description: cmd.Payload.Description,
		PriceCents:  cmd.Payload.PriceCents,
		Category:    cmd.Payload.Category,
		Condition:   cmd.Payload.Condition,
		Photos:      cmd.Photos,
		Now:         support.Now(h.Now),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	support.RecordEvents(ctx, h.Outbox, h.Encoder, h.Logger, listing)

	if h.Logger != nil {
		h.Logger.Info("listing created", "listing_id", listing.ID, "seller_id", cmd.SellerID)
	}
	result := dto.MapListing(listing)
	return &result, nil
}

type UpdateListingCommand struct {
	SellerID  string `validate:"required"`
	ListingID string `validate:"required"`
	Payload   ListingPayload
}

func (c UpdateListingCommand) Key() string { return updateListingKey }

type UpdateListingHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *UpdateListingHandler) Handle(ctx context.Context, cmd UpdateListingCommand) (*dto.Listing, error) {
	unit, listing, err := ownedListing(ctx, cmd.SellerID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Update(domainlistings.UpdateListingParams{
		Title:       cmd.Payload.Title,
		Description: cmd.Payload.Description,
		PriceCents:  cmd.Payload.PriceCents,
		Category:    cmd.Payload.Category,
		Condition:   cmd.Payload.Condition,
		Now:         support.Now(h.Now),
	}); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("listing updated", "listing_id", listing.ID, "seller_id", cmd.SellerID)
	}
	result := dto.MapListing(listing)
	return &result, nil
}

type MarkSoldCommand struct {
	SellerID  string `validate:"required"`
	ListingID string `validate:"required"`
}

func (c MarkSoldCommand) Key() string { return markSoldKey }

type MarkSoldHandler struct {
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *MarkSoldHandler) Handle(ctx context.Context, cmd MarkSoldCommand) (*dto.Listing, error) {
	unit, listing, err := ownedListing(ctx, cmd.SellerID, cmd.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.MarkSold(support.Now(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	support.RecordEvents(ctx, h.Outbox, h.Encoder, h.Logger, listing)
	if h.Logger != nil {
		h.Logger.Info("listing sold", "listing_id", listing.ID)
	}
	result := dto.MapListing(listing)
	return &result, nil
}

// RemoveListingCommand hides a listing. Sellers remove their own; admins any.
type RemoveListingCommand struct {
	CallerID    string `validate:"required"`
	CallerEmail string
	ListingID   string `validate:"required"`
	Reason      string `validate:"max=500"`
}

func (c RemoveListingCommand) Key() string { return removeListingKey }

type RemoveListingHandler struct {
	Admins  AdminChecker
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Now     func() time.Time
}

func (h *RemoveListingHandler) Handle(ctx context.Context, cmd RemoveListingCommand) (*dto.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(cmd.ListingID)))
	if err != nil {
		return nil, err
	}
	isSeller := listing.Seller == domainlistings.SellerID(cmd.CallerID)
	isAdmin := h.Admins != nil && h.Admins.IsAdmin(cmd.CallerEmail)
	if !isSeller && !isAdmin {
		return nil, ErrListingNotOwned
	}
	if err := listing.Remove(cmd.CallerID, cmd.Reason, support.Now(h.Now)); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}
	support.RecordEvents(ctx, h.Outbox, h.Encoder, h.Logger, listing)
	if h.Logger != nil {
		h.Logger.Info("listing removed", "listing_id", listing.ID, "by", cmd.CallerID, "admin", !isSeller)
	}
	result := dto.MapListing(listing)
	return &result, nil
}

func ownedListing(ctx context.Context, sellerID, listingID string) (uow.UnitOfWork, *domainlistings.Listing, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(strings.TrimSpace(listingID)))
	if err != nil {
		return nil, nil, err
	}
	if listing.Seller != domainlistings.SellerID(sellerID) {
		return nil, nil, ErrListingNotOwned
	}
	return unit, listing, nil
}

var (
	_ commands.Handler[CreateListingCommand, *dto.Listing] = (*CreateListingHandler)(nil)
	_ commands.Handler[UpdateListingCommand, *dto.Listing] = (*UpdateListingHandler)(nil)
	_ commands.Handler[MarkSoldCommand, *dto.Listing]      = (*MarkSoldHandler)(nil)
	_ commands.Handler[RemoveListingCommand, *dto.Listing] = (*RemoveListingHandler)(nil)
)
