package cart

import (
	"context"
	"errors"
	"strings"
	"time"

	"campusmarket/internal/domain/listings"
	"campusmarket/internal/domain/user"
)

var (
	ErrUserRequired       = errors.New("cart: user is required")
	ErrListingRequired    = errors.New("cart: listing is required")
	ErrAlreadyInCart      = errors.New("cart: listing already in cart")
	ErrOwnListing         = errors.New("cart: cannot add your own listing")
	ErrListingUnavailable = errors.New("cart: listing is not available")
)

// Item is one saved listing. A (user, listing) pair appears at most once.
type Item struct {
	UserID    user.ID
	ListingID listings.ListingID
	AddedAt   time.Time
}

func NewItem(userID user.ID, listingID listings.ListingID, now time.Time) (Item, error) {
	if strings.TrimSpace(string(userID)) == "" {
		return Item{}, ErrUserRequired
	}
	if strings.TrimSpace(string(listingID)) == "" {
		return Item{}, ErrListingRequired
	}
	if now.IsZero() {
		now = time.Now()
	}
	return Item{UserID: userID, ListingID: listingID, AddedAt: now.UTC()}, nil
}

type Repository interface {
	// Add fails with ErrAlreadyInCart for a duplicate pair.
	Add(ctx context.Context, item Item) error
	// Remove is a no-op when the item is absent.
	Remove(ctx context.Context, userID user.ID, listingID listings.ListingID) error
	// List returns items newest first.
	List(ctx context.Context, userID user.ID) ([]Item, error)
	Clear(ctx context.Context, userID user.ID) error
}
