package dto

import (
	"time"

	domaincart "campusmarket/internal/domain/cart"
	domainlistings "campusmarket/internal/domain/listings"
)

type CartItem struct {
	ListingID string    `json:"listing_id"`
	AddedAt   time.Time `json:"added_at"`
	Listing   *Listing  `json:"listing,omitempty"`
	Available bool      `json:"available"`
}

type Cart struct {
	Items      []CartItem `json:"items"`
	TotalCents int64      `json:"total_cents"`
}

// MapCart joins cart rows with the listings that still exist. Only available
// listings count toward the total.
func MapCart(items []domaincart.Item, listings map[domainlistings.ListingID]*domainlistings.Listing) Cart {
	cart := Cart{Items: make([]CartItem, 0, len(items))}
	for _, item := range items {
		row := CartItem{ListingID: string(item.ListingID), AddedAt: item.AddedAt}
		if listing, ok := listings[item.ListingID]; ok {
			mapped := MapListing(listing)
			row.Listing = &mapped
			row.Available = listing.Active()
			if row.Available {
				cart.TotalCents += listing.PriceCents
			}
		}
		cart.Items = append(cart.Items, row)
	}
	return cart
}
