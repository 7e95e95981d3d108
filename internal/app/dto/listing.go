package dto

import (
	"time"

	domainlistings "campusmarket/internal/domain/listings"
)

type Listing struct {
	ID          string    `json:"id"`
	SellerID    string    `json:"seller_id"`
	Institution string    `json:"institution"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PriceCents  int64     `json:"price_cents"`
	Category    string    `json:"category"`
	Condition   string    `json:"condition"`
	Photos      []string  `json:"photos"`
	State       string    `json:"state"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ListingDetail is a listing with its seller and, for signed-in viewers,
// whether it sits in their cart.
type ListingDetail struct {
	Listing
	Seller PublicUser `json:"seller"`
	InCart bool       `json:"in_cart"`
	IsMine bool       `json:"is_mine"`
}

type CatalogFilters struct {
	Query         string `json:"query,omitempty"`
	Category      string `json:"category,omitempty"`
	PriceMinCents int64  `json:"price_min_cents,omitempty"`
	PriceMaxCents int64  `json:"price_max_cents,omitempty"`
	Sort          string `json:"sort"`
	Limit         int    `json:"limit"`
	Offset        int    `json:"offset"`
}

type ListingCatalog struct {
	Items   []Listing      `json:"items"`
	Total   int            `json:"total"`
	Filters CatalogFilters `json:"filters"`
}

type PhotoUploadResult struct {
	URL     string  `json:"url"`
	Listing Listing `json:"listing"`
}

func MapListing(listing *domainlistings.Listing) Listing {
	if listing == nil {
		return Listing{}
	}
	photos := append([]string{}, listing.Photos...)
	return Listing{
		ID:          string(listing.ID),
		SellerID:    string(listing.Seller),
		Institution: listing.Institution,
		Title:       listing.Title,
		Description: listing.Description,
		PriceCents:  listing.PriceCents,
		Category:    listing.Category,
		Condition:   string(listing.Condition),
		Photos:      photos,
		State:       string(listing.State),
		Version:     listing.Version,
		CreatedAt:   listing.CreatedAt,
		UpdatedAt:   listing.UpdatedAt,
	}
}

func MapListings(items []*domainlistings.Listing) []Listing {
	out := make([]Listing, 0, len(items))
	for _, item := range items {
		out = append(out, MapListing(item))
	}
	return out
}

func MapCatalog(result domainlistings.SearchResult, params domainlistings.SearchParams) ListingCatalog {
	return ListingCatalog{
		Items: MapListings(result.Items),
		Total: result.Total,
		Filters: CatalogFilters{
			Query:         params.Query,
			Category:      params.Category,
			PriceMinCents: params.PriceMinCents,
			PriceMaxCents: params.PriceMaxCents,
			Sort:          string(params.Sort),
			Limit:         params.Limit,
			Offset:        params.Offset,
		},
	}
}
