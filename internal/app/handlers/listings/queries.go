package listings

import (
	"context"
	"errors"

	"campusmarket/internal/app/dto"
	"campusmarket/internal/app/queries"
	"campusmarket/internal/app/uow"
	domainlistings "campusmarket/internal/domain/listings"
	domainuser "campusmarket/internal/domain/user"
)

const (
	searchCatalogKey = "listings.catalog"
	getListingKey    = "listings.get"
	myListingsKey    = "listings.mine"
)

// ErrOtherInstitution hides listings of other campuses from the caller.
var ErrOtherInstitution = errors.New("listings: listing belongs to another institution")

// SearchCatalogQuery is always scoped to the caller's institution.
type SearchCatalogQuery struct {
	Institution   string `validate:"required"`
	Query         string `validate:"max=200"`
	Category      string
	PriceMinCents int64  `validate:"gte=0"`
	PriceMaxCents int64  `validate:"gte=0"`
	Sort          string `validate:"omitempty,oneof=newest price_asc price_desc"`
	Limit         int
	Offset        int
}

func (q SearchCatalogQuery) Key() string { return searchCatalogKey }

type SearchCatalogHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	defer release()

	params := domainlistings.SearchParams{
		Institution:   q.Institution,
		Query:         q.Query,
		Category:      q.Category,
		PriceMinCents: q.PriceMinCents,
		PriceMaxCents: q.PriceMaxCents,
		Sort:          domainlistings.CatalogSort(q.Sort),
		Limit:         q.Limit,
		Offset:        q.Offset,
		OnlyActive:    true,
	}.Normalized()
	result, err := unit.Listings().Search(ctx, params)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	return dto.MapCatalog(result, params), nil
}

type GetListingQuery struct {
	ListingID   string `validate:"required"`
	ViewerID    string
	Institution string
}

func (q GetListingQuery) Key() string { return getListingKey }

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

// Handle returns the listing with its seller. Removed listings are visible to
// their seller only; other campuses see nothing.
func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.ListingDetail, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingDetail{}, err
	}
	defer release()

	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.ListingDetail{}, err
	}
	isMine := q.ViewerID != "" && listing.Seller == domainlistings.SellerID(q.ViewerID)
	if !isMine {
		if listing.State == domainlistings.ListingRemoved {
			return dto.ListingDetail{}, domainlistings.ErrNotFound
		}
		if q.Institution != "" && listing.Institution != q.Institution {
			return dto.ListingDetail{}, ErrOtherInstitution
		}
	}

	detail := dto.ListingDetail{Listing: dto.MapListing(listing), IsMine: isMine}
	if seller, err := unit.Users().ByID(ctx, domainuser.ID(listing.Seller)); err == nil {
		detail.Seller = dto.MapPublicUser(seller)
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return dto.ListingDetail{}, err
	}
	if q.ViewerID != "" && !isMine {
		items, err := unit.Carts().List(ctx, domainuser.ID(q.ViewerID))
		if err != nil {
			return dto.ListingDetail{}, err
		}
		for _, item := range items {
			if item.ListingID == listing.ID {
				detail.InCart = true
				break
			}
		}
	}
	return detail, nil
}

type MyListingsQuery struct {
	SellerID string `validate:"required"`
	State    string `validate:"omitempty,oneof=ACTIVE SOLD REMOVED"`
	Limit    int
	Offset   int
}

func (q MyListingsQuery) Key() string { return myListingsKey }

type MyListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *MyListingsHandler) Handle(ctx context.Context, q MyListingsQuery) (dto.ListingCatalog, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	defer release()

	params := domainlistings.SearchParams{
		Seller: domainlistings.SellerID(q.SellerID),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.State != "" {
		params.States = []domainlistings.ListingState{domainlistings.ListingState(q.State)}
	}
	params = params.Normalized()
	result, err := unit.Listings().Search(ctx, params)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	return dto.MapCatalog(result, params), nil
}

var (
	_ queries.Handler[SearchCatalogQuery, dto.ListingCatalog] = (*SearchCatalogHandler)(nil)
	_ queries.Handler[GetListingQuery, dto.ListingDetail]     = (*GetListingHandler)(nil)
	_ queries.Handler[MyListingsQuery, dto.ListingCatalog]    = (*MyListingsHandler)(nil)
)
