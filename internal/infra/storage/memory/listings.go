package memory

import (
	"context"
	"sort"
	"sync"

	domainlistings "campusmarket/internal/domain/listings"
	"campusmarket/internal/domain/shared/events"
)

// ListingRepository is an in-memory catalog.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[domainlistings.ListingID]*domainlistings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, domainlistings.ErrNotFound
	}
	return cloneListing(listing), nil
}

// Save stores the listing and bumps its version.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if listing == nil || listing.ID == "" {
		return domainlistings.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	listing.Version++
	r.items[listing.ID] = cloneListing(listing)
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opts := params.Normalized()
	matches := make([]*domainlistings.Listing, 0, len(r.items))
	for _, listing := range r.items {
		if err := ctx.Err(); err != nil {
			return domainlistings.SearchResult{}, err
		}
		if opts.Matches(listing) {
			matches = append(matches, listing)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		switch opts.Sort {
		case domainlistings.SortByPriceAsc:
			if a.PriceCents != b.PriceCents {
				return a.PriceCents < b.PriceCents
			}
		case domainlistings.SortByPriceDesc:
			if a.PriceCents != b.PriceCents {
				return a.PriceCents > b.PriceCents
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	total := len(matches)
	page := paginate(matches, opts.Offset, opts.Limit)
	items := make([]*domainlistings.Listing, 0, len(page))
	for _, listing := range page {
		items = append(items, cloneListing(listing))
	}
	return domainlistings.SearchResult{Items: items, Total: total}, nil
}

func cloneListing(l *domainlistings.Listing) *domainlistings.Listing {
	if l == nil {
		return nil
	}
	copyListing := *l
	copyListing.Photos = append([]string(nil), l.Photos...)
	copyListing.EventRecorder = events.EventRecorder{}
	return &copyListing
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)
