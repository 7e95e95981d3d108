package listings

import "strings"

// CatalogSort defines a supported ordering.
type CatalogSort string

const (
	SortByNewest    CatalogSort = "newest"
	SortByPriceAsc  CatalogSort = "price_asc"
	SortByPriceDesc CatalogSort = "price_desc"

	defaultSearchLimit = 24
	maxSearchLimit     = 60
)

// SearchParams describe catalog filters and paging options.
type SearchParams struct {
	Institution   string
	Seller        SellerID
	States        []ListingState
	Query         string
	Category      string
	PriceMinCents int64
	PriceMaxCents int64
	Sort          CatalogSort
	Limit         int
	Offset        int
	OnlyActive    bool
}

// Normalized returns a sanitized copy of params.
func (p SearchParams) Normalized() SearchParams {
	normalized := p
	normalized.Institution = strings.ToLower(strings.TrimSpace(normalized.Institution))
	normalized.Query = strings.ToLower(strings.TrimSpace(normalized.Query))
	normalized.Category = strings.ToLower(strings.TrimSpace(normalized.Category))
	if normalized.PriceMinCents < 0 {
		normalized.PriceMinCents = 0
	}
	if normalized.PriceMaxCents > 0 && normalized.PriceMaxCents < normalized.PriceMinCents {
		normalized.PriceMaxCents = 0
	}
	if normalized.Limit <= 0 {
		normalized.Limit = defaultSearchLimit
	}
	if normalized.Limit > maxSearchLimit {
		normalized.Limit = maxSearchLimit
	}
	if normalized.Offset < 0 {
		normalized.Offset = 0
	}
	switch normalized.Sort {
	case SortByNewest, SortByPriceAsc, SortByPriceDesc:
	default:
		normalized.Sort = SortByNewest
	}
	return normalized
}

// Matches reports whether the listing passes every filter except paging.
func (p SearchParams) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if p.OnlyActive && l.State != ListingActive {
		return false
	}
	if len(p.States) > 0 && !stateIncluded(l.State, p.States) {
		return false
	}
	if p.Institution != "" && l.Institution != p.Institution {
		return false
	}
	if p.Seller != "" && l.Seller != p.Seller {
		return false
	}
	if p.Category != "" && l.Category != p.Category {
		return false
	}
	if p.PriceMinCents > 0 && l.PriceCents < p.PriceMinCents {
		return false
	}
	if p.PriceMaxCents > 0 && l.PriceCents > p.PriceMaxCents {
		return false
	}
	if p.Query != "" {
		haystack := strings.ToLower(l.Title + " " + l.Description)
		if !strings.Contains(haystack, p.Query) {
			return false
		}
	}
	return true
}

func stateIncluded(state ListingState, states []ListingState) bool {
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}

// SearchResult wraps search hits with meta.
type SearchResult struct {
	Items []*Listing
	Total int
}
