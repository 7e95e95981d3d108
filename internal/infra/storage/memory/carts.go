package memory

import (
	"context"
	"sort"
	"sync"

	domaincart "campusmarket/internal/domain/cart"
	domainlistings "campusmarket/internal/domain/listings"
	domainuser "campusmarket/internal/domain/user"
)

type CartRepository struct {
	mu    sync.RWMutex
	items map[domainuser.ID]map[domainlistings.ListingID]domaincart.Item
}

func NewCartRepository() *CartRepository {
	return &CartRepository{items: make(map[domainuser.ID]map[domainlistings.ListingID]domaincart.Item)}
}

func (r *CartRepository) Add(ctx context.Context, item domaincart.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket, ok := r.items[item.UserID]
	if !ok {
		bucket = make(map[domainlistings.ListingID]domaincart.Item)
		r.items[item.UserID] = bucket
	}
	if _, exists := bucket[item.ListingID]; exists {
		return domaincart.ErrAlreadyInCart
	}
	bucket[item.ListingID] = item
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bucket, ok := r.items[userID]; ok {
		delete(bucket, listingID)
	}
	return nil
}

func (r *CartRepository) List(ctx context.Context, userID domainuser.ID) ([]domaincart.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bucket := r.items[userID]
	out := make([]domaincart.Item, 0, len(bucket))
	for _, item := range bucket {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AddedAt.Equal(out[j].AddedAt) {
			return out[i].ListingID < out[j].ListingID
		}
		return out[i].AddedAt.After(out[j].AddedAt)
	})
	return out, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID domainuser.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, userID)
	return nil
}

var _ domaincart.Repository = (*CartRepository)(nil)
