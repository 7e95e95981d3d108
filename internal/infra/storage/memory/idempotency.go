package memory

import (
	"context"
	"sync"
	"time"

	"campusmarket/internal/app/middleware"
)

// IdempotencyStore keeps command results keyed by Idempotency-Key. Records
// older than TTL are treated as absent and dropped on read; zero TTL keeps
// them forever.
type IdempotencyStore struct {
	TTL time.Duration
	Now func() time.Time

	mu    sync.Mutex
	items map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]middleware.IdempotencyRecord)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	if !ok {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if s.TTL > 0 && s.now().Sub(rec.OccurredAt) > s.TTL {
		delete(s.items, key)
		return middleware.IdempotencyRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = s.now()
	}
	s.items[rec.Key] = rec
	return nil
}

func (s *IdempotencyStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
