package activity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainuser "campusmarket/internal/domain/user"
)

type fakeStore struct {
	mu      sync.Mutex
	last    map[domainuser.ID]time.Time
	writes  int
	failAll bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{last: map[domainuser.ID]time.Time{}}
}

func (s *fakeStore) TouchActivity(_ context.Context, id domainuser.ID, now time.Time, minInterval time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errors.New("store down")
	}
	if prev, ok := s.last[id]; ok && prev.After(now.Add(-minInterval)) {
		return false, nil
	}
	s.last[id] = now
	s.writes++
	return true, nil
}

func (s *fakeStore) LastActive(_ context.Context, id domainuser.ID) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return time.Time{}, errors.New("store down")
	}
	return s.last[id], nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTrackerTouchThenActive(t *testing.T) {
	clk := &clock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := newFakeStore()
	tracker := &Tracker{Store: store, Now: clk.Now}

	assert.False(t, tracker.IsActive(context.Background(), "u1", 0))
	tracker.Touch(context.Background(), "u1")
	assert.True(t, tracker.IsActive(context.Background(), "u1", 0))

	clk.Advance(6 * time.Minute)
	assert.False(t, tracker.IsActive(context.Background(), "u1", 5*time.Minute))
}

func TestTrackerDebouncesWrites(t *testing.T) {
	clk := &clock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := newFakeStore()
	debouncer := NewMemoryDebouncer()
	debouncer.Now = clk.Now

	var mu sync.Mutex
	outcomes := map[string]int{}
	tracker := &Tracker{
		Store:     store,
		Debouncer: debouncer,
		Now:       clk.Now,
		Observe: func(outcome string) {
			mu.Lock()
			outcomes[outcome]++
			mu.Unlock()
		},
	}

	for i := 0; i < 5; i++ {
		tracker.Touch(context.Background(), "u1")
	}
	assert.Equal(t, 1, store.writes)
	assert.Equal(t, 1, outcomes["written"])
	assert.Equal(t, 4, outcomes["debounced"])

	clk.Advance(61 * time.Second)
	tracker.Touch(context.Background(), "u1")
	assert.Equal(t, 2, store.writes)
}

func TestTrackerStoreConditionCoversMissingDebouncer(t *testing.T) {
	clk := &clock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
	store := newFakeStore()
	tracker := &Tracker{Store: store, Now: clk.Now}

	tracker.Touch(context.Background(), "u1")
	clk.Advance(10 * time.Second)
	tracker.Touch(context.Background(), "u1")
	assert.Equal(t, 1, store.writes)
}

func TestTrackerSwallowsFailures(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	tracker := &Tracker{Store: store}

	require.NotPanics(t, func() { tracker.Touch(context.Background(), "u1") })
	assert.False(t, tracker.IsActive(context.Background(), "u1", time.Hour))

	var nilTracker *Tracker
	assert.False(t, nilTracker.IsActive(context.Background(), "u1", time.Hour))
}

func TestTrackerTouchAsync(t *testing.T) {
	store := newFakeStore()
	tracker := &Tracker{Store: store}

	ctx, cancel := context.WithCancel(context.Background())
	tracker.TouchAsync(ctx, "u1")
	cancel()
	tracker.Wait()

	assert.Equal(t, 1, store.writes)
}
