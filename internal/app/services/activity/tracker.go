package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	domainuser "campusmarket/internal/domain/user"
)

const (
	DefaultInterval  = time.Minute
	DefaultThreshold = 5 * time.Minute
	touchTimeout     = 3 * time.Second
)

// Debouncer admits one call per key and window.
type Debouncer interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Tracker records when users were last seen. Failures never reach callers.
type Tracker struct {
	Store     domainuser.ActivityStore
	Debouncer Debouncer
	Interval  time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
	// Observe receives the outcome of every touch: written, skipped, debounced or error.
	Observe func(outcome string)

	wg sync.WaitGroup
}

// Touch updates last_active_at at most once per Interval.
func (t *Tracker) Touch(ctx context.Context, id domainuser.ID) {
	if t == nil || t.Store == nil || id == "" {
		return
	}
	interval := t.interval()
	if t.Debouncer != nil {
		allowed, err := t.Debouncer.Allow(ctx, "activity:"+string(id), interval)
		if err != nil {
			t.warn("activity debounce failed", id, err)
		} else if !allowed {
			t.observe("debounced")
			return
		}
	}
	written, err := t.Store.TouchActivity(ctx, id, t.now(), interval)
	switch {
	case err != nil:
		t.warn("activity touch failed", id, err)
		t.observe("error")
	case written:
		t.observe("written")
	default:
		t.observe("skipped")
	}
}

// TouchAsync runs Touch on its own goroutine with a context detached from
// the request.
func (t *Tracker) TouchAsync(ctx context.Context, id domainuser.ID) {
	if t == nil || t.Store == nil || id == "" {
		return
	}
	detached := context.WithoutCancel(ctx)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil && t.Logger != nil {
				t.Logger.Error("activity touch panicked", "user_id", id, "panic", r)
			}
		}()
		touchCtx, cancel := context.WithTimeout(detached, touchTimeout)
		defer cancel()
		t.Touch(touchCtx, id)
	}()
}

// Wait blocks until every pending TouchAsync has returned.
func (t *Tracker) Wait() {
	if t != nil {
		t.wg.Wait()
	}
}

// IsActive reports whether the user was seen within threshold. Any lookup
// failure counts as inactive.
func (t *Tracker) IsActive(ctx context.Context, id domainuser.ID, threshold time.Duration) bool {
	if t == nil || t.Store == nil || id == "" {
		return false
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	last, err := t.Store.LastActive(ctx, id)
	if err != nil {
		if t.Logger != nil {
			t.Logger.Debug("activity lookup failed", "user_id", id, "error", err)
		}
		return false
	}
	if last.IsZero() {
		return false
	}
	return t.now().Sub(last) <= threshold
}

func (t *Tracker) interval() time.Duration {
	if t.Interval > 0 {
		return t.Interval
	}
	return DefaultInterval
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now().UTC()
	}
	return time.Now().UTC()
}

func (t *Tracker) observe(outcome string) {
	if t.Observe != nil {
		t.Observe(outcome)
	}
}

func (t *Tracker) warn(msg string, id domainuser.ID, err error) {
	if t.Logger != nil {
		t.Logger.Warn(msg, "user_id", id, "error", err)
	}
}

// MemoryDebouncer is a process-local Debouncer.
type MemoryDebouncer struct {
	mu   sync.Mutex
	seen map[string]time.Time
	Now  func() time.Time
}

func NewMemoryDebouncer() *MemoryDebouncer {
	return &MemoryDebouncer{seen: make(map[string]time.Time)}
}

func (d *MemoryDebouncer) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	now := time.Now()
	if d.Now != nil {
		now = d.Now()
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]time.Time)
	}
	if until, ok := d.seen[key]; ok && now.Before(until) {
		return false, nil
	}
	d.seen[key] = now.Add(window)
	if len(d.seen) > 4096 {
		for k, until := range d.seen {
			if !now.Before(until) {
				delete(d.seen, k)
			}
		}
	}
	return true, nil
}

var _ Debouncer = (*MemoryDebouncer)(nil)
