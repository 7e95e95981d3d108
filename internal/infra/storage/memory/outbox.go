package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "campusmarket/internal/app/outbox"
)

type outboxState int

const (
	outboxNew outboxState = iota
	outboxClaimed
	outboxSent
	outboxFailed
)

type outboxEntry struct {
	record   appoutbox.EventRecord
	state    outboxState
	attempts int
	next     time.Time
	lastErr  string
}

// DefaultOutboxLimit bounds the unpublished records kept when no relay drains them.
const DefaultOutboxLimit = 10000

// Outbox keeps event records in memory and serves them to the relay worker.
// Once Limit records are waiting, Add evicts the oldest one not held by a worker.
type Outbox struct {
	Limit int

	mu      sync.Mutex
	entries []*outboxEntry
	byID    map[string]*outboxEntry
	dropped int
}

func NewOutbox() *Outbox {
	return &Outbox{Limit: DefaultOutboxLimit, byID: make(map[string]*outboxEntry)}
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for o.Limit > 0 && len(o.entries) >= o.Limit {
		if !o.evictOldest() {
			break
		}
	}
	entry := &outboxEntry{record: record, state: outboxNew, next: time.Now().UTC()}
	o.entries = append(o.entries, entry)
	o.byID[record.ID] = entry
	return nil
}

// Dropped reports how many records were evicted unpublished.
func (o *Outbox) Dropped() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.dropped
}

func (o *Outbox) evictOldest() bool {
	for i, entry := range o.entries {
		if entry.state == outboxClaimed {
			continue
		}
		delete(o.byID, entry.record.ID)
		copy(o.entries[i:], o.entries[i+1:])
		o.entries[len(o.entries)-1] = nil
		o.entries = o.entries[:len(o.entries)-1]
		o.dropped++
		return true
	}
	return false
}

// Flush is a no-op; records are visible to the worker as soon as they are added.
func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.PendingRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, entry := range o.entries {
		if entry.state != outboxNew && entry.state != outboxFailed {
			continue
		}
		if entry.next.After(now) {
			continue
		}
		entry.state = outboxClaimed
		return &appoutbox.PendingRecord{EventRecord: entry.record, Attempts: entry.attempts}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if entry, ok := o.byID[id]; ok {
		entry.state = outboxSent
	}
	o.compact()
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if entry, ok := o.byID[id]; ok {
		entry.state = outboxFailed
		entry.attempts++
		entry.next = next
		entry.lastErr = errMsg
	}
	return nil
}

// Pending returns the records not yet published.
func (o *Outbox) Pending() []appoutbox.EventRecord {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []appoutbox.EventRecord
	for _, entry := range o.entries {
		if entry.state != outboxSent {
			out = append(out, entry.record)
		}
	}
	return out
}

func (o *Outbox) compact() {
	kept := o.entries[:0]
	for _, entry := range o.entries {
		if entry.state == outboxSent {
			delete(o.byID, entry.record.ID)
			continue
		}
		kept = append(kept, entry)
	}
	for i := len(kept); i < len(o.entries); i++ {
		o.entries[i] = nil
	}
	o.entries = kept
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ appoutbox.Queue  = (*Outbox)(nil)
)
