package events

import "time"

type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}

// Source is implemented by aggregates that buffer events until they are persisted.
type Source interface {
	PendingEvents() []DomainEvent
	ClearEvents()
}

type EventRecorder struct {
	pending []DomainEvent
}

func (r *EventRecorder) Record(event DomainEvent) {
	if event == nil {
		return
	}
	r.pending = append(r.pending, event)
}

func (r *EventRecorder) PendingEvents() []DomainEvent {
	out := make([]DomainEvent, len(r.pending))
	copy(out, r.pending)
	return out
}

func (r *EventRecorder) ClearEvents() {
	r.pending = nil
}

// Drain returns the pending events of every source and clears them.
func Drain(sources ...Source) []DomainEvent {
	var out []DomainEvent
	for _, src := range sources {
		if src == nil {
			continue
		}
		out = append(out, src.PendingEvents()...)
		src.ClearEvents()
	}
	return out
}
