package listings

import "time"

type ListingCreatedEvent struct {
	ListingID   ListingID `json:"listing_id"`
	SellerID    SellerID  `json:"seller_id"`
	Institution string    `json:"institution"`
	Title       string    `json:"title"`
	PriceCents  int64     `json:"price_cents"`
	At          time.Time `json:"at"`
}

func (e ListingCreatedEvent) EventName() string     { return "listing.created" }
func (e ListingCreatedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreatedEvent) OccurredAt() time.Time { return e.At }

type ListingSoldEvent struct {
	ListingID ListingID `json:"listing_id"`
	SellerID  SellerID  `json:"seller_id"`
	At        time.Time `json:"at"`
}

func (e ListingSoldEvent) EventName() string     { return "listing.sold" }
func (e ListingSoldEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingSoldEvent) OccurredAt() time.Time { return e.At }

type ListingRemovedEvent struct {
	ListingID ListingID `json:"listing_id"`
	RemovedBy string    `json:"removed_by"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}

func (e ListingRemovedEvent) EventName() string     { return "listing.removed" }
func (e ListingRemovedEvent) AggregateID() string   { return string(e.ListingID) }
func (e ListingRemovedEvent) OccurredAt() time.Time { return e.At }
