package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"campusmarket/internal/domain/listings"
	"campusmarket/internal/domain/user"
)

var (
	ErrSelfConversation      = errors.New("messaging: cannot start a conversation with yourself")
	ErrParticipantRequired   = errors.New("messaging: participant is required")
	ErrListingRequired       = errors.New("messaging: listing is required")
	ErrConversationNotFound  = errors.New("messaging: conversation not found")
	ErrDuplicateConversation = errors.New("messaging: conversation already exists")
	ErrNotParticipant        = errors.New("messaging: not a conversation participant")
)

type ConversationID string

// Conversation is the dialogue between two users about one listing.
// Participant1 always sorts before Participant2.
type Conversation struct {
	ID            ConversationID
	ListingID     listings.ListingID
	Participant1  user.ID
	Participant2  user.ID
	Unread1       int
	Unread2       int
	LastMessageAt time.Time
	CreatedAt     time.Time
}

// Key is the unique lookup key of a conversation.
type Key struct {
	ListingID    listings.ListingID
	Participant1 user.ID
	Participant2 user.ID
}

// CanonicalPair orders two participant ids ascending.
func CanonicalPair(a, b user.ID) (user.ID, user.ID) {
	if b < a {
		return b, a
	}
	return a, b
}

func NewKey(listingID listings.ListingID, a, b user.ID) (Key, error) {
	a = user.ID(strings.TrimSpace(string(a)))
	b = user.ID(strings.TrimSpace(string(b)))
	if a == "" || b == "" {
		return Key{}, ErrParticipantRequired
	}
	if a == b {
		return Key{}, ErrSelfConversation
	}
	listingID = listings.ListingID(strings.TrimSpace(string(listingID)))
	if listingID == "" {
		return Key{}, ErrListingRequired
	}
	p1, p2 := CanonicalPair(a, b)
	return Key{ListingID: listingID, Participant1: p1, Participant2: p2}, nil
}

func NewConversation(id ConversationID, key Key, now time.Time) *Conversation {
	if now.IsZero() {
		now = time.Now()
	}
	return &Conversation{
		ID:           id,
		ListingID:    key.ListingID,
		Participant1: key.Participant1,
		Participant2: key.Participant2,
		CreatedAt:    now.UTC(),
	}
}

func (c *Conversation) Key() Key {
	return Key{ListingID: c.ListingID, Participant1: c.Participant1, Participant2: c.Participant2}
}

func (c *Conversation) Has(id user.ID) bool {
	return id != "" && (c.Participant1 == id || c.Participant2 == id)
}

// Other returns the counterpart of id, or an empty id when id is not a participant.
func (c *Conversation) Other(id user.ID) user.ID {
	switch id {
	case c.Participant1:
		return c.Participant2
	case c.Participant2:
		return c.Participant1
	default:
		return ""
	}
}

func (c *Conversation) UnreadFor(id user.ID) int {
	switch id {
	case c.Participant1:
		return c.Unread1
	case c.Participant2:
		return c.Unread2
	default:
		return 0
	}
}

type ConversationRepository interface {
	Find(ctx context.Context, key Key) (*Conversation, error)
	// Create fails with ErrDuplicateConversation when the key is already taken.
	Create(ctx context.Context, conversation *Conversation) error
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	// ListForUser returns conversations ordered by most recent activity.
	ListForUser(ctx context.Context, userID user.ID, limit, offset int) ([]*Conversation, error)
	// RecordMessage atomically increments the receiver's unread counter and
	// advances last_message_at.
	RecordMessage(ctx context.Context, id ConversationID, receiver user.ID, at time.Time) error
	// DecrementUnread atomically subtracts n from the participant's counter,
	// never going below zero.
	DecrementUnread(ctx context.Context, id ConversationID, participant user.ID, n int) error
}
