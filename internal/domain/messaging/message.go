package messaging

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"campusmarket/internal/domain/listings"
	"campusmarket/internal/domain/user"
)

var (
	ErrMessageNotFound = errors.New("messaging: message not found")
	ErrBodyRequired    = errors.New("messaging: message body is required")
	ErrBodyTooLong     = errors.New("messaging: message body must be at most 4000 characters")
	ErrMessageDeleted  = errors.New("messaging: message is deleted")
	ErrNotSender       = errors.New("messaging: only the sender may change this message")
	ErrNotReceiver     = errors.New("messaging: only the receiver may mark this message read")
)

const MaxBodyLength = 4000

type MessageID string

type Message struct {
	ID             MessageID
	ConversationID ConversationID
	SenderID       user.ID
	ReceiverID     user.ID
	ListingID      listings.ListingID
	Body           string
	ReadAt         *time.Time
	EditedAt       *time.Time
	Deleted        bool
	DeletedAt      *time.Time
	CreatedAt      time.Time
}

type NewMessageParams struct {
	ID           MessageID
	Conversation *Conversation
	SenderID     user.ID
	Body         string
	Now          time.Time
}

func NewMessage(params NewMessageParams) (*Message, error) {
	conv := params.Conversation
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if !conv.Has(params.SenderID) {
		return nil, ErrNotParticipant
	}
	body, err := NormalizeBody(params.Body)
	if err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Message{
		ID:             params.ID,
		ConversationID: conv.ID,
		SenderID:       params.SenderID,
		ReceiverID:     conv.Other(params.SenderID),
		ListingID:      conv.ListingID,
		Body:           body,
		CreatedAt:      now.UTC(),
	}, nil
}

// NormalizeBody trims the body and enforces 1..MaxBodyLength characters.
func NormalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", ErrBodyRequired
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return "", ErrBodyTooLong
	}
	return body, nil
}

// Unread reports whether the message still counts toward the receiver's unread counter.
func (m *Message) Unread() bool {
	return m.ReadAt == nil && !m.Deleted
}

// Preview returns at most n characters of the body.
func (m *Message) Preview(n int) string {
	if n <= 0 || utf8.RuneCountInString(m.Body) <= n {
		return m.Body
	}
	runes := []rune(m.Body)
	return string(runes[:n]) + "…"
}

type ListMessagesParams struct {
	Limit          int
	Before         time.Time
	IncludeDeleted bool
}

type MessageRepository interface {
	Insert(ctx context.Context, message *Message) error
	ByID(ctx context.Context, id MessageID) (*Message, error)
	// ListByConversation returns messages newest first.
	ListByConversation(ctx context.Context, id ConversationID, params ListMessagesParams) ([]*Message, error)
	// MarkRead stamps read_at only when the message is unread and not deleted.
	// It reports whether the row changed.
	MarkRead(ctx context.Context, id MessageID, at time.Time) (bool, error)
	// MarkConversationRead stamps every unread message addressed to receiver
	// and returns how many changed.
	MarkConversationRead(ctx context.Context, id ConversationID, receiver user.ID, at time.Time) (int, error)
	// UpdateBody rewrites a message that is not deleted. It reports whether the row changed.
	UpdateBody(ctx context.Context, id MessageID, body string, at time.Time) (bool, error)
	// SoftDelete flags the message deleted. changed is false when it already was;
	// wasUnread tells whether it still counted as unread at that moment.
	SoftDelete(ctx context.Context, id MessageID, at time.Time) (changed bool, wasUnread bool, err error)
}
