package messaging

import (
	"time"

	"campusmarket/internal/domain/listings"
	"campusmarket/internal/domain/user"
)

type MessageSentEvent struct {
	MessageID      MessageID          `json:"message_id"`
	ConversationID ConversationID     `json:"conversation_id"`
	SenderID       user.ID            `json:"sender_id"`
	ReceiverID     user.ID            `json:"receiver_id"`
	ListingID      listings.ListingID `json:"listing_id"`
	At             time.Time          `json:"at"`
}

func (e MessageSentEvent) EventName() string     { return "message.sent" }
func (e MessageSentEvent) AggregateID() string   { return string(e.ConversationID) }
func (e MessageSentEvent) OccurredAt() time.Time { return e.At }

func NewMessageSentEvent(m *Message) MessageSentEvent {
	return MessageSentEvent{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		ListingID:      m.ListingID,
		At:             m.CreatedAt,
	}
}
