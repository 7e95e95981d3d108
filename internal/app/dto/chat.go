package dto

import (
	"time"

	domainmessaging "campusmarket/internal/domain/messaging"
	domainuser "campusmarket/internal/domain/user"
)

// Conversation is shown from the point of view of one participant.
type Conversation struct {
	ID            string     `json:"id"`
	ListingID     string     `json:"listing_id"`
	Participants  []string   `json:"participants"`
	OtherUserID   string     `json:"other_user_id,omitempty"`
	UnreadCount   int        `json:"unread_count"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type ConversationList struct {
	Items []Conversation `json:"items"`
}

type ChatMessage struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	ReceiverID     string     `json:"receiver_id"`
	ListingID      string     `json:"listing_id"`
	Text           string     `json:"text"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	Deleted        bool       `json:"deleted,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type ChatMessageList struct {
	Items      []ChatMessage `json:"items"`
	NextBefore *time.Time    `json:"next_before,omitempty"`
}

type SentMessage struct {
	Message      ChatMessage  `json:"message"`
	Conversation Conversation `json:"conversation"`
}

func MapConversation(conv *domainmessaging.Conversation, viewer domainuser.ID) Conversation {
	if conv == nil {
		return Conversation{}
	}
	out := Conversation{
		ID:           string(conv.ID),
		ListingID:    string(conv.ListingID),
		Participants: []string{string(conv.Participant1), string(conv.Participant2)},
		CreatedAt:    conv.CreatedAt,
	}
	if viewer != "" {
		out.OtherUserID = string(conv.Other(viewer))
		out.UnreadCount = conv.UnreadFor(viewer)
	}
	if !conv.LastMessageAt.IsZero() {
		last := conv.LastMessageAt
		out.LastMessageAt = &last
	}
	return out
}

func MapConversations(items []*domainmessaging.Conversation, viewer domainuser.ID) ConversationList {
	out := ConversationList{Items: make([]Conversation, 0, len(items))}
	for _, conv := range items {
		out.Items = append(out.Items, MapConversation(conv, viewer))
	}
	return out
}

func MapChatMessage(msg *domainmessaging.Message) ChatMessage {
	if msg == nil {
		return ChatMessage{}
	}
	out := ChatMessage{
		ID:             string(msg.ID),
		ConversationID: string(msg.ConversationID),
		SenderID:       string(msg.SenderID),
		ReceiverID:     string(msg.ReceiverID),
		ListingID:      string(msg.ListingID),
		Text:           msg.Body,
		ReadAt:         msg.ReadAt,
		EditedAt:       msg.EditedAt,
		Deleted:        msg.Deleted,
		CreatedAt:      msg.CreatedAt,
	}
	if msg.Deleted {
		out.Text = ""
	}
	return out
}

// MapChatMessages sets NextBefore when the page is full.
func MapChatMessages(items []*domainmessaging.Message, limit int) ChatMessageList {
	out := ChatMessageList{Items: make([]ChatMessage, 0, len(items))}
	for _, msg := range items {
		out.Items = append(out.Items, MapChatMessage(msg))
	}
	if limit > 0 && len(items) == limit {
		oldest := items[len(items)-1].CreatedAt
		out.NextBefore = &oldest
	}
	return out
}
