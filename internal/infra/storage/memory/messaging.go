package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainmessaging "campusmarket/internal/domain/messaging"
	domainuser "campusmarket/internal/domain/user"
)

// ConversationRepository keys conversations on (listing, participant1, participant2).
type ConversationRepository struct {
	mu    sync.RWMutex
	byID  map[domainmessaging.ConversationID]*domainmessaging.Conversation
	byKey map[domainmessaging.Key]domainmessaging.ConversationID
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		byID:  make(map[domainmessaging.ConversationID]*domainmessaging.Conversation),
		byKey: make(map[domainmessaging.Key]domainmessaging.ConversationID),
	}
}

func (r *ConversationRepository) Find(ctx context.Context, key domainmessaging.Key) (*domainmessaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byKey[key]
	if !ok {
		return nil, domainmessaging.ErrConversationNotFound
	}
	copyConv := *r.byID[id]
	return &copyConv, nil
}

func (r *ConversationRepository) Create(ctx context.Context, conv *domainmessaging.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := conv.Key()
	if _, exists := r.byKey[key]; exists {
		return domainmessaging.ErrDuplicateConversation
	}
	if _, exists := r.byID[conv.ID]; exists {
		return domainmessaging.ErrDuplicateConversation
	}
	stored := *conv
	r.byID[conv.ID] = &stored
	r.byKey[key] = conv.ID
	return nil
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainmessaging.ConversationID) (*domainmessaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.byID[id]
	if !ok {
		return nil, domainmessaging.ErrConversationNotFound
	}
	copyConv := *conv
	return &copyConv, nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, userID domainuser.ID, limit, offset int) ([]*domainmessaging.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainmessaging.Conversation, 0)
	for _, conv := range r.byID {
		if conv.Has(userID) {
			matches = append(matches, conv)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := lastActivity(matches[i]), lastActivity(matches[j])
		if a.Equal(b) {
			return matches[i].ID < matches[j].ID
		}
		return a.After(b)
	})
	page := paginate(matches, offset, limit)
	out := make([]*domainmessaging.Conversation, 0, len(page))
	for _, conv := range page {
		copyConv := *conv
		out = append(out, &copyConv)
	}
	return out, nil
}

func (r *ConversationRepository) RecordMessage(ctx context.Context, id domainmessaging.ConversationID, receiver domainuser.ID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[id]
	if !ok {
		return domainmessaging.ErrConversationNotFound
	}
	switch receiver {
	case conv.Participant1:
		conv.Unread1++
	case conv.Participant2:
		conv.Unread2++
	default:
		return domainmessaging.ErrNotParticipant
	}
	if at.After(conv.LastMessageAt) {
		conv.LastMessageAt = at.UTC()
	}
	return nil
}

func (r *ConversationRepository) DecrementUnread(ctx context.Context, id domainmessaging.ConversationID, participant domainuser.ID, n int) error {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.byID[id]
	if !ok {
		return domainmessaging.ErrConversationNotFound
	}
	switch participant {
	case conv.Participant1:
		conv.Unread1 = max(0, conv.Unread1-n)
	case conv.Participant2:
		conv.Unread2 = max(0, conv.Unread2-n)
	default:
		return domainmessaging.ErrNotParticipant
	}
	return nil
}

func lastActivity(c *domainmessaging.Conversation) time.Time {
	if c.LastMessageAt.IsZero() {
		return c.CreatedAt
	}
	return c.LastMessageAt
}

// MessageRepository keeps messages per conversation in insertion order.
type MessageRepository struct {
	mu     sync.RWMutex
	byID   map[domainmessaging.MessageID]*domainmessaging.Message
	byConv map[domainmessaging.ConversationID][]domainmessaging.MessageID
}

func NewMessageRepository() *MessageRepository {
	return &MessageRepository{
		byID:   make(map[domainmessaging.MessageID]*domainmessaging.Message),
		byConv: make(map[domainmessaging.ConversationID][]domainmessaging.MessageID),
	}
}

func (r *MessageRepository) Insert(ctx context.Context, msg *domainmessaging.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[msg.ID] = cloneMessage(msg)
	r.byConv[msg.ConversationID] = append(r.byConv[msg.ConversationID], msg.ID)
	return nil
}

func (r *MessageRepository) ByID(ctx context.Context, id domainmessaging.MessageID) (*domainmessaging.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msg, ok := r.byID[id]
	if !ok {
		return nil, domainmessaging.ErrMessageNotFound
	}
	return cloneMessage(msg), nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, id domainmessaging.ConversationID, params domainmessaging.ListMessagesParams) ([]*domainmessaging.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byConv[id]
	msgs := make([]*domainmessaging.Message, 0, len(ids))
	for _, mid := range ids {
		msg := r.byID[mid]
		if msg.Deleted && !params.IncludeDeleted {
			continue
		}
		if !params.Before.IsZero() && !msg.CreatedAt.Before(params.Before) {
			continue
		}
		msgs = append(msgs, msg)
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.After(msgs[j].CreatedAt)
	})
	page := paginate(msgs, 0, params.Limit)
	out := make([]*domainmessaging.Message, 0, len(page))
	for _, msg := range page {
		out = append(out, cloneMessage(msg))
	}
	return out, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id domainmessaging.MessageID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return false, domainmessaging.ErrMessageNotFound
	}
	if !msg.Unread() {
		return false, nil
	}
	readAt := at.UTC()
	msg.ReadAt = &readAt
	return true, nil
}

func (r *MessageRepository) MarkConversationRead(ctx context.Context, id domainmessaging.ConversationID, receiver domainuser.ID, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	readAt := at.UTC()
	changed := 0
	for _, mid := range r.byConv[id] {
		msg := r.byID[mid]
		if msg.ReceiverID != receiver || !msg.Unread() {
			continue
		}
		stamp := readAt
		msg.ReadAt = &stamp
		changed++
	}
	return changed, nil
}

func (r *MessageRepository) UpdateBody(ctx context.Context, id domainmessaging.MessageID, body string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return false, domainmessaging.ErrMessageNotFound
	}
	if msg.Deleted {
		return false, nil
	}
	editedAt := at.UTC()
	msg.Body = body
	msg.EditedAt = &editedAt
	return true, nil
}

func (r *MessageRepository) SoftDelete(ctx context.Context, id domainmessaging.MessageID, at time.Time) (bool, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.byID[id]
	if !ok {
		return false, false, domainmessaging.ErrMessageNotFound
	}
	if msg.Deleted {
		return false, false, nil
	}
	wasUnread := msg.Unread()
	deletedAt := at.UTC()
	msg.Deleted = true
	msg.DeletedAt = &deletedAt
	return true, wasUnread, nil
}

func cloneMessage(m *domainmessaging.Message) *domainmessaging.Message {
	copyMsg := *m
	copyMsg.ReadAt = cloneTime(m.ReadAt)
	copyMsg.EditedAt = cloneTime(m.EditedAt)
	copyMsg.DeletedAt = cloneTime(m.DeletedAt)
	return &copyMsg
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

var (
	_ domainmessaging.ConversationRepository = (*ConversationRepository)(nil)
	_ domainmessaging.MessageRepository      = (*MessageRepository)(nil)
)
