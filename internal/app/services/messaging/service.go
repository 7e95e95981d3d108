package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	appoutbox "campusmarket/internal/app/outbox"
	domainlistings "campusmarket/internal/domain/listings"
	domainmessaging "campusmarket/internal/domain/messaging"
	"campusmarket/internal/domain/shared/events"
	domainuser "campusmarket/internal/domain/user"
)

var (
	ErrSellerNotInvolved  = errors.New("messaging: conversations must include the listing seller")
	ErrListingUnavailable = errors.New("messaging: listing is no longer available")
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Notifications receives every sent message. Implementations must not block.
type Notifications interface {
	MessageSent(msg *domainmessaging.Message)
}

type Service struct {
	Resolver      *Resolver
	Conversations domainmessaging.ConversationRepository
	Messages      domainmessaging.MessageRepository
	Listings      domainlistings.ListingRepository
	// Users resolves an explicit receiver. Nil skips the existence check.
	Users         domainuser.Repository
	Outbox        appoutbox.Outbox
	Encoder       appoutbox.EventEncoder
	Notifications Notifications
	Logger        *slog.Logger
	IDs           func() string
	Now           func() time.Time
}

type SendParams struct {
	SenderID domainuser.ID
	// ReceiverID defaults to the listing seller.
	ReceiverID domainuser.ID
	ListingID  domainlistings.ListingID
	Body       string
}

type SendResult struct {
	Message      *domainmessaging.Message
	Conversation *domainmessaging.Conversation
}

// Send starts or continues the conversation about a listing.
func (s *Service) Send(ctx context.Context, params SendParams) (*SendResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if params.SenderID == "" {
		return nil, domainmessaging.ErrParticipantRequired
	}
	if _, err := domainmessaging.NormalizeBody(params.Body); err != nil {
		return nil, err
	}
	conv, err := s.listingConversation(ctx, params.SenderID, params.ReceiverID, params.ListingID)
	if err != nil {
		return nil, err
	}
	msg, err := s.deliver(ctx, conv, params.SenderID, params.Body)
	if err != nil {
		return nil, err
	}
	return &SendResult{Message: msg, Conversation: conv}, nil
}

// StartConversation opens (or finds) the conversation about a listing without
// sending anything. otherID defaults to the listing seller.
func (s *Service) StartConversation(ctx context.Context, callerID, otherID domainuser.ID, listingID domainlistings.ListingID) (*domainmessaging.Conversation, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, domainmessaging.ErrParticipantRequired
	}
	return s.listingConversation(ctx, callerID, otherID, listingID)
}

func (s *Service) listingConversation(ctx context.Context, senderID, receiverID domainuser.ID, rawListingID domainlistings.ListingID) (*domainmessaging.Conversation, error) {
	listingID := domainlistings.ListingID(strings.TrimSpace(string(rawListingID)))
	if listingID == "" {
		return nil, domainmessaging.ErrListingRequired
	}
	listing, err := s.Listings.ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	seller := domainuser.ID(listing.Seller)
	if receiverID == "" {
		receiverID = seller
	}
	if senderID == receiverID {
		return nil, domainmessaging.ErrSelfConversation
	}
	if senderID != seller && receiverID != seller {
		return nil, ErrSellerNotInvolved
	}
	if listing.State == domainlistings.ListingRemoved {
		return nil, ErrListingUnavailable
	}
	if receiverID != seller && s.Users != nil {
		if _, err := s.Users.ByID(ctx, receiverID); err != nil {
			return nil, err
		}
	}
	return s.Resolver.GetOrCreate(ctx, senderID, receiverID, listingID)
}

// SendToConversation replies inside an existing conversation.
func (s *Service) SendToConversation(ctx context.Context, conversationID domainmessaging.ConversationID, senderID domainuser.ID, body string) (*SendResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	conv, err := s.participantConversation(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	msg, err := s.deliver(ctx, conv, senderID, body)
	if err != nil {
		return nil, err
	}
	return &SendResult{Message: msg, Conversation: conv}, nil
}

func (s *Service) deliver(ctx context.Context, conv *domainmessaging.Conversation, senderID domainuser.ID, body string) (*domainmessaging.Message, error) {
	msg, err := domainmessaging.NewMessage(domainmessaging.NewMessageParams{
		ID:           domainmessaging.MessageID(s.newID()),
		Conversation: conv,
		SenderID:     senderID,
		Body:         body,
		Now:          s.now(),
	})
	if err != nil {
		return nil, err
	}
	// Count first: a read-all may only decrement messages whose increment landed.
	if err := s.Conversations.RecordMessage(ctx, conv.ID, msg.ReceiverID, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("messaging: record message: %w", err)
	}
	if err := s.Messages.Insert(ctx, msg); err != nil {
		if derr := s.Conversations.DecrementUnread(ctx, conv.ID, msg.ReceiverID, 1); derr != nil {
			s.logError("unread counter rollback failed", msg, derr)
		}
		return nil, fmt.Errorf("messaging: insert message: %w", err)
	}
	s.recordEvent(ctx, domainmessaging.NewMessageSentEvent(msg))
	if s.Notifications != nil {
		s.Notifications.MessageSent(msg)
	}
	if s.Logger != nil {
		s.Logger.Info("message sent", "message_id", msg.ID, "conversation_id", conv.ID, "sender_id", msg.SenderID)
	}
	return msg, nil
}

// MarkRead stamps the message read for its receiver. Repeating it is a no-op.
func (s *Service) MarkRead(ctx context.Context, messageID domainmessaging.MessageID, callerID domainuser.ID) (bool, error) {
	if err := s.ensureDependencies(); err != nil {
		return false, err
	}
	msg, err := s.Messages.ByID(ctx, messageID)
	if err != nil {
		return false, err
	}
	if msg.ReceiverID != callerID {
		return false, domainmessaging.ErrNotReceiver
	}
	changed, err := s.Messages.MarkRead(ctx, messageID, s.now())
	if err != nil || !changed {
		return false, err
	}
	if err := s.Conversations.DecrementUnread(ctx, msg.ConversationID, callerID, 1); err != nil {
		return true, fmt.Errorf("messaging: decrement unread: %w", err)
	}
	return true, nil
}

// MarkConversationRead marks everything addressed to the caller as read and
// returns how many messages changed.
func (s *Service) MarkConversationRead(ctx context.Context, conversationID domainmessaging.ConversationID, callerID domainuser.ID) (int, error) {
	if err := s.ensureDependencies(); err != nil {
		return 0, err
	}
	conv, err := s.participantConversation(ctx, conversationID, callerID)
	if err != nil {
		return 0, err
	}
	n, err := s.Messages.MarkConversationRead(ctx, conv.ID, callerID, s.now())
	if err != nil || n == 0 {
		return 0, err
	}
	if err := s.Conversations.DecrementUnread(ctx, conv.ID, callerID, n); err != nil {
		return n, fmt.Errorf("messaging: decrement unread: %w", err)
	}
	return n, nil
}

// Edit rewrites the body of the caller's own message.
func (s *Service) Edit(ctx context.Context, messageID domainmessaging.MessageID, callerID domainuser.ID, body string) (*domainmessaging.Message, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	normalized, err := domainmessaging.NormalizeBody(body)
	if err != nil {
		return nil, err
	}
	msg, err := s.Messages.ByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != callerID {
		return nil, domainmessaging.ErrNotSender
	}
	if msg.Deleted {
		return nil, domainmessaging.ErrMessageDeleted
	}
	now := s.now()
	changed, err := s.Messages.UpdateBody(ctx, messageID, normalized, now)
	if err != nil {
		return nil, err
	}
	if !changed {
		// Deleted between the read and the update.
		return nil, domainmessaging.ErrMessageDeleted
	}
	msg.Body = normalized
	msg.EditedAt = &now
	return msg, nil
}

// Delete soft-deletes the caller's own message. Deleting twice is a no-op.
func (s *Service) Delete(ctx context.Context, messageID domainmessaging.MessageID, callerID domainuser.ID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	msg, err := s.Messages.ByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID {
		return domainmessaging.ErrNotSender
	}
	changed, wasUnread, err := s.Messages.SoftDelete(ctx, messageID, s.now())
	if err != nil || !changed {
		return err
	}
	if wasUnread {
		if err := s.Conversations.DecrementUnread(ctx, msg.ConversationID, msg.ReceiverID, 1); err != nil {
			return fmt.Errorf("messaging: decrement unread: %w", err)
		}
	}
	return nil
}

type ListMessagesParams struct {
	ConversationID domainmessaging.ConversationID
	CallerID       domainuser.ID
	Limit          int
	Before         time.Time
}

// ListMessages returns a page of messages newest first, without deleted ones.
func (s *Service) ListMessages(ctx context.Context, params ListMessagesParams) (*domainmessaging.Conversation, []*domainmessaging.Message, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, nil, err
	}
	conv, err := s.participantConversation(ctx, params.ConversationID, params.CallerID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.Messages.ListByConversation(ctx, conv.ID, domainmessaging.ListMessagesParams{
		Limit:  PageSize(params.Limit),
		Before: params.Before,
	})
	if err != nil {
		return nil, nil, err
	}
	return conv, msgs, nil
}

// ListConversations returns the caller's conversations, most recent first.
func (s *Service) ListConversations(ctx context.Context, callerID domainuser.ID, limit, offset int) ([]*domainmessaging.Conversation, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if callerID == "" {
		return nil, domainmessaging.ErrParticipantRequired
	}
	if offset < 0 {
		offset = 0
	}
	return s.Conversations.ListForUser(ctx, callerID, PageSize(limit), offset)
}

// Conversation returns a conversation the caller takes part in.
func (s *Service) Conversation(ctx context.Context, id domainmessaging.ConversationID, callerID domainuser.ID) (*domainmessaging.Conversation, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	return s.participantConversation(ctx, id, callerID)
}

func (s *Service) participantConversation(ctx context.Context, id domainmessaging.ConversationID, callerID domainuser.ID) (*domainmessaging.Conversation, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, domainmessaging.ErrConversationNotFound
	}
	conv, err := s.Conversations.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !conv.Has(callerID) {
		return nil, domainmessaging.ErrNotParticipant
	}
	return conv, nil
}

func (s *Service) recordEvent(ctx context.Context, ev events.DomainEvent) {
	if s.Outbox == nil {
		return
	}
	if err := appoutbox.RecordDomainEvents(ctx, s.Outbox, s.Encoder, []events.DomainEvent{ev}); err != nil && s.Logger != nil {
		s.Logger.Warn("outbox record failed", "event", ev.EventName(), "aggregate", ev.AggregateID(), "error", err)
	}
}

func (s *Service) logError(msg string, m *domainmessaging.Message, err error) {
	if s.Logger != nil {
		s.Logger.Error(msg, "message_id", m.ID, "conversation_id", m.ConversationID, "error", err)
	}
}

func (s *Service) newID() string {
	if s.IDs != nil {
		return s.IDs()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// PageSize clamps a requested page size to the supported range.
func PageSize(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Resolver == nil:
		return errors.New("messaging: resolver required")
	case s.Conversations == nil:
		return errors.New("messaging: conversation repository required")
	case s.Messages == nil:
		return errors.New("messaging: message repository required")
	case s.Listings == nil:
		return errors.New("messaging: listing repository required")
	default:
		return nil
	}
}
