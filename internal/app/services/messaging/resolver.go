package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	domainlistings "campusmarket/internal/domain/listings"
	domainmessaging "campusmarket/internal/domain/messaging"
	domainuser "campusmarket/internal/domain/user"
)

// Resolver finds the single conversation between two users about a listing,
// creating it on first contact.
type Resolver struct {
	Conversations domainmessaging.ConversationRepository
	Logger        *slog.Logger
	IDs           func() string
	Now           func() time.Time
}

// GetOrCreate is commutative in its two user ids. Concurrent callers racing on
// the same key all get the row that won the insert.
func (r *Resolver) GetOrCreate(ctx context.Context, current, other domainuser.ID, listingID domainlistings.ListingID) (*domainmessaging.Conversation, error) {
	if r == nil || r.Conversations == nil {
		return nil, errors.New("messaging: conversation repository required")
	}
	key, err := domainmessaging.NewKey(listingID, current, other)
	if err != nil {
		return nil, err
	}

	conv, err := r.Conversations.Find(ctx, key)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, domainmessaging.ErrConversationNotFound) {
		return nil, fmt.Errorf("messaging: find conversation: %w", err)
	}

	conv = domainmessaging.NewConversation(domainmessaging.ConversationID(r.newID()), key, r.now())
	err = r.Conversations.Create(ctx, conv)
	switch {
	case err == nil:
		if r.Logger != nil {
			r.Logger.Debug("conversation created", "conversation_id", conv.ID, "listing_id", key.ListingID)
		}
		return conv, nil
	case errors.Is(err, domainmessaging.ErrDuplicateConversation):
		existing, findErr := r.Conversations.Find(ctx, key)
		if findErr != nil {
			return nil, fmt.Errorf("messaging: reread conversation after conflict: %w", findErr)
		}
		return existing, nil
	default:
		return nil, fmt.Errorf("messaging: create conversation: %w", err)
	}
}

func (r *Resolver) newID() string {
	if r.IDs != nil {
		return r.IDs()
	}
	return uuid.NewString()
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
