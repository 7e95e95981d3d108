package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "campusmarket/internal/domain/listings"
	domainmessaging "campusmarket/internal/domain/messaging"
	domainuser "campusmarket/internal/domain/user"
)

// ConversationRepository enforces one conversation per (listing, pair) with a
// unique compound index. Counter updates are single-document operators.
type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{col: db.Collection(colConversations)}
}

func (r *ConversationRepository) Find(ctx context.Context, key domainmessaging.Key) (*domainmessaging.Conversation, error) {
	filter := bson.M{
		"listing_id":   string(key.ListingID),
		"participant1": string(key.Participant1),
		"participant2": string(key.Participant2),
	}
	return r.findOne(ctx, filter)
}

func (r *ConversationRepository) Create(ctx context.Context, conv *domainmessaging.Conversation) error {
	if _, err := r.col.InsertOne(ctx, newConversationDocument(conv)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainmessaging.ErrDuplicateConversation
		}
		return err
	}
	return nil
}

func (r *ConversationRepository) ByID(ctx context.Context, id domainmessaging.ConversationID) (*domainmessaging.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *ConversationRepository) findOne(ctx context.Context, filter bson.M) (*domainmessaging.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainmessaging.ErrConversationNotFound
		}
		return nil, err
	}
	return doc.toConversation(), nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, userID domainuser.ID, limit, offset int) ([]*domainmessaging.Conversation, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"participant1": string(userID)},
		bson.M{"participant2": string(userID)},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "last_activity_at", Value: -1}, {Key: "_id", Value: 1}})
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []conversationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainmessaging.Conversation, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toConversation())
	}
	return out, nil
}

func (r *ConversationRepository) RecordMessage(ctx context.Context, id domainmessaging.ConversationID, receiver domainuser.ID, at time.Time) error {
	ms := at.UnixMilli()
	for _, slot := range []struct{ participant, counter string }{
		{"participant1", "unread1"},
		{"participant2", "unread2"},
	} {
		res, err := r.col.UpdateOne(ctx,
			bson.M{"_id": string(id), slot.participant: string(receiver)},
			bson.M{
				"$inc": bson.M{slot.counter: 1},
				"$max": bson.M{"last_message_at": ms, "last_activity_at": ms},
			},
		)
		if err != nil {
			return err
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}
	return r.missingOrForeign(ctx, id)
}

// DecrementUnread clamps at zero inside an update pipeline.
func (r *ConversationRepository) DecrementUnread(ctx context.Context, id domainmessaging.ConversationID, participant domainuser.ID, n int) error {
	if n <= 0 {
		return nil
	}
	for _, slot := range []struct{ participant, counter string }{
		{"participant1", "unread1"},
		{"participant2", "unread2"},
	} {
		pipeline := mongo.Pipeline{
			{{Key: "$set", Value: bson.M{
				slot.counter: bson.M{"$max": bson.A{0, bson.M{"$subtract": bson.A{"$" + slot.counter, n}}}},
			}}},
		}
		res, err := r.col.UpdateOne(ctx, bson.M{"_id": string(id), slot.participant: string(participant)}, pipeline)
		if err != nil {
			return err
		}
		if res.MatchedCount > 0 {
			return nil
		}
	}
	return r.missingOrForeign(ctx, id)
}

func (r *ConversationRepository) missingOrForeign(ctx context.Context, id domainmessaging.ConversationID) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": string(id)}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return domainmessaging.ErrConversationNotFound
	}
	return domainmessaging.ErrNotParticipant
}

type conversationDocument struct {
	ID             string `bson:"_id"`
	ListingID      string `bson:"listing_id"`
	Participant1   string `bson:"participant1"`
	Participant2   string `bson:"participant2"`
	Unread1        int    `bson:"unread1"`
	Unread2        int    `bson:"unread2"`
	LastMessageAt  int64  `bson:"last_message_at"`
	LastActivityAt int64  `bson:"last_activity_at"`
	CreatedAt      int64  `bson:"created_at"`
}

func newConversationDocument(c *domainmessaging.Conversation) conversationDocument {
	activity := c.LastMessageAt
	if activity.IsZero() {
		activity = c.CreatedAt
	}
	return conversationDocument{
		ID:             string(c.ID),
		ListingID:      string(c.ListingID),
		Participant1:   string(c.Participant1),
		Participant2:   string(c.Participant2),
		Unread1:        c.Unread1,
		Unread2:        c.Unread2,
		LastMessageAt:  millis(c.LastMessageAt),
		LastActivityAt: millis(activity),
		CreatedAt:      millis(c.CreatedAt),
	}
}

func (d conversationDocument) toConversation() *domainmessaging.Conversation {
	return &domainmessaging.Conversation{
		ID:            domainmessaging.ConversationID(d.ID),
		ListingID:     domainlistings.ListingID(d.ListingID),
		Participant1:  domainuser.ID(d.Participant1),
		Participant2:  domainuser.ID(d.Participant2),
		Unread1:       d.Unread1,
		Unread2:       d.Unread2,
		LastMessageAt: timestampToTime(d.LastMessageAt),
		CreatedAt:     timestampToTime(d.CreatedAt),
	}
}

type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection(colMessages)}
}

func (r *MessageRepository) Insert(ctx context.Context, msg *domainmessaging.Message) error {
	_, err := r.col.InsertOne(ctx, newMessageDocument(msg))
	return err
}

func (r *MessageRepository) ByID(ctx context.Context, id domainmessaging.MessageID) (*domainmessaging.Message, error) {
	var doc messageDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainmessaging.ErrMessageNotFound
		}
		return nil, err
	}
	return doc.toMessage(), nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, id domainmessaging.ConversationID, params domainmessaging.ListMessagesParams) ([]*domainmessaging.Message, error) {
	filter := bson.M{"conversation_id": string(id)}
	if !params.IncludeDeleted {
		filter["deleted"] = false
	}
	if !params.Before.IsZero() {
		filter["created_at"] = bson.M{"$lt": params.Before.UnixMilli()}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if params.Limit > 0 {
		opts.SetLimit(int64(params.Limit))
	}
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainmessaging.Message, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toMessage())
	}
	return out, nil
}

func (r *MessageRepository) MarkRead(ctx context.Context, id domainmessaging.MessageID, at time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": string(id), "read_at": nil, "deleted": false},
		bson.M{"$set": bson.M{"read_at": at.UnixMilli()}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	return false, r.ensureExists(ctx, id)
}

func (r *MessageRepository) MarkConversationRead(ctx context.Context, id domainmessaging.ConversationID, receiver domainuser.ID, at time.Time) (int, error) {
	res, err := r.col.UpdateMany(ctx,
		bson.M{"conversation_id": string(id), "receiver_id": string(receiver), "read_at": nil, "deleted": false},
		bson.M{"$set": bson.M{"read_at": at.UnixMilli()}},
	)
	if err != nil {
		return 0, err
	}
	return int(res.ModifiedCount), nil
}

func (r *MessageRepository) UpdateBody(ctx context.Context, id domainmessaging.MessageID, body string, at time.Time) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": string(id), "deleted": false},
		bson.M{"$set": bson.M{"body": body, "edited_at": at.UnixMilli()}},
	)
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	return false, r.ensureExists(ctx, id)
}

// SoftDelete reads the pre-image so the caller learns whether the message
// still counted as unread.
func (r *MessageRepository) SoftDelete(ctx context.Context, id domainmessaging.MessageID, at time.Time) (bool, bool, error) {
	var before messageDocument
	err := r.col.FindOneAndUpdate(ctx,
		bson.M{"_id": string(id), "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "deleted_at": at.UnixMilli()}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err == nil {
		return true, before.ReadAt == nil, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return false, false, err
	}
	return false, false, r.ensureExists(ctx, id)
}

func (r *MessageRepository) ensureExists(ctx context.Context, id domainmessaging.MessageID) error {
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": string(id)}, options.Count().SetLimit(1))
	if err != nil {
		return err
	}
	if n == 0 {
		return domainmessaging.ErrMessageNotFound
	}
	return nil
}

type messageDocument struct {
	ID             string `bson:"_id"`
	ConversationID string `bson:"conversation_id"`
	SenderID       string `bson:"sender_id"`
	ReceiverID     string `bson:"receiver_id"`
	ListingID      string `bson:"listing_id"`
	Body           string `bson:"body"`
	ReadAt         *int64 `bson:"read_at"`
	EditedAt       *int64 `bson:"edited_at"`
	Deleted        bool   `bson:"deleted"`
	DeletedAt      *int64 `bson:"deleted_at"`
	CreatedAt      int64  `bson:"created_at"`
}

func newMessageDocument(m *domainmessaging.Message) messageDocument {
	return messageDocument{
		ID:             string(m.ID),
		ConversationID: string(m.ConversationID),
		SenderID:       string(m.SenderID),
		ReceiverID:     string(m.ReceiverID),
		ListingID:      string(m.ListingID),
		Body:           m.Body,
		ReadAt:         optionalMillis(m.ReadAt),
		EditedAt:       optionalMillis(m.EditedAt),
		Deleted:        m.Deleted,
		DeletedAt:      optionalMillis(m.DeletedAt),
		CreatedAt:      millis(m.CreatedAt),
	}
}

func (d messageDocument) toMessage() *domainmessaging.Message {
	return &domainmessaging.Message{
		ID:             domainmessaging.MessageID(d.ID),
		ConversationID: domainmessaging.ConversationID(d.ConversationID),
		SenderID:       domainuser.ID(d.SenderID),
		ReceiverID:     domainuser.ID(d.ReceiverID),
		ListingID:      domainlistings.ListingID(d.ListingID),
		Body:           d.Body,
		ReadAt:         optionalTime(d.ReadAt),
		EditedAt:       optionalTime(d.EditedAt),
		Deleted:        d.Deleted,
		DeletedAt:      optionalTime(d.DeletedAt),
		CreatedAt:      timestampToTime(d.CreatedAt),
	}
}

var (
	_ domainmessaging.ConversationRepository = (*ConversationRepository)(nil)
	_ domainmessaging.MessageRepository      = (*MessageRepository)(nil)
)
