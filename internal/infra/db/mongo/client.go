package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colUsers         = "users"
	colAccounts      = "accounts"
	colSessions      = "sessions"
	colListings      = "listings"
	colCartItems     = "cart_items"
	colReports       = "reports"
	colConversations = "conversations"
	colMessages      = "messages"
	colIdempotency   = "app_idempotency"
)

var ErrConcurrentUpdate = errors.New("mongo: concurrent update detected")

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on for uniqueness.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{
				Keys: bson.D{{Key: "username_lower", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
					"username_lower": bson.M{"$gt": ""},
				}),
			},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colAccounts: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colSessions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
			{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
		},
		colListings: {
			{Keys: bson.D{{Key: "institution", Value: 1}, {Key: "state", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "seller_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colCartItems: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "listing_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colReports: {
			{
				Keys: bson.D{{Key: "reporter_id", Value: 1}, {Key: "listing_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
					"status": "pending",
				}),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colConversations: {
			{
				Keys:    bson.D{{Key: "listing_id", Value: 1}, {Key: "participant1", Value: 1}, {Key: "participant2", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "participant1", Value: 1}, {Key: "last_activity_at", Value: -1}}},
			{Keys: bson.D{{Key: "participant2", Value: 1}, {Key: "last_activity_at", Value: -1}}},
		},
		colMessages: {
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "read_at", Value: 1}}},
		},
	}
	for name, models := range specs {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func millis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timestampToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func optionalMillis(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func optionalTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms).UTC()
	return &t
}
