package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincart "campusmarket/internal/domain/cart"
	domainlistings "campusmarket/internal/domain/listings"
	domainuser "campusmarket/internal/domain/user"
)

// CartRepository relies on the unique (user_id, listing_id) index.
type CartRepository struct {
	col *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{col: db.Collection(colCartItems)}
}

func (r *CartRepository) Add(ctx context.Context, item domaincart.Item) error {
	doc := cartDocument{
		UserID:    string(item.UserID),
		ListingID: string(item.ListingID),
		AddedAt:   millis(item.AddedAt),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domaincart.ErrAlreadyInCart
		}
		return err
	}
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, userID domainuser.ID, listingID domainlistings.ListingID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"user_id": string(userID), "listing_id": string(listingID)})
	return err
}

func (r *CartRepository) List(ctx context.Context, userID domainuser.ID) ([]domaincart.Item, error) {
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: -1}, {Key: "listing_id", Value: 1}})
	cursor, err := r.col.Find(ctx, bson.M{"user_id": string(userID)}, opts)
	if err != nil {
		return nil, err
	}
	var docs []cartDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domaincart.Item, 0, len(docs))
	for _, doc := range docs {
		out = append(out, domaincart.Item{
			UserID:    domainuser.ID(doc.UserID),
			ListingID: domainlistings.ListingID(doc.ListingID),
			AddedAt:   timestampToTime(doc.AddedAt),
		})
	}
	return out, nil
}

func (r *CartRepository) Clear(ctx context.Context, userID domainuser.ID) error {
	_, err := r.col.DeleteMany(ctx, bson.M{"user_id": string(userID)})
	return err
}

type cartDocument struct {
	UserID    string `bson:"user_id"`
	ListingID string `bson:"listing_id"`
	AddedAt   int64  `bson:"added_at"`
}

var _ domaincart.Repository = (*CartRepository)(nil)
