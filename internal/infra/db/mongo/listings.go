package mongo

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "campusmarket/internal/domain/listings"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(colListings)}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainlistings.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save writes the listing when the stored version still matches.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	if listing == nil || listing.ID == "" {
		return domainlistings.ErrIDRequired
	}
	doc := newListingDocument(listing)
	filter := bson.M{"_id": doc.ID, "version": listing.Version}
	doc.Version = listing.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	listing.Version = doc.Version
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params domainlistings.SearchParams) (domainlistings.SearchResult, error) {
	opts := params.Normalized()
	filter := searchFilter(opts)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}

	sort := bson.D{}
	switch opts.Sort {
	case domainlistings.SortByPriceAsc:
		sort = append(sort, bson.E{Key: "price_cents", Value: 1})
	case domainlistings.SortByPriceDesc:
		sort = append(sort, bson.E{Key: "price_cents", Value: -1})
	}
	sort = append(sort, bson.E{Key: "created_at", Value: -1}, bson.E{Key: "_id", Value: 1})
	findOpts := options.Find().SetSort(sort).SetSkip(int64(opts.Offset)).SetLimit(int64(opts.Limit))

	cursor, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return domainlistings.SearchResult{}, err
	}
	var docs []listingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return domainlistings.SearchResult{}, err
	}
	items := make([]*domainlistings.Listing, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toAggregate())
	}
	return domainlistings.SearchResult{Items: items, Total: int(total)}, nil
}

func searchFilter(p domainlistings.SearchParams) bson.M {
	filter := bson.M{}
	states := make([]string, 0, len(p.States))
	for _, s := range p.States {
		states = append(states, string(s))
	}
	switch {
	case p.OnlyActive:
		filter["state"] = string(domainlistings.ListingActive)
	case len(states) > 0:
		filter["state"] = bson.M{"$in": states}
	}
	if p.Institution != "" {
		filter["institution"] = p.Institution
	}
	if p.Seller != "" {
		filter["seller_id"] = string(p.Seller)
	}
	if p.Category != "" {
		filter["category"] = p.Category
	}
	price := bson.M{}
	if p.PriceMinCents > 0 {
		price["$gte"] = p.PriceMinCents
	}
	if p.PriceMaxCents > 0 {
		price["$lte"] = p.PriceMaxCents
	}
	if len(price) > 0 {
		filter["price_cents"] = price
	}
	if p.Query != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(p.Query), "$options": "i"}
		filter["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"description": pattern}}
	}
	return filter
}

type listingDocument struct {
	ID          string   `bson:"_id"`
	SellerID    string   `bson:"seller_id"`
	Institution string   `bson:"institution"`
	Title       string   `bson:"title"`
	Description string   `bson:"description"`
	PriceCents  int64    `bson:"price_cents"`
	Category    string   `bson:"category"`
	Condition   string   `bson:"condition"`
	Photos      []string `bson:"photos"`
	State       string   `bson:"state"`
	CreatedAt   int64    `bson:"created_at"`
	UpdatedAt   int64    `bson:"updated_at"`
	Version     int64    `bson:"version"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:          string(l.ID),
		SellerID:    string(l.Seller),
		Institution: l.Institution,
		Title:       l.Title,
		Description: l.Description,
		PriceCents:  l.PriceCents,
		Category:    l.Category,
		Condition:   string(l.Condition),
		Photos:      append([]string(nil), l.Photos...),
		State:       string(l.State),
		CreatedAt:   millis(l.CreatedAt),
		UpdatedAt:   millis(l.UpdatedAt),
		Version:     l.Version,
	}
}

func (d listingDocument) toAggregate() *domainlistings.Listing {
	return &domainlistings.Listing{
		ID:          domainlistings.ListingID(d.ID),
		Seller:      domainlistings.SellerID(d.SellerID),
		Institution: d.Institution,
		Title:       d.Title,
		Description: d.Description,
		PriceCents:  d.PriceCents,
		Category:    d.Category,
		Condition:   domainlistings.Condition(d.Condition),
		Photos:      d.Photos,
		State:       domainlistings.ListingState(d.State),
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
		Version:     d.Version,
	}
}

var _ domainlistings.ListingRepository = (*ListingRepository)(nil)
