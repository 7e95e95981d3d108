package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "campusmarket/internal/domain/listings"
	domainreports "campusmarket/internal/domain/reports"
	domainuser "campusmarket/internal/domain/user"
)

// ReportRepository leans on a partial unique index over pending reports, so
// a reporter may file again once the previous report is closed.
type ReportRepository struct {
	col *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{col: db.Collection(colReports)}
}

func (r *ReportRepository) Create(ctx context.Context, report *domainreports.Report) error {
	if report == nil || report.ID == "" {
		return domainreports.ErrIDRequired
	}
	if _, err := r.col.InsertOne(ctx, newReportDocument(report)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainreports.ErrDuplicatePending
		}
		return err
	}
	return nil
}

func (r *ReportRepository) ByID(ctx context.Context, id domainreports.ReportID) (*domainreports.Report, error) {
	var doc reportDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainreports.ErrNotFound
		}
		return nil, err
	}
	return doc.toReport(), nil
}

func (r *ReportRepository) Save(ctx context.Context, report *domainreports.Report) error {
	if report == nil || report.ID == "" {
		return domainreports.ErrIDRequired
	}
	doc := newReportDocument(report)
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return domainreports.ErrNotFound
	}
	return nil
}

func (r *ReportRepository) List(ctx context.Context, params domainreports.ListParams) ([]*domainreports.Report, int, error) {
	filter := bson.M{}
	if params.Status != "" {
		filter["status"] = string(params.Status)
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if params.Offset > 0 {
		opts.SetSkip(int64(params.Offset))
	}
	if params.Limit > 0 {
		opts.SetLimit(int64(params.Limit))
	}
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []reportDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]*domainreports.Report, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toReport())
	}
	return out, int(total), nil
}

type reportDocument struct {
	ID         string `bson:"_id"`
	ReporterID string `bson:"reporter_id"`
	ListingID  string `bson:"listing_id"`
	Reason     string `bson:"reason"`
	Status     string `bson:"status"`
	ResolverID string `bson:"resolver_id,omitempty"`
	Resolution string `bson:"resolution,omitempty"`
	CreatedAt  int64  `bson:"created_at"`
	ResolvedAt int64  `bson:"resolved_at,omitempty"`
}

func newReportDocument(r *domainreports.Report) reportDocument {
	return reportDocument{
		ID:         string(r.ID),
		ReporterID: string(r.ReporterID),
		ListingID:  string(r.ListingID),
		Reason:     r.Reason,
		Status:     string(r.Status),
		ResolverID: string(r.ResolverID),
		Resolution: r.Resolution,
		CreatedAt:  millis(r.CreatedAt),
		ResolvedAt: millis(r.ResolvedAt),
	}
}

func (d reportDocument) toReport() *domainreports.Report {
	return &domainreports.Report{
		ID:         domainreports.ReportID(d.ID),
		ReporterID: domainuser.ID(d.ReporterID),
		ListingID:  domainlistings.ListingID(d.ListingID),
		Reason:     d.Reason,
		Status:     domainreports.Status(d.Status),
		ResolverID: domainuser.ID(d.ResolverID),
		Resolution: d.Resolution,
		CreatedAt:  timestampToTime(d.CreatedAt),
		ResolvedAt: timestampToTime(d.ResolvedAt),
	}
}

var _ domainreports.Repository = (*ReportRepository)(nil)
