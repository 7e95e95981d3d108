package reports

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"campusmarket/internal/domain/listings"
	"campusmarket/internal/domain/shared/events"
	"campusmarket/internal/domain/user"
)

var (
	ErrIDRequired       = errors.New("reports: id is required")
	ErrReporterRequired = errors.New("reports: reporter is required")
	ErrListingRequired  = errors.New("reports: listing is required")
	ErrReasonRequired   = errors.New("reports: reason is required")
	ErrReasonTooLong    = errors.New("reports: reason must be at most 1000 characters")
	ErrAlreadyClosed    = errors.New("reports: report is already closed")
	ErrDuplicatePending = errors.New("reports: a pending report for this listing already exists")
	ErrNotFound         = errors.New("reports: not found")
	ErrInvalidStatus    = errors.New("reports: unknown status")
)

const maxReasonLength = 1000

type ReportID string

type Status string

const (
	StatusPending   Status = "pending"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// ParseStatus accepts an empty value as "any status".
func ParseStatus(raw string) (Status, error) {
	value := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch value {
	case "", StatusPending, StatusResolved, StatusDismissed:
		return value, nil
	default:
		return "", ErrInvalidStatus
	}
}

type Report struct {
	ID         ReportID
	ReporterID user.ID
	ListingID  listings.ListingID
	Reason     string
	Status     Status
	ResolverID user.ID
	Resolution string
	CreatedAt  time.Time
	ResolvedAt time.Time
	events.EventRecorder
}

type CreateParams struct {
	ID         ReportID
	ReporterID user.ID
	ListingID  listings.ListingID
	Reason     string
	Now        time.Time
}

func NewReport(params CreateParams) (*Report, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.ReporterID)) == "" {
		return nil, ErrReporterRequired
	}
	if strings.TrimSpace(string(params.ListingID)) == "" {
		return nil, ErrListingRequired
	}
	reason := strings.TrimSpace(params.Reason)
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if utf8.RuneCountInString(reason) > maxReasonLength {
		return nil, ErrReasonTooLong
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	report := &Report{
		ID:         params.ID,
		ReporterID: params.ReporterID,
		ListingID:  params.ListingID,
		Reason:     reason,
		Status:     StatusPending,
		CreatedAt:  now.UTC(),
	}
	report.Record(ReportSubmittedEvent{
		ReportID:   report.ID,
		ReporterID: report.ReporterID,
		ListingID:  report.ListingID,
		Reason:     report.Reason,
		At:         report.CreatedAt,
	})
	return report, nil
}

func (r *Report) Resolve(by user.ID, note string, now time.Time) error {
	return r.close(StatusResolved, by, note, now)
}

func (r *Report) Dismiss(by user.ID, note string, now time.Time) error {
	return r.close(StatusDismissed, by, note, now)
}

func (r *Report) close(status Status, by user.ID, note string, now time.Time) error {
	if r.Status != StatusPending {
		return ErrAlreadyClosed
	}
	if now.IsZero() {
		now = time.Now()
	}
	r.Status = status
	r.ResolverID = by
	r.Resolution = strings.TrimSpace(note)
	r.ResolvedAt = now.UTC()
	r.Record(ReportResolvedEvent{
		ReportID:   r.ID,
		ReporterID: r.ReporterID,
		ListingID:  r.ListingID,
		Status:     r.Status,
		ResolverID: by,
		Resolution: r.Resolution,
		At:         r.ResolvedAt,
	})
	return nil
}

type ListParams struct {
	Status Status
	Limit  int
	Offset int
}

type Repository interface {
	// Create fails with ErrDuplicatePending when the reporter already has a
	// pending report on the same listing.
	Create(ctx context.Context, report *Report) error
	ByID(ctx context.Context, id ReportID) (*Report, error)
	Save(ctx context.Context, report *Report) error
	// List returns reports newest first with the total count before paging.
	List(ctx context.Context, params ListParams) ([]*Report, int, error)
}
