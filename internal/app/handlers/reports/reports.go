package reports

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	"campusmarket/internal/app/handlers/support"
	"campusmarket/internal/app/outbox"
	"campusmarket/internal/app/queries"
	"campusmarket/internal/app/uow"
	domainlistings "campusmarket/internal/domain/listings"
	domainreports "campusmarket/internal/domain/reports"
	"campusmarket/internal/domain/shared/events"
	domainuser "campusmarket/internal/domain/user"
)

const (
	submitReportKey  = "reports.submit"
	listReportsKey   = "admin.reports.list"
	resolveReportKey = "admin.reports.resolve"

	ActionResolve = "resolve"
	ActionDismiss = "dismiss"
)

var ErrOwnListing = errors.New("reports: cannot report your own listing")

// Notifier is told about report lifecycle changes. Calls must not block.
type Notifier interface {
	ReportSubmitted(report *domainreports.Report)
	ReportResolved(report *domainreports.Report)
}

type SubmitReportCommand struct {
	ReporterID string `validate:"required"`
	ListingID  string `validate:"required"`
	Reason     string `validate:"required,max=1000"`
}

func (c SubmitReportCommand) Key() string { return submitReportKey }

type SubmitReportHandler struct {
	Notifier Notifier
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *SubmitReportHandler) Handle(ctx context.Context, cmd SubmitReportCommand) (*dto.Report, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	listing, err := unit.Listings().ByID(ctx, domainlistings.ListingID(cmd.ListingID))
	if err != nil {
		return nil, err
	}
	if listing.Seller == domainlistings.SellerID(cmd.ReporterID) {
		return nil, ErrOwnListing
	}
	report, err := domainreports.NewReport(domainreports.CreateParams{
		ID:         domainreports.ReportID(uuid.NewString()),
		ReporterID: domainuser.ID(cmd.ReporterID),
		ListingID:  listing.ID,
		Reason:     cmd.Reason,
		Now:        support.Now(h.Now),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Reports().Create(ctx, report); err != nil {
		return nil, err
	}
	support.RecordEvents(ctx, h.Outbox, h.Encoder, h.Logger, report)
	if h.Notifier != nil {
		h.Notifier.ReportSubmitted(report)
	}
	if h.Logger != nil {
		h.Logger.Info("report submitted", "report_id", report.ID, "listing_id", report.ListingID)
	}
	result := dto.MapReport(report)
	return &result, nil
}

type ListReportsQuery struct {
	Status string `validate:"omitempty,oneof=pending resolved dismissed"`
	Limit  int
	Offset int
}

func (q ListReportsQuery) Key() string { return listReportsKey }
func (ListReportsQuery) AdminOnly()    {}

type ListReportsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListReportsHandler) Handle(ctx context.Context, q ListReportsQuery) (dto.ReportList, error) {
	status, err := domainreports.ParseStatus(q.Status)
	if err != nil {
		return dto.ReportList{}, err
	}
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.ReportList{}, err
	}
	defer release()

	limit := q.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	items, total, err := unit.Reports().List(ctx, domainreports.ListParams{Status: status, Limit: limit, Offset: max(q.Offset, 0)})
	if err != nil {
		return dto.ReportList{}, err
	}
	out := dto.ReportList{Items: make([]dto.Report, 0, len(items)), Total: total}
	for _, report := range items {
		out.Items = append(out.Items, dto.MapReport(report))
	}
	return out, nil
}

// ResolveReportCommand closes a pending report. RemoveListing also takes the
// reported listing down when resolving.
type ResolveReportCommand struct {
	ReportID      string `validate:"required"`
	AdminID       string `validate:"required"`
	Action        string `validate:"required,oneof=resolve dismiss"`
	Note          string `validate:"max=1000"`
	RemoveListing bool
}

func (c ResolveReportCommand) Key() string { return resolveReportKey }
func (ResolveReportCommand) AdminOnly()    {}

type ResolveReportHandler struct {
	Notifier Notifier
	Outbox   outbox.Outbox
	Encoder  outbox.EventEncoder
	Logger   *slog.Logger
	Now      func() time.Time
}

func (h *ResolveReportHandler) Handle(ctx context.Context, cmd ResolveReportCommand) (*dto.Report, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	report, err := unit.Reports().ByID(ctx, domainreports.ReportID(cmd.ReportID))
	if err != nil {
		return nil, err
	}
	now := support.Now(h.Now)
	adminID := domainuser.ID(cmd.AdminID)
	switch cmd.Action {
	case ActionDismiss:
		err = report.Dismiss(adminID, cmd.Note, now)
	default:
		err = report.Resolve(adminID, cmd.Note, now)
	}
	if err != nil {
		return nil, err
	}

	var sources []events.Source
	if cmd.RemoveListing && cmd.Action != ActionDismiss {
		listing, err := unit.Listings().ByID(ctx, report.ListingID)
		if err != nil && !errors.Is(err, domainlistings.ErrNotFound) {
			return nil, err
		}
		if listing != nil {
			if err := listing.Remove(cmd.AdminID, "report "+cmd.ReportID, now); err != nil {
				return nil, err
			}
			if err := unit.Listings().Save(ctx, listing); err != nil {
				return nil, err
			}
			sources = append(sources, listing)
		}
	}
	if err := unit.Reports().Save(ctx, report); err != nil {
		return nil, err
	}
	sources = append(sources, report)
	support.RecordEvents(ctx, h.Outbox, h.Encoder, h.Logger, sources...)
	if h.Notifier != nil {
		h.Notifier.ReportResolved(report)
	}
	if h.Logger != nil {
		h.Logger.Info("report closed", "report_id", report.ID, "status", report.Status, "admin_id", cmd.AdminID)
	}
	result := dto.MapReport(report)
	return &result, nil
}

var (
	_ commands.Handler[SubmitReportCommand, *dto.Report]  = (*SubmitReportHandler)(nil)
	_ commands.Handler[ResolveReportCommand, *dto.Report] = (*ResolveReportHandler)(nil)
	_ queries.Handler[ListReportsQuery, dto.ReportList]   = (*ListReportsHandler)(nil)
)
