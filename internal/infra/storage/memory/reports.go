package memory

import (
	"context"
	"sort"
	"sync"

	domainlistings "campusmarket/internal/domain/listings"
	domainreports "campusmarket/internal/domain/reports"
	"campusmarket/internal/domain/shared/events"
	domainuser "campusmarket/internal/domain/user"
)

type pendingKey struct {
	reporter domainuser.ID
	listing  domainlistings.ListingID
}

// ReportRepository allows one pending report per reporter and listing.
type ReportRepository struct {
	mu      sync.RWMutex
	items   map[domainreports.ReportID]*domainreports.Report
	pending map[pendingKey]domainreports.ReportID
}

func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		items:   make(map[domainreports.ReportID]*domainreports.Report),
		pending: make(map[pendingKey]domainreports.ReportID),
	}
}

func (r *ReportRepository) Create(ctx context.Context, report *domainreports.Report) error {
	if report == nil || report.ID == "" {
		return domainreports.ErrIDRequired
	}
	key := pendingKey{reporter: report.ReporterID, listing: report.ListingID}
	r.mu.Lock()
	defer r.mu.Unlock()
	if report.Status == domainreports.StatusPending {
		if _, exists := r.pending[key]; exists {
			return domainreports.ErrDuplicatePending
		}
		r.pending[key] = report.ID
	}
	r.items[report.ID] = cloneReport(report)
	return nil
}

func (r *ReportRepository) ByID(ctx context.Context, id domainreports.ReportID) (*domainreports.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.items[id]
	if !ok {
		return nil, domainreports.ErrNotFound
	}
	return cloneReport(report), nil
}

func (r *ReportRepository) Save(ctx context.Context, report *domainreports.Report) error {
	if report == nil || report.ID == "" {
		return domainreports.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[report.ID]; !ok {
		return domainreports.ErrNotFound
	}
	key := pendingKey{reporter: report.ReporterID, listing: report.ListingID}
	if report.Status != domainreports.StatusPending && r.pending[key] == report.ID {
		delete(r.pending, key)
	}
	r.items[report.ID] = cloneReport(report)
	return nil
}

func (r *ReportRepository) List(ctx context.Context, params domainreports.ListParams) ([]*domainreports.Report, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*domainreports.Report, 0, len(r.items))
	for _, report := range r.items {
		if params.Status != "" && report.Status != params.Status {
			continue
		}
		matches = append(matches, report)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	total := len(matches)
	page := paginate(matches, params.Offset, params.Limit)
	out := make([]*domainreports.Report, 0, len(page))
	for _, report := range page {
		out = append(out, cloneReport(report))
	}
	return out, total, nil
}

func cloneReport(r *domainreports.Report) *domainreports.Report {
	copyReport := *r
	copyReport.EventRecorder = events.EventRecorder{}
	return &copyReport
}

var _ domainreports.Repository = (*ReportRepository)(nil)
