package reports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	"campusmarket/internal/app/middleware"
	"campusmarket/internal/app/queries"
	adminsvc "campusmarket/internal/app/services/admin"
	authsvc "campusmarket/internal/app/services/auth"
	domainlistings "campusmarket/internal/domain/listings"
	domainreports "campusmarket/internal/domain/reports"
	domainuser "campusmarket/internal/domain/user"
	"campusmarket/internal/infra/storage/memory"
)

type recordingNotifier struct {
	mu        sync.Mutex
	submitted []domainreports.ReportID
	resolved  []domainreports.ReportID
}

func (n *recordingNotifier) ReportSubmitted(r *domainreports.Report) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitted = append(n.submitted, r.ID)
}

func (n *recordingNotifier) ReportResolved(r *domainreports.Report) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.resolved = append(n.resolved, r.ID)
}

type reportsFixture struct {
	store    *memory.Store
	notifier *recordingNotifier
	cmds     commands.Bus
	qs       queries.Bus
}

func newReportsFixture(t *testing.T) *reportsFixture {
	t.Helper()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	gate := adminsvc.NewGate([]string{"Admin@MIT.edu"}, store.Users, nil)
	now := func() time.Time { return time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC) }

	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          "l-1",
		Seller:      "seller",
		Institution: "mit.edu",
		Title:       "Graphing calculator",
		PriceCents:  4000,
		Now:         now(),
	})
	require.NoError(t, err)
	listing.ClearEvents()
	require.NoError(t, store.Listings.Save(context.Background(), listing))

	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler[SubmitReportCommand, *dto.Report](cmdBus, SubmitReportCommand{}.Key(), &SubmitReportHandler{Notifier: notifier, Outbox: store.Outbox, Now: now})
	commands.RegisterHandler[ResolveReportCommand, *dto.Report](cmdBus, ResolveReportCommand{}.Key(), &ResolveReportHandler{Notifier: notifier, Outbox: store.Outbox, Now: now})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[ListReportsQuery, dto.ReportList](queryBus, ListReportsQuery{}.Key(), &ListReportsHandler{UoWFactory: store.Factory()})

	validator := middleware.NewStructValidator()
	return &reportsFixture{
		store:    store,
		notifier: notifier,
		cmds: middleware.ChainCommands(cmdBus,
			middleware.Validation(validator),
			middleware.Authorization(gate),
			middleware.Transaction(store.Factory(), nil),
		),
		qs: middleware.ChainQueries(queryBus,
			middleware.QueryValidation(validator),
			middleware.QueryAuthorization(gate),
		),
	}
}

func asUser(id, email string) context.Context {
	return authsvc.WithPrincipal(context.Background(), authsvc.Principal{UserID: domainuser.ID(id), Email: email})
}

func TestSubmitReport(t *testing.T) {
	f := newReportsFixture(t)
	ctx := asUser("buyer", "buyer@mit.edu")

	report, err := commands.Dispatch[SubmitReportCommand, *dto.Report](ctx, f.cmds, SubmitReportCommand{ReporterID: "buyer", ListingID: "l-1", Reason: "  counterfeit  "})
	require.NoError(t, err)
	assert.Equal(t, "pending", report.Status)
	assert.Equal(t, "counterfeit", report.Reason)
	assert.Equal(t, []domainreports.ReportID{domainreports.ReportID(report.ID)}, f.notifier.submitted)

	_, err = commands.Dispatch[SubmitReportCommand, *dto.Report](ctx, f.cmds, SubmitReportCommand{ReporterID: "buyer", ListingID: "l-1", Reason: "again"})
	assert.ErrorIs(t, err, domainreports.ErrDuplicatePending)

	_, err = commands.Dispatch[SubmitReportCommand, *dto.Report](asUser("seller", "seller@mit.edu"), f.cmds, SubmitReportCommand{ReporterID: "seller", ListingID: "l-1", Reason: "mine"})
	assert.ErrorIs(t, err, ErrOwnListing)

	_, err = commands.Dispatch[SubmitReportCommand, *dto.Report](ctx, f.cmds, SubmitReportCommand{ReporterID: "buyer", ListingID: "l-1"})
	assert.ErrorIs(t, err, middleware.ErrValidation)

	pending := f.store.Outbox.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, "report.submitted", pending[0].Name)
}

func TestAdminOnlyReportOperations(t *testing.T) {
	f := newReportsFixture(t)
	report, err := commands.Dispatch[SubmitReportCommand, *dto.Report](asUser("buyer", "buyer@mit.edu"), f.cmds, SubmitReportCommand{ReporterID: "buyer", ListingID: "l-1", Reason: "scam"})
	require.NoError(t, err)

	_, err = queries.Ask[ListReportsQuery, dto.ReportList](context.Background(), f.qs, ListReportsQuery{})
	assert.ErrorIs(t, err, authsvc.ErrNotAuthenticated)

	_, err = queries.Ask[ListReportsQuery, dto.ReportList](asUser("buyer", "buyer@mit.edu"), f.qs, ListReportsQuery{})
	assert.ErrorIs(t, err, adminsvc.ErrNotAdmin)

	_, err = commands.Dispatch[ResolveReportCommand, *dto.Report](asUser("buyer", "buyer@mit.edu"), f.cmds, ResolveReportCommand{ReportID: report.ID, AdminID: "buyer", Action: ActionResolve})
	assert.ErrorIs(t, err, adminsvc.ErrNotAdmin)

	admin := asUser("root", "admin@mit.edu")
	list, err := queries.Ask[ListReportsQuery, dto.ReportList](admin, f.qs, ListReportsQuery{Status: "pending"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, report.ID, list.Items[0].ID)
}

func TestResolveReportRemovesListing(t *testing.T) {
	f := newReportsFixture(t)
	report, err := commands.Dispatch[SubmitReportCommand, *dto.Report](asUser("buyer", "buyer@mit.edu"), f.cmds, SubmitReportCommand{ReporterID: "buyer", ListingID: "l-1", Reason: "stolen goods"})
	require.NoError(t, err)

	admin := asUser("root", "admin@mit.edu")
	resolved, err := commands.Dispatch[ResolveReportCommand, *dto.Report](admin, f.cmds, ResolveReportCommand{
		ReportID:      report.ID,
		AdminID:       "root",
		Action:        ActionResolve,
		Note:          "confirmed",
		RemoveListing: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "resolved", resolved.Status)
	assert.Equal(t, "root", resolved.ResolverID)

	listing, err := f.store.Listings.ByID(context.Background(), "l-1")
	require.NoError(t, err)
	assert.Equal(t, domainlistings.ListingRemoved, listing.State)

	_, err = commands.Dispatch[ResolveReportCommand, *dto.Report](admin, f.cmds, ResolveReportCommand{ReportID: report.ID, AdminID: "root", Action: ActionDismiss})
	assert.ErrorIs(t, err, domainreports.ErrAlreadyClosed)

	names := make([]string, 0)
	for _, rec := range f.store.Outbox.Pending() {
		names = append(names, rec.Name)
	}
	assert.ElementsMatch(t, []string{"report.submitted", "listing.removed", "report.resolved"}, names)
	assert.Len(t, f.notifier.resolved, 1)

	// A resolved report frees the reporter to file a new one.
	_, err = commands.Dispatch[SubmitReportCommand, *dto.Report](asUser("buyer", "buyer@mit.edu"), f.cmds, SubmitReportCommand{ReporterID: "buyer", ListingID: "l-1", Reason: "still listed elsewhere"})
	require.NoError(t, err)
}
