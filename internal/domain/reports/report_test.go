package reports

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportResolveOnlyOnce(t *testing.T) {
	report, err := NewReport(CreateParams{ID: "r1", ReporterID: "u1", ListingID: "l1", Reason: " spam "})
	require.NoError(t, err)
	assert.Equal(t, "spam", report.Reason)
	assert.Equal(t, StatusPending, report.Status)

	require.NoError(t, report.Resolve("admin", "removed", time.Now()))
	assert.Equal(t, StatusResolved, report.Status)
	assert.ErrorIs(t, report.Dismiss("admin", "", time.Now()), ErrAlreadyClosed)

	names := []string{}
	for _, ev := range report.PendingEvents() {
		names = append(names, ev.EventName())
	}
	assert.Equal(t, []string{"report.submitted", "report.resolved"}, names)
}

func TestNewReportValidatesReason(t *testing.T) {
	_, err := NewReport(CreateParams{ID: "r1", ReporterID: "u1", ListingID: "l1", Reason: "   "})
	assert.ErrorIs(t, err, ErrReasonRequired)

	_, err = NewReport(CreateParams{ID: "r1", ReporterID: "u1", ListingID: "l1", Reason: strings.Repeat("x", 1001)})
	assert.ErrorIs(t, err, ErrReasonTooLong)
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Dismissed ")
	require.NoError(t, err)
	assert.Equal(t, StatusDismissed, status)

	_, err = ParseStatus("open")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
