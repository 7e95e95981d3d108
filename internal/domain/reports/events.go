package reports

import (
	"time"

	"campusmarket/internal/domain/listings"
	"campusmarket/internal/domain/user"
)

type ReportSubmittedEvent struct {
	ReportID   ReportID           `json:"report_id"`
	ReporterID user.ID            `json:"reporter_id"`
	ListingID  listings.ListingID `json:"listing_id"`
	Reason     string             `json:"reason"`
	At         time.Time          `json:"at"`
}

func (e ReportSubmittedEvent) EventName() string     { return "report.submitted" }
func (e ReportSubmittedEvent) AggregateID() string   { return string(e.ReportID) }
func (e ReportSubmittedEvent) OccurredAt() time.Time { return e.At }

type ReportResolvedEvent struct {
	ReportID   ReportID           `json:"report_id"`
	ReporterID user.ID            `json:"reporter_id"`
	ListingID  listings.ListingID `json:"listing_id"`
	Status     Status             `json:"status"`
	ResolverID user.ID            `json:"resolver_id"`
	Resolution string             `json:"resolution,omitempty"`
	At         time.Time          `json:"at"`
}

func (e ReportResolvedEvent) EventName() string     { return "report.resolved" }
func (e ReportResolvedEvent) AggregateID() string   { return string(e.ReportID) }
func (e ReportResolvedEvent) OccurredAt() time.Time { return e.At }
