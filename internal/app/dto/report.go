package dto

import (
	"time"

	domainreports "campusmarket/internal/domain/reports"
)

type Report struct {
	ID         string     `json:"id"`
	ReporterID string     `json:"reporter_id"`
	ListingID  string     `json:"listing_id"`
	Reason     string     `json:"reason"`
	Status     string     `json:"status"`
	ResolverID string     `json:"resolver_id,omitempty"`
	Resolution string     `json:"resolution,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

type ReportList struct {
	Items []Report `json:"items"`
	Total int      `json:"total"`
}

func MapReport(report *domainreports.Report) Report {
	if report == nil {
		return Report{}
	}
	out := Report{
		ID:         string(report.ID),
		ReporterID: string(report.ReporterID),
		ListingID:  string(report.ListingID),
		Reason:     report.Reason,
		Status:     string(report.Status),
		ResolverID: string(report.ResolverID),
		Resolution: report.Resolution,
		CreatedAt:  report.CreatedAt,
	}
	if !report.ResolvedAt.IsZero() {
		resolved := report.ResolvedAt
		out.ResolvedAt = &resolved
	}
	return out
}
