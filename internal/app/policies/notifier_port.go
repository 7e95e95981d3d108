package policies

import "context"

// Email templates understood by every Notifier.
const (
	TemplateNewMessage      = "new_message"
	TemplateReportSubmitted = "report_submitted"
	TemplateReportResolved  = "report_resolved"
)

// Notifier sends a transactional email rendered from template and data.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}

type NewMessageData struct {
	RecipientName   string
	SenderName      string
	ListingTitle    string
	Preview         string
	ConversationURL string
}

type ReportSubmittedData struct {
	ReportID     string
	ListingID    string
	ListingTitle string
	Reason       string
	ReviewURL    string
}

type ReportResolvedData struct {
	RecipientName string
	ListingTitle  string
	Status        string
	Resolution    string
}
