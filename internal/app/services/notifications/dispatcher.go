package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"campusmarket/internal/app/policies"
	domainlistings "campusmarket/internal/domain/listings"
	domainmessaging "campusmarket/internal/domain/messaging"
	domainreports "campusmarket/internal/domain/reports"
	domainuser "campusmarket/internal/domain/user"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultActiveThreshold = 5 * time.Minute
	previewLength          = 140
)

// Outcomes passed to Observe.
const (
	OutcomeSent          = "sent"
	OutcomeSkippedActive = "skipped_active"
	OutcomeFailed        = "failed"
	OutcomePanic         = "panic"
)

type ActivityChecker interface {
	IsActive(ctx context.Context, id domainuser.ID, threshold time.Duration) bool
}

type AdminDirectory interface {
	Emails() []string
}

// Dispatcher sends emails in the background. Callers never wait for it and
// never see its failures; nothing is retried.
type Dispatcher struct {
	Notifier        policies.Notifier
	Users           domainuser.Repository
	Listings        domainlistings.ListingRepository
	Activity        ActivityChecker
	Admins          AdminDirectory
	ActiveThreshold time.Duration
	Timeout         time.Duration
	BaseURL         string
	Logger          *slog.Logger
	Observe         func(template, outcome string)

	wg sync.WaitGroup
}

// MessageSent emails the receiver unless they were recently active.
func (d *Dispatcher) MessageSent(msg *domainmessaging.Message) {
	if msg == nil {
		return
	}
	snapshot := *msg
	d.Dispatch(policies.TemplateNewMessage, func(ctx context.Context) (string, error) {
		return d.newMessage(ctx, &snapshot)
	})
}

func (d *Dispatcher) ReportSubmitted(report *domainreports.Report) {
	if report == nil {
		return
	}
	snapshot := *report
	d.Dispatch(policies.TemplateReportSubmitted, func(ctx context.Context) (string, error) {
		return d.reportSubmitted(ctx, &snapshot)
	})
}

func (d *Dispatcher) ReportResolved(report *domainreports.Report) {
	if report == nil {
		return
	}
	snapshot := *report
	d.Dispatch(policies.TemplateReportResolved, func(ctx context.Context) (string, error) {
		return d.reportResolved(ctx, &snapshot)
	})
}

// Dispatch runs job on its own goroutine with a fresh context bounded by
// Timeout. job returns the outcome to record.
func (d *Dispatcher) Dispatch(template string, job func(ctx context.Context) (string, error)) {
	if d == nil || d.Notifier == nil || job == nil {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logError("notification panicked", template, fmt.Errorf("%v", r))
				d.observe(template, OutcomePanic)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout())
		defer cancel()
		outcome, err := job(ctx)
		if err != nil {
			d.logError("notification failed", template, err)
			d.observe(template, OutcomeFailed)
			return
		}
		d.observe(template, outcome)
	}()
}

// Wait blocks until every dispatched notification has finished.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

func (d *Dispatcher) newMessage(ctx context.Context, msg *domainmessaging.Message) (string, error) {
	if d.Activity != nil && d.Activity.IsActive(ctx, msg.ReceiverID, d.activeThreshold()) {
		return OutcomeSkippedActive, nil
	}
	if d.Users == nil {
		return "", errors.New("notifications: user repository required")
	}
	receiver, err := d.Users.ByID(ctx, msg.ReceiverID)
	if err != nil {
		return "", fmt.Errorf("load receiver: %w", err)
	}
	senderName := "A student"
	if sender, err := d.Users.ByID(ctx, msg.SenderID); err == nil {
		senderName = sender.Name
	}
	data := policies.NewMessageData{
		RecipientName:   receiver.Name,
		SenderName:      senderName,
		ListingTitle:    d.listingTitle(ctx, msg.ListingID),
		Preview:         msg.Preview(previewLength),
		ConversationURL: d.url("/messages/" + string(msg.ConversationID)),
	}
	if err := d.Notifier.Send(ctx, receiver.Email, policies.TemplateNewMessage, data); err != nil {
		return "", err
	}
	return OutcomeSent, nil
}

func (d *Dispatcher) reportSubmitted(ctx context.Context, report *domainreports.Report) (string, error) {
	if d.Admins == nil {
		return OutcomeSent, nil
	}
	data := policies.ReportSubmittedData{
		ReportID:     string(report.ID),
		ListingID:    string(report.ListingID),
		ListingTitle: d.listingTitle(ctx, report.ListingID),
		Reason:       report.Reason,
		ReviewURL:    d.url("/admin/reports"),
	}
	var errs []error
	for _, email := range d.Admins.Emails() {
		if err := d.Notifier.Send(ctx, email, policies.TemplateReportSubmitted, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", email, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return "", err
	}
	return OutcomeSent, nil
}

func (d *Dispatcher) reportResolved(ctx context.Context, report *domainreports.Report) (string, error) {
	if d.Users == nil {
		return "", errors.New("notifications: user repository required")
	}
	reporter, err := d.Users.ByID(ctx, report.ReporterID)
	if err != nil {
		return "", fmt.Errorf("load reporter: %w", err)
	}
	data := policies.ReportResolvedData{
		RecipientName: reporter.Name,
		ListingTitle:  d.listingTitle(ctx, report.ListingID),
		Status:        string(report.Status),
		Resolution:    report.Resolution,
	}
	if err := d.Notifier.Send(ctx, reporter.Email, policies.TemplateReportResolved, data); err != nil {
		return "", err
	}
	return OutcomeSent, nil
}

func (d *Dispatcher) listingTitle(ctx context.Context, id domainlistings.ListingID) string {
	if d.Listings == nil || id == "" {
		return "your listing"
	}
	listing, err := d.Listings.ByID(ctx, id)
	if err != nil {
		return "your listing"
	}
	return listing.Title
}

func (d *Dispatcher) url(path string) string {
	base := strings.TrimRight(d.BaseURL, "/")
	if base == "" {
		return path
	}
	return base + path
}

func (d *Dispatcher) timeout() time.Duration {
	if d.Timeout > 0 {
		return d.Timeout
	}
	return DefaultTimeout
}

func (d *Dispatcher) activeThreshold() time.Duration {
	if d.ActiveThreshold > 0 {
		return d.ActiveThreshold
	}
	return DefaultActiveThreshold
}

func (d *Dispatcher) observe(template, outcome string) {
	if d.Observe != nil {
		d.Observe(template, outcome)
	}
}

func (d *Dispatcher) logError(msg, template string, err error) {
	if d.Logger != nil {
		d.Logger.Error(msg, "template", template, "error", err)
	}
}
