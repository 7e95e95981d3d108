package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"campusmarket/internal/app/policies"
)

var (
	ErrUnknownTemplate  = errors.New("email: unknown template")
	ErrRecipientMissing = errors.New("email: recipient is required")
)

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// APINotifier posts rendered emails to an HTTP email provider.
type APINotifier struct {
	endpoint string
	from     string
	client   *resty.Client
	logger   *slog.Logger
}

func NewAPINotifier(endpoint, apiKey, from string, logger *slog.Logger) (*APINotifier, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("email: api url is required")
	}
	client := resty.New().
		SetHeader("User-Agent", "CampusMarket/1.0").
		SetTimeout(15 * time.Second)
	if apiKey = strings.TrimSpace(apiKey); apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &APINotifier{endpoint: endpoint, from: from, client: client, logger: logger}, nil
}

func (n *APINotifier) Send(ctx context.Context, to string, template string, data any) error {
	if strings.TrimSpace(to) == "" {
		return ErrRecipientMissing
	}
	subject, body, err := Render(template, data)
	if err != nil {
		return err
	}
	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(sendRequest{From: n.from, To: []string{to}, Subject: subject, HTML: body}).
		Post(n.endpoint)
	if err != nil {
		return fmt.Errorf("email: send %s: %w", template, err)
	}
	if resp.IsError() {
		return fmt.Errorf("email: provider returned %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	if n.logger != nil {
		n.logger.Debug("email sent", "template", template, "to", to)
	}
	return nil
}

// LogNotifier renders emails and writes them to the log instead of sending.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Send(ctx context.Context, to string, template string, data any) error {
	if strings.TrimSpace(to) == "" {
		return ErrRecipientMissing
	}
	subject, _, err := Render(template, data)
	if err != nil {
		return err
	}
	if n.Logger != nil {
		n.Logger.InfoContext(ctx, "email suppressed", "template", template, "to", to, "subject", subject)
	}
	return nil
}

var (
	_ policies.Notifier = (*APINotifier)(nil)
	_ policies.Notifier = LogNotifier{}
)
