package admin

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"

	authsvc "campusmarket/internal/app/services/auth"
	domainuser "campusmarket/internal/domain/user"
)

var (
	ErrNotAuthenticated = authsvc.ErrNotAuthenticated
	ErrNotAdmin         = errors.New("admin: admin access required")
)

// AdminOnly marks commands and queries that only allow-listed admins may run.
type AdminOnly interface {
	AdminOnly()
}

// Gate checks callers against the configured admin email allow-list.
type Gate struct {
	Users  domainuser.Repository
	Logger *slog.Logger

	emails map[string]struct{}
}

func NewGate(emails []string, users domainuser.Repository, logger *slog.Logger) *Gate {
	set := make(map[string]struct{}, len(emails))
	for _, email := range emails {
		email = domainuser.NormalizeEmail(email)
		if email == "" {
			continue
		}
		set[email] = struct{}{}
	}
	return &Gate{Users: users, Logger: logger, emails: set}
}

// IsAdmin reports allow-list membership, ignoring case. An empty list admits nobody.
func (g *Gate) IsAdmin(email string) bool {
	if g == nil || len(g.emails) == 0 {
		return false
	}
	email = domainuser.NormalizeEmail(email)
	if email == "" {
		return false
	}
	_, ok := g.emails[email]
	return ok
}

// IsAdminUser resolves the user's email and checks it. Lookup failures deny.
func (g *Gate) IsAdminUser(ctx context.Context, id domainuser.ID) bool {
	if g == nil || g.Users == nil || id == "" || len(g.emails) == 0 {
		return false
	}
	user, err := g.Users.ByID(ctx, id)
	if err != nil {
		if g.Logger != nil && !errors.Is(err, domainuser.ErrNotFound) {
			g.Logger.Warn("admin lookup failed", "user_id", id, "error", err)
		}
		return false
	}
	return g.IsAdmin(user.Email)
}

// VerifyAdmin returns the caller when it is an admin.
func (g *Gate) VerifyAdmin(ctx context.Context) (authsvc.Principal, error) {
	principal, err := authsvc.RequirePrincipal(ctx)
	if err != nil {
		return authsvc.Principal{}, err
	}
	if !g.IsAdmin(principal.Email) {
		return authsvc.Principal{}, ErrNotAdmin
	}
	return principal, nil
}

// Authorize lets non admin-only messages through and verifies the caller for
// the rest.
func (g *Gate) Authorize(ctx context.Context, message any) error {
	if _, ok := message.(AdminOnly); !ok {
		return nil
	}
	_, err := g.VerifyAdmin(ctx)
	return err
}

// Emails returns the allow-list sorted.
func (g *Gate) Emails() []string {
	if g == nil {
		return nil
	}
	out := make([]string, 0, len(g.emails))
	for email := range g.emails {
		out = append(out, email)
	}
	sort.Strings(out)
	return out
}

// ParseEmails splits a comma separated allow-list.
func ParseEmails(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
