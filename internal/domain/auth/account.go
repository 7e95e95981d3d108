package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"campusmarket/internal/domain/user"
)

var (
	ErrAccountExists   = errors.New("auth: account already exists")
	ErrAccountNotFound = errors.New("auth: account not found")
	ErrHashRequired    = errors.New("auth: password hash is required")
)

// Account is the credential record owned by the auth provider. The public
// profile lives in the user repository and is provisioned after the account;
// Name and Username are kept so provisioning can be retried at login.
type Account struct {
	UserID       user.ID
	Email        string
	PasswordHash string
	Name         string
	Username     string
	CreatedAt    time.Time
}

type CreateAccountParams struct {
	UserID       user.ID
	Email        string
	PasswordHash string
	Name         string
	Username     string
	Now          time.Time
}

func NewAccount(params CreateAccountParams) (*Account, error) {
	if strings.TrimSpace(string(params.UserID)) == "" {
		return nil, ErrUserRequired
	}
	email := user.NormalizeEmail(params.Email)
	if email == "" {
		return nil, user.ErrEmailRequired
	}
	if params.PasswordHash == "" {
		return nil, ErrHashRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return &Account{
		UserID:       params.UserID,
		Email:        email,
		PasswordHash: params.PasswordHash,
		Name:         strings.TrimSpace(params.Name),
		Username:     strings.TrimSpace(params.Username),
		CreatedAt:    now.UTC(),
	}, nil
}

type AccountStore interface {
	// Create fails with ErrAccountExists when the email is taken.
	Create(ctx context.Context, account *Account) error
	ByEmail(ctx context.Context, email string) (*Account, error)
}
