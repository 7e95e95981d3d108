package user

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrIDRequired       = errors.New("user: id is required")
	ErrEmailRequired    = errors.New("user: email is required")
	ErrNameRequired     = errors.New("user: name is required")
	ErrNameTooLong      = errors.New("user: name must be at most 80 characters")
	ErrInvalidUsername  = errors.New("user: username must be 3-30 characters of a-z, 0-9, '_' or '.'")
	ErrEmailAlreadyUsed = errors.New("user: email already used")
	ErrUsernameTaken    = errors.New("user: username already taken")
	ErrNotFound         = errors.New("user: not found")
)

const (
	maxNameLength     = 80
	minUsernameLength = 3
	maxUsernameLength = 30
)

type ID string

// Institution is the home university resolved from the email domain.
type Institution struct {
	Name   string
	Domain string
}

type User struct {
	ID           ID
	Email        string
	Name         string
	Username     string
	Institution  Institution
	LastActiveAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ListParams struct {
	Query  string
	Limit  int
	Offset int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	// ByUsername matches case-insensitively.
	ByUsername(ctx context.Context, username string) (*User, error)
	Save(ctx context.Context, user *User) error
	List(ctx context.Context, params ListParams) ([]*User, int, error)
}

// ActivityStore persists the last-active timestamp separately from profile edits.
type ActivityStore interface {
	// TouchActivity writes now only when the stored value is older than now-minInterval.
	// It reports whether a write happened.
	TouchActivity(ctx context.Context, id ID, now time.Time, minInterval time.Duration) (bool, error)
	LastActive(ctx context.Context, id ID) (time.Time, error)
}

type CreateParams struct {
	ID          ID
	Email       string
	Name        string
	Username    string
	Institution Institution
	CreatedAt   time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	name, err := normalizeName(params.Name)
	if err != nil {
		return nil, err
	}
	username := ""
	if strings.TrimSpace(params.Username) != "" {
		username, err = NormalizeUsername(params.Username)
		if err != nil {
			return nil, err
		}
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:          ID(id),
		Email:       email,
		Name:        name,
		Username:    username,
		Institution: params.Institution,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (u *User) UpdateName(name string, now time.Time) error {
	normalized, err := normalizeName(name)
	if err != nil {
		return err
	}
	u.Name = normalized
	u.touch(now)
	return nil
}

// SetUsername assigns a username; an empty value clears it.
func (u *User) SetUsername(username string, now time.Time) error {
	if strings.TrimSpace(username) == "" {
		u.Username = ""
		u.touch(now)
		return nil
	}
	normalized, err := NormalizeUsername(username)
	if err != nil {
		return err
	}
	u.Username = normalized
	u.touch(now)
	return nil
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

// NormalizeUsername lowercases and validates a username.
func NormalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	n := utf8.RuneCountInString(username)
	if n < minUsernameLength || n > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
		default:
			return "", ErrInvalidUsername
		}
	}
	return username, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrNameRequired
	}
	if utf8.RuneCountInString(trimmed) > maxNameLength {
		return "", ErrNameTooLong
	}
	return trimmed, nil
}
