package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	domainauth "campusmarket/internal/domain/auth"
	domainuser "campusmarket/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrPasswordTooLong    = errors.New("auth: password must be at most 72 bytes")
	// ErrProfileProvisioning means the account exists but its profile row
	// could not be written. Signing in again retries provisioning.
	ErrProfileProvisioning = errors.New("auth: account created but profile provisioning failed")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type TokenGenerator interface {
	NewToken() (string, error)
}

type InstitutionResolver interface {
	ResolveInstitution(email string) (domainuser.Institution, error)
}

type Service struct {
	Accounts   domainauth.AccountStore
	Users      domainuser.Repository
	Sessions   domainauth.SessionStore
	Passwords  PasswordHasher
	Tokens     TokenGenerator
	Academic   InstitutionResolver
	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

type SignupParams struct {
	Email    string
	Password string
	Name     string
	Username string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User  *domainuser.User
	Token string
}

type ResolveResult struct {
	User      *domainuser.User
	Session   *domainauth.Session
	Refreshed bool
}

// ProvisioningError carries the id of the account whose profile is missing.
type ProvisioningError struct {
	UserID domainuser.ID
	Err    error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s: %v", ErrProfileProvisioning.Error(), e.Err)
}

func (e *ProvisioningError) Unwrap() []error { return []error{ErrProfileProvisioning, e.Err} }

// Signup validates everything it can before the first write so a rejected
// request leaves no trace. Account and profile are separate writes.
func (s *Service) Signup(ctx context.Context, params SignupParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	institution, err := s.Academic.ResolveInstitution(email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, domainuser.ErrNameRequired
	}
	if err := s.validatePassword(params.Password); err != nil {
		return nil, err
	}
	username := ""
	if strings.TrimSpace(params.Username) != "" {
		username, err = domainuser.NormalizeUsername(params.Username)
		if err != nil {
			return nil, err
		}
		if _, err := s.Users.ByUsername(ctx, username); err == nil {
			return nil, domainuser.ErrUsernameTaken
		} else if !errors.Is(err, domainuser.ErrNotFound) {
			return nil, err
		}
	}
	if _, err := s.Accounts.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainauth.ErrAccountNotFound) {
		return nil, err
	}

	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	account, err := domainauth.NewAccount(domainauth.CreateAccountParams{
		UserID:       domainuser.ID(uuid.NewString()),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Username:     username,
		Now:          s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domainauth.ErrAccountExists) {
			return nil, domainuser.ErrEmailAlreadyUsed
		}
		return nil, err
	}

	user, err := s.provisionProfile(ctx, account, institution)
	if err != nil {
		return nil, err
	}
	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.logInfo("user signed up", "user_id", user.ID, "institution", institution.Domain)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	account, err := s.Accounts.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainauth.ErrAccountNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(account.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.Users.ByID(ctx, account.UserID)
	if errors.Is(err, domainuser.ErrNotFound) {
		institution, resolveErr := s.Academic.ResolveInstitution(account.Email)
		if resolveErr != nil {
			return nil, resolveErr
		}
		user, err = s.provisionProfile(ctx, account, institution)
		if err == nil {
			s.logInfo("profile provisioned on login", "user_id", user.ID)
		}
	}
	if err != nil {
		return nil, err
	}

	token, err := s.issueSession(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.logInfo("user authenticated", "user_id", user.ID)
	return &AuthResult{User: user, Token: token}, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, domainauth.Token(token)); err != nil {
		return err
	}
	s.logInfo("session terminated")
	return nil
}

// ResolveToken validates a bearer token and slides its expiry once less than
// half of the TTL remains.
func (s *Service) ResolveToken(ctx context.Context, token string) (*ResolveResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domainauth.ErrTokenRequired
	}
	session, err := s.Sessions.Get(ctx, domainauth.Token(token))
	if err != nil {
		return nil, err
	}
	now := s.now()
	if session.Expired(now) {
		_ = s.Sessions.Delete(ctx, session.Token)
		return nil, domainauth.ErrSessionNotFound
	}
	user, err := s.Users.ByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}

	result := &ResolveResult{User: user, Session: session}
	ttl := s.sessionTTL()
	if session.NeedsRefresh(now, ttl) {
		session.Extend(now, ttl)
		if err := s.Sessions.Save(ctx, session); err != nil {
			if s.Logger != nil {
				s.Logger.Warn("session refresh failed", "user_id", user.ID, "error", err)
			}
		} else {
			result.Refreshed = true
		}
	}
	return result, nil
}

func (s *Service) provisionProfile(ctx context.Context, account *domainauth.Account, institution domainuser.Institution) (*domainuser.User, error) {
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:          account.UserID,
		Email:       account.Email,
		Name:        account.Name,
		Username:    account.Username,
		Institution: institution,
		CreatedAt:   s.now(),
	})
	if err == nil {
		err = s.Users.Save(ctx, user)
	}
	if err != nil {
		if s.Logger != nil {
			s.Logger.Error("profile provisioning failed", "user_id", account.UserID, "error", err)
		}
		return nil, &ProvisioningError{UserID: account.UserID, Err: err}
	}
	return user, nil
}

func (s *Service) issueSession(ctx context.Context, userID domainuser.ID) (string, error) {
	token, err := s.Tokens.NewToken()
	if err != nil {
		return "", err
	}
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		Token:  domainauth.Token(token),
		UserID: userID,
		TTL:    s.sessionTTL(),
		Now:    s.now(),
	})
	if err != nil {
		return "", err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Service) sessionTTL() time.Duration {
	if s.SessionTTL > 0 {
		return s.SessionTTL
	}
	return 7 * 24 * time.Hour
}

func (s *Service) validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Info(msg, args...)
	}
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Accounts == nil:
		return errors.New("auth: account store required")
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Sessions == nil:
		return errors.New("auth: session store required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token generator required")
	case s.Academic == nil:
		return errors.New("auth: academic policy required")
	default:
		return nil
	}
}
