package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "campusmarket/internal/domain/auth"
	domainuser "campusmarket/internal/domain/user"
	"campusmarket/internal/infra/storage/memory"
)

type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func (plainHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return errors.New("mismatch")
	}
	return nil
}

type seqTokens struct{ n int }

func (g *seqTokens) NewToken() (string, error) {
	g.n++
	return "token-" + string(rune('a'+g.n)), nil
}

// flakyUsers fails profile writes while failSave is set.
type flakyUsers struct {
	*memory.UserRepository
	failSave bool
}

func (r *flakyUsers) Save(ctx context.Context, u *domainuser.User) error {
	if r.failSave {
		return errors.New("profiles table unavailable")
	}
	return r.UserRepository.Save(ctx, u)
}

type harness struct {
	svc      *Service
	accounts *memory.AccountStore
	users    *flakyUsers
	sessions *memory.SessionStore
	now      time.Time
}

func newHarness() *harness {
	h := &harness{
		accounts: memory.NewAccountStore(),
		users:    &flakyUsers{UserRepository: memory.NewUserRepository()},
		sessions: memory.NewSessionStore(),
		now:      time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
	}
	h.svc = &Service{
		Accounts:   h.accounts,
		Users:      h.users,
		Sessions:   h.sessions,
		Passwords:  plainHasher{},
		Tokens:     &seqTokens{},
		Academic:   domainuser.AcademicPolicy{},
		SessionTTL: 24 * time.Hour,
		Now:        func() time.Time { return h.now },
	}
	return h
}

func TestSignupCreatesAccountProfileAndSession(t *testing.T) {
	h := newHarness()
	res, err := h.svc.Signup(context.Background(), SignupParams{
		Email: " Ada@CS.Stanford.edu ", Password: "longenough", Name: "Ada", Username: "Ada_L",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada@cs.stanford.edu", res.User.Email)
	assert.Equal(t, "stanford.edu", res.User.Institution.Domain)
	assert.Equal(t, "ada_l", res.User.Username)
	assert.NotEmpty(t, res.Token)

	resolved, err := h.svc.ResolveToken(context.Background(), res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, resolved.User.ID)
}

func TestSignupRejectsBeforeAnyWrite(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	_, err := h.svc.Signup(ctx, SignupParams{Email: "someone@gmail.com", Password: "longenough", Name: "Someone"})
	assert.ErrorIs(t, err, domainuser.ErrNonAcademicEmail)

	_, err = h.svc.Signup(ctx, SignupParams{Email: "kid@mit.edu", Password: "short", Name: "Kid"})
	assert.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = h.svc.Signup(ctx, SignupParams{Email: "kid@mit.edu", Password: "longenough", Name: " "})
	assert.ErrorIs(t, err, domainuser.ErrNameRequired)

	for _, email := range []string{"someone@gmail.com", "kid@mit.edu"} {
		_, err := h.accounts.ByEmail(ctx, email)
		assert.ErrorIs(t, err, domainauth.ErrAccountNotFound, email)
		_, err = h.users.ByEmail(ctx, email)
		assert.ErrorIs(t, err, domainuser.ErrNotFound, email)
	}
}

func TestSignupDuplicates(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, err := h.svc.Signup(ctx, SignupParams{Email: "ada@mit.edu", Password: "longenough", Name: "Ada", Username: "ada"})
	require.NoError(t, err)

	_, err = h.svc.Signup(ctx, SignupParams{Email: "ADA@mit.edu", Password: "longenough", Name: "Ada 2"})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)

	_, err = h.svc.Signup(ctx, SignupParams{Email: "bob@mit.edu", Password: "longenough", Name: "Bob", Username: "ADA"})
	assert.ErrorIs(t, err, domainuser.ErrUsernameTaken)
}

func TestSignupProfileFailureIsPartialAndLoginRecovers(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.users.failSave = true

	_, err := h.svc.Signup(ctx, SignupParams{Email: "ada@mit.edu", Password: "longenough", Name: "Ada"})
	require.ErrorIs(t, err, ErrProfileProvisioning)
	var provErr *ProvisioningError
	require.ErrorAs(t, err, &provErr)
	assert.NotEmpty(t, provErr.UserID)

	account, err := h.accounts.ByEmail(ctx, "ada@mit.edu")
	require.NoError(t, err)
	assert.Equal(t, provErr.UserID, account.UserID)

	_, err = h.svc.Login(ctx, LoginParams{Email: "ada@mit.edu", Password: "longenough"})
	assert.ErrorIs(t, err, ErrProfileProvisioning)

	h.users.failSave = false
	res, err := h.svc.Login(ctx, LoginParams{Email: "ada@mit.edu", Password: "longenough"})
	require.NoError(t, err)
	assert.Equal(t, account.UserID, res.User.ID)
	assert.Equal(t, "Ada", res.User.Name)
	assert.Equal(t, "mit.edu", res.User.Institution.Domain)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	_, err := h.svc.Signup(ctx, SignupParams{Email: "ada@mit.edu", Password: "longenough", Name: "Ada"})
	require.NoError(t, err)

	_, err = h.svc.Login(ctx, LoginParams{Email: "ada@mit.edu", Password: "wrongpass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.svc.Login(ctx, LoginParams{Email: "nobody@mit.edu", Password: "longenough"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveTokenSlidesAndExpires(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	res, err := h.svc.Signup(ctx, SignupParams{Email: "ada@mit.edu", Password: "longenough", Name: "Ada"})
	require.NoError(t, err)

	h.now = h.now.Add(2 * time.Hour)
	resolved, err := h.svc.ResolveToken(ctx, res.Token)
	require.NoError(t, err)
	assert.False(t, resolved.Refreshed)

	h.now = h.now.Add(13 * time.Hour)
	resolved, err = h.svc.ResolveToken(ctx, res.Token)
	require.NoError(t, err)
	assert.True(t, resolved.Refreshed)
	assert.Equal(t, h.now.Add(24*time.Hour), resolved.Session.ExpiresAt)

	h.now = h.now.Add(25 * time.Hour)
	_, err = h.svc.ResolveToken(ctx, res.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	res, err := h.svc.Signup(ctx, SignupParams{Email: "ada@mit.edu", Password: "longenough", Name: "Ada"})
	require.NoError(t, err)

	require.NoError(t, h.svc.Logout(ctx, res.Token))
	_, err = h.svc.ResolveToken(ctx, res.Token)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	assert.NoError(t, h.svc.Logout(ctx, ""))
}

func TestPrincipalContext(t *testing.T) {
	_, ok := PrincipalFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u1", Email: "a@mit.edu"})
	p, ok := PrincipalFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, domainuser.ID("u1"), p.UserID)
}
