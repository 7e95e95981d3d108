package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/internal/app/dto"
	adminapp "campusmarket/internal/app/handlers/admin"
	"campusmarket/internal/app/middleware"
	"campusmarket/internal/app/queries"
	adminsvc "campusmarket/internal/app/services/admin"
	authsvc "campusmarket/internal/app/services/auth"
	"campusmarket/internal/app/services/messaging"
	domainlistings "campusmarket/internal/domain/listings"
	domainuser "campusmarket/internal/domain/user"
	"campusmarket/internal/infra/config"
	"campusmarket/internal/infra/obs"
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

type seqTokens struct {
	mu sync.Mutex
	n  int
}

func (g *seqTokens) NewToken() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("tok-%d", g.n), nil
}

// brokenProfiles rejects every profile write.
type brokenProfiles struct {
	*memory.UserRepository
}

func (brokenProfiles) Save(ctx context.Context, u *domainuser.User) error {
	return errors.New("profiles unavailable")
}

type apiFixture struct {
	store   *memory.Store
	auth    *authsvc.Service
	router  *gin.Engine
	mu      sync.Mutex
	now     time.Time
	seller  *authsvc.AuthResult
	buyer   *authsvc.AuthResult
	admin   *authsvc.AuthResult
	listing domainlistings.ListingID
}

func (f *apiFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *apiFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &apiFixture{store: memory.NewStore(), now: time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)}
	f.auth = &authsvc.Service{
		Accounts:   f.store.Accounts,
		Users:      f.store.Users,
		Sessions:   f.store.Sessions,
		Passwords:  plainHasher{},
		Tokens:     &seqTokens{},
		Academic:   domainuser.AcademicPolicy{},
		SessionTTL: 24 * time.Hour,
		Now:        f.clock,
	}
	ctx := context.Background()
	var err error
	f.seller, err = f.auth.Signup(ctx, authsvc.SignupParams{Email: "sam@mit.edu", Password: "password1", Name: "Sam"})
	require.NoError(t, err)
	f.buyer, err = f.auth.Signup(ctx, authsvc.SignupParams{Email: "bea@mit.edu", Password: "password1", Name: "Bea"})
	require.NoError(t, err)
	f.admin, err = f.auth.Signup(ctx, authsvc.SignupParams{Email: "root@mit.edu", Password: "password1", Name: "Root"})
	require.NoError(t, err)

	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          "l-1",
		Seller:      domainlistings.SellerID(f.seller.User.ID),
		Institution: "mit.edu",
		Title:       "Desk lamp",
		PriceCents:  1500,
		Now:         f.now,
	})
	require.NoError(t, err)
	listing.ClearEvents()
	require.NoError(t, f.store.Listings.Save(ctx, listing))
	f.listing = listing.ID

	gate := adminsvc.NewGate([]string{"root@mit.edu"}, f.store.Users, nil)
	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[adminapp.ListUsersQuery, dto.UserList](queryBus, adminapp.ListUsersQuery{}.Key(), &adminapp.ListUsersHandler{UoWFactory: f.store.Factory()})
	qs := middleware.ChainQueries(queryBus, middleware.QueryAuthorization(gate))

	svc := &messaging.Service{
		Resolver:      &messaging.Resolver{Conversations: f.store.Conversations, Now: f.clock},
		Conversations: f.store.Conversations,
		Messages:      f.store.Messages,
		Listings:      f.store.Listings,
		Users:         f.store.Users,
		Outbox:        f.store.Outbox,
		Now:           f.clock,
	}
	cookie := CookieSettings{TTL: 24 * time.Hour}
	guard := RouteGuard{Sessions: f.auth, LoginPath: "/login", Cookie: cookie}
	f.router = NewRouter(config.Config{}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Auth:  AuthHandler{Service: f.auth, Cookie: cookie},
		Chat:  ChatHandler{Service: svc},
		Admin: AdminHandler{Queries: qs, Gate: gate},
		Guard: guard.Handle,
	})
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(raw))
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGuardLeavesPublicPathsAlone(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardRedirectsBrowserToLogin(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations?limit=5", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login?next=%2Fapi%2Fv1%2Fconversations%3Flimit%3D5", rec.Header().Get("Location"))
}

func TestGuardRejectsAPICallsWithoutSession(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/v1/conversations", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "not_authenticated", body["code"])

	rec = f.do(t, http.MethodGet, "/api/v1/conversations", "no-such-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGuardRewritesCookieWhenSessionSlides(t *testing.T) {
	f := newAPIFixture(t)
	f.advance(13 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: f.buyer.Token})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	setCookie := rec.Header().Get("Set-Cookie")
	assert.Contains(t, setCookie, SessionCookieName+"="+f.buyer.Token)
	assert.Contains(t, setCookie, "HttpOnly")
}

func TestChatRoundTrip(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/messages", f.buyer.Token, gin.H{"listing_id": f.listing, "text": "Is it still available?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	sent := decode[dto.SentMessage](t, rec)
	assert.Equal(t, string(f.seller.User.ID), sent.Message.ReceiverID)
	convID := sent.Conversation.ID

	rec = f.do(t, http.MethodGet, "/api/v1/conversations", f.seller.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[dto.ConversationList](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 1, list.Items[0].UnreadCount)
	assert.Equal(t, string(f.buyer.User.ID), list.Items[0].OtherUserID)

	rec = f.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/read", f.seller.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"marked":1}`, rec.Body.String())

	f.advance(time.Minute)
	rec = f.do(t, http.MethodPost, "/api/v1/conversations/"+convID+"/messages", f.seller.Token, gin.H{"text": "Yes"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/api/v1/conversations/"+convID+"/messages", f.buyer.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[dto.ChatMessageList](t, rec)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Yes", page.Items[0].Text)
	assert.Nil(t, page.NextBefore)
}

func TestChatRejectsOutsiders(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/messages", f.buyer.Token, gin.H{"listing_id": f.listing, "text": "hello"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sent := decode[dto.SentMessage](t, rec)

	rec = f.do(t, http.MethodGet, "/api/v1/conversations/"+sent.Conversation.ID, f.admin.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/v1/messages/"+sent.Message.ID, f.seller.Token, gin.H{"text": "edited"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/messages", f.seller.Token, gin.H{"listing_id": f.listing, "text": "talking to myself"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatEditAndDelete(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/messages", f.buyer.Token, gin.H{"listing_id": f.listing, "text": "first"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sent := decode[dto.SentMessage](t, rec)

	rec = f.do(t, http.MethodPatch, "/api/v1/messages/"+sent.Message.ID, f.buyer.Token, gin.H{"text": "second"})
	require.Equal(t, http.StatusOK, rec.Code)
	edited := decode[dto.ChatMessage](t, rec)
	assert.Equal(t, "second", edited.Text)
	assert.NotNil(t, edited.EditedAt)

	rec = f.do(t, http.MethodDelete, "/api/v1/messages/"+sent.Message.ID, f.buyer.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/conversations", f.seller.Token, nil)
	list := decode[dto.ConversationList](t, rec)
	require.Len(t, list.Items, 1)
	assert.Zero(t, list.Items[0].UnreadCount)
}

func TestAdminRoutesRequireAllowListedEmail(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/admin/users", f.buyer.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/admin/users", f.admin.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	users := decode[dto.UserList](t, rec)
	assert.Equal(t, 3, users.Total)
}

func TestSignupReportsPartialProvisioning(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memory.NewStore()
	svc := &authsvc.Service{
		Accounts:  store.Accounts,
		Users:     brokenProfiles{UserRepository: store.Users},
		Sessions:  store.Sessions,
		Passwords: plainHasher{},
		Tokens:    &seqTokens{},
		Academic:  domainuser.AcademicPolicy{},
	}
	router := NewRouter(config.Config{}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Auth: AuthHandler{Service: svc},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/signup", strings.NewReader(`{"email":"ana@mit.edu","name":"Ana","password":"password1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["partial"])
	assert.Equal(t, "profile_provisioning_failed", body["code"])
	assert.NotEmpty(t, body["user_id"])
	assert.Empty(t, rec.Header().Get("Set-Cookie"))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"ana@mit.edu","password":"password1"}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body = decode[map[string]any](t, rec)
	assert.Equal(t, true, body["partial"])
	assert.Equal(t, "profile_provisioning_failed", body["code"])
	assert.NotEmpty(t, body["user_id"])
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}

func TestSignupRejectsNonAcademicEmail(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/v1/auth/signup", "", gin.H{"email": "joe@gmail.com", "name": "Joe", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("Set-Cookie"))
}
