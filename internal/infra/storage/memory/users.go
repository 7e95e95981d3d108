package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainauth "campusmarket/internal/domain/auth"
	domainuser "campusmarket/internal/domain/user"
)

// UserRepository stores profiles in memory. Not suitable for production.
// last_active_at lives in its own map so profile saves never clobber it.
type UserRepository struct {
	mu         sync.RWMutex
	byID       map[domainuser.ID]*domainuser.User
	byEmail    map[string]domainuser.ID
	byUsername map[string]domainuser.ID
	activity   map[domainuser.ID]time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:       make(map[domainuser.ID]*domainuser.User),
		byEmail:    make(map[string]domainuser.ID),
		byUsername: make(map[string]domainuser.ID),
		activity:   make(map[domainuser.ID]time.Time),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user, ok := r.byID[id]; ok {
		return r.clone(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[domainuser.NormalizeEmail(email)]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return r.clone(r.byID[id]), nil
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byUsername[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, domainuser.ErrNotFound
	}
	return r.clone(r.byID[id]), nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	emailKey := domainuser.NormalizeEmail(user.Email)
	if emailKey == "" {
		return domainuser.ErrEmailRequired
	}
	usernameKey := strings.ToLower(user.Username)

	r.mu.Lock()
	defer r.mu.Unlock()
	if existingID, ok := r.byEmail[emailKey]; ok && existingID != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if usernameKey != "" {
		if existingID, ok := r.byUsername[usernameKey]; ok && existingID != user.ID {
			return domainuser.ErrUsernameTaken
		}
	}
	if prev, ok := r.byID[user.ID]; ok {
		delete(r.byEmail, domainuser.NormalizeEmail(prev.Email))
		if prev.Username != "" {
			delete(r.byUsername, strings.ToLower(prev.Username))
		}
	}
	r.byEmail[emailKey] = user.ID
	if usernameKey != "" {
		r.byUsername[usernameKey] = user.ID
	}
	stored := *user
	stored.LastActiveAt = time.Time{}
	r.byID[user.ID] = &stored
	return nil
}

func (r *UserRepository) List(ctx context.Context, params domainuser.ListParams) ([]*domainuser.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	query := strings.ToLower(strings.TrimSpace(params.Query))
	matches := make([]*domainuser.User, 0, len(r.byID))
	for _, user := range r.byID {
		if query != "" {
			haystack := strings.ToLower(user.Email + " " + user.Name + " " + user.Username)
			if !strings.Contains(haystack, query) {
				continue
			}
		}
		matches = append(matches, user)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	total := len(matches)
	page := paginate(matches, params.Offset, params.Limit)
	out := make([]*domainuser.User, 0, len(page))
	for _, user := range page {
		out = append(out, r.clone(user))
	}
	return out, total, nil
}

// TouchActivity writes now when the previous value is older than now-minInterval.
func (r *UserRepository) TouchActivity(ctx context.Context, id domainuser.ID, now time.Time, minInterval time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return false, domainuser.ErrNotFound
	}
	if prev, ok := r.activity[id]; ok && !prev.Before(now.Add(-minInterval)) {
		return false, nil
	}
	r.activity[id] = now.UTC()
	return true, nil
}

func (r *UserRepository) LastActive(ctx context.Context, id domainuser.ID) (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[id]; !ok {
		return time.Time{}, domainuser.ErrNotFound
	}
	return r.activity[id], nil
}

func (r *UserRepository) clone(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	copyUser := *u
	copyUser.LastActiveAt = r.activity[u.ID]
	return &copyUser
}

// AccountStore keeps credentials apart from profiles.
type AccountStore struct {
	mu      sync.RWMutex
	byEmail map[string]*domainauth.Account
}

func NewAccountStore() *AccountStore {
	return &AccountStore{byEmail: make(map[string]*domainauth.Account)}
}

func (s *AccountStore) Create(ctx context.Context, account *domainauth.Account) error {
	if account == nil {
		return domainauth.ErrUserRequired
	}
	key := domainuser.NormalizeEmail(account.Email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[key]; ok {
		return domainauth.ErrAccountExists
	}
	stored := *account
	s.byEmail[key] = &stored
	return nil
}

func (s *AccountStore) ByEmail(ctx context.Context, email string) (*domainauth.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.byEmail[domainuser.NormalizeEmail(email)]
	if !ok {
		return nil, domainauth.ErrAccountNotFound
	}
	copyAccount := *account
	return &copyAccount, nil
}

// SessionStore keeps bearer sessions in memory.
type SessionStore struct {
	mu        sync.RWMutex
	tokens    map[domainauth.Token]*domainauth.Session
	userIndex map[domainuser.ID]map[domainauth.Token]struct{}
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		tokens:    make(map[domainauth.Token]*domainauth.Session),
		userIndex: make(map[domainuser.ID]map[domainauth.Token]struct{}),
	}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *session
	s.tokens[session.Token] = &stored
	if _, ok := s.userIndex[session.UserID]; !ok {
		s.userIndex[session.UserID] = make(map[domainauth.Token]struct{})
	}
	s.userIndex[session.UserID][session.Token] = struct{}{}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	session, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	copySession := *session
	return &copySession, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.tokens[token]
	if !ok {
		return nil
	}
	delete(s.tokens, token)
	if index, ok := s.userIndex[session.UserID]; ok {
		delete(index, token)
		if len(index) == 0 {
			delete(s.userIndex, session.UserID)
		}
	}
	return nil
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.userIndex[userID]
	if !ok {
		return nil
	}
	for token := range index {
		delete(s.tokens, token)
	}
	delete(s.userIndex, userID)
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

var (
	_ domainuser.Repository    = (*UserRepository)(nil)
	_ domainuser.ActivityStore = (*UserRepository)(nil)
	_ domainauth.AccountStore  = (*AccountStore)(nil)
	_ domainauth.SessionStore  = (*SessionStore)(nil)
)
