package mongo

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainauth "campusmarket/internal/domain/auth"
	domainuser "campusmarket/internal/domain/user"
)

// UserRepository stores profiles. last_active_at is only written by
// TouchActivity so profile saves never clobber it.
type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(colUsers)}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *UserRepository) ByEmail(ctx context.Context, email string) (*domainuser.User, error) {
	return r.findOne(ctx, bson.M{"email": domainuser.NormalizeEmail(email)})
}

func (r *UserRepository) ByUsername(ctx context.Context, username string) (*domainuser.User, error) {
	key := strings.ToLower(strings.TrimSpace(username))
	if key == "" {
		return nil, domainuser.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"username_lower": key})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*domainuser.User, error) {
	var doc userDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainuser.ErrNotFound
		}
		return nil, err
	}
	return doc.toUser(), nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	doc := newUserDocument(user)
	if doc.Email == "" {
		return domainuser.ErrEmailRequired
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if holder, lookupErr := r.ByEmail(ctx, doc.Email); lookupErr == nil && holder.ID != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	return domainuser.ErrUsernameTaken
}

func (r *UserRepository) List(ctx context.Context, params domainuser.ListParams) ([]*domainuser.User, int, error) {
	filter := bson.M{}
	if query := strings.TrimSpace(params.Query); query != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"email": pattern},
			bson.M{"name": pattern},
			bson.M{"username": pattern},
		}
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if params.Offset > 0 {
		opts.SetSkip(int64(params.Offset))
	}
	if params.Limit > 0 {
		opts.SetLimit(int64(params.Limit))
	}
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]*domainuser.User, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toUser())
	}
	return out, int(total), nil
}

// TouchActivity is a conditional update: it matches only when the stored
// value is missing or older than now-minInterval.
func (r *UserRepository) TouchActivity(ctx context.Context, id domainuser.ID, now time.Time, minInterval time.Duration) (bool, error) {
	threshold := now.Add(-minInterval).UnixMilli()
	filter := bson.M{
		"_id": string(id),
		"$or": bson.A{
			bson.M{"last_active_at": nil},
			bson.M{"last_active_at": bson.M{"$lt": threshold}},
		},
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": bson.M{"last_active_at": now.UnixMilli()}})
	if err != nil {
		return false, err
	}
	if res.MatchedCount > 0 {
		return true, nil
	}
	n, err := r.col.CountDocuments(ctx, bson.M{"_id": string(id)}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, domainuser.ErrNotFound
	}
	return false, nil
}

func (r *UserRepository) LastActive(ctx context.Context, id domainuser.ID) (time.Time, error) {
	user, err := r.ByID(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return user.LastActiveAt, nil
}

type userDocument struct {
	ID              string `bson:"_id"`
	Email           string `bson:"email"`
	Name            string `bson:"name"`
	Username        string `bson:"username"`
	UsernameLower   string `bson:"username_lower"`
	InstitutionName string `bson:"institution_name"`
	InstitutionHost string `bson:"institution_domain"`
	CreatedAt       int64  `bson:"created_at"`
	UpdatedAt       int64  `bson:"updated_at"`
	LastActiveAt    int64  `bson:"last_active_at,omitempty"`
}

func newUserDocument(u *domainuser.User) userDocument {
	return userDocument{
		ID:              string(u.ID),
		Email:           domainuser.NormalizeEmail(u.Email),
		Name:            u.Name,
		Username:        u.Username,
		UsernameLower:   strings.ToLower(u.Username),
		InstitutionName: u.Institution.Name,
		InstitutionHost: u.Institution.Domain,
		CreatedAt:       millis(u.CreatedAt),
		UpdatedAt:       millis(u.UpdatedAt),
	}
}

func (d userDocument) toUser() *domainuser.User {
	return &domainuser.User{
		ID:           domainuser.ID(d.ID),
		Email:        d.Email,
		Name:         d.Name,
		Username:     d.Username,
		Institution:  domainuser.Institution{Name: d.InstitutionName, Domain: d.InstitutionHost},
		LastActiveAt: timestampToTime(d.LastActiveAt),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
	}
}

// AccountStore keeps credentials keyed by normalized email.
type AccountStore struct {
	col *mongo.Collection
}

func NewAccountStore(db *mongo.Database) *AccountStore {
	return &AccountStore{col: db.Collection(colAccounts)}
}

func (s *AccountStore) Create(ctx context.Context, account *domainauth.Account) error {
	if account == nil {
		return domainauth.ErrUserRequired
	}
	doc := accountDocument{
		Email:        domainuser.NormalizeEmail(account.Email),
		UserID:       string(account.UserID),
		PasswordHash: account.PasswordHash,
		Name:         account.Name,
		Username:     account.Username,
		CreatedAt:    millis(account.CreatedAt),
	}
	if _, err := s.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainauth.ErrAccountExists
		}
		return err
	}
	return nil
}

func (s *AccountStore) ByEmail(ctx context.Context, email string) (*domainauth.Account, error) {
	var doc accountDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": domainuser.NormalizeEmail(email)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainauth.ErrAccountNotFound
		}
		return nil, err
	}
	return &domainauth.Account{
		UserID:       domainuser.ID(doc.UserID),
		Email:        doc.Email,
		PasswordHash: doc.PasswordHash,
		Name:         doc.Name,
		Username:     doc.Username,
		CreatedAt:    timestampToTime(doc.CreatedAt),
	}, nil
}

type accountDocument struct {
	Email        string `bson:"_id"`
	UserID       string `bson:"user_id"`
	PasswordHash string `bson:"password_hash"`
	Name         string `bson:"name"`
	Username     string `bson:"username"`
	CreatedAt    int64  `bson:"created_at"`
}

// SessionStore keeps bearer sessions; a TTL index on expires_at reaps them.
type SessionStore struct {
	col *mongo.Collection
}

func NewSessionStore(db *mongo.Database) *SessionStore {
	return &SessionStore{col: db.Collection(colSessions)}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil {
		return domainauth.ErrTokenRequired
	}
	doc := sessionDocument{
		Token:     string(session.Token),
		UserID:    string(session.UserID),
		CreatedAt: session.CreatedAt.UTC(),
		ExpiresAt: session.ExpiresAt.UTC(),
	}
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": doc.Token}, doc, options.Replace().SetUpsert(true))
	return err
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	var doc sessionDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": string(token)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainauth.ErrSessionNotFound
		}
		return nil, err
	}
	return &domainauth.Session{
		Token:     domainauth.Token(doc.Token),
		UserID:    domainuser.ID(doc.UserID),
		CreatedAt: doc.CreatedAt.UTC(),
		ExpiresAt: doc.ExpiresAt.UTC(),
	}, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": string(token)})
	return err
}

func (s *SessionStore) DeleteByUser(ctx context.Context, userID domainuser.ID) error {
	_, err := s.col.DeleteMany(ctx, bson.M{"user_id": string(userID)})
	return err
}

// sessionDocument keeps dates as BSON dates so the TTL index applies.
type sessionDocument struct {
	Token     string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}

var (
	_ domainuser.Repository    = (*UserRepository)(nil)
	_ domainuser.ActivityStore = (*UserRepository)(nil)
	_ domainauth.AccountStore  = (*AccountStore)(nil)
	_ domainauth.SessionStore  = (*SessionStore)(nil)
)
