package memory

import (
	"context"
	"errors"

	"campusmarket/internal/app/uow"
	domaincart "campusmarket/internal/domain/cart"
	domainlistings "campusmarket/internal/domain/listings"
	domainreports "campusmarket/internal/domain/reports"
	domainuser "campusmarket/internal/domain/user"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory hands the shared in-memory repositories to each unit of work.
type Factory struct {
	UsersRepo    domainuser.Repository
	ListingsRepo domainlistings.ListingRepository
	CartsRepo    domaincart.Repository
	ReportsRepo  domainreports.Repository
}

// Begin starts a unit without isolation; every repository call applies immediately.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.UsersRepo == nil || f.ListingsRepo == nil || f.CartsRepo == nil || f.ReportsRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{users: f.UsersRepo, listings: f.ListingsRepo, carts: f.CartsRepo, reports: f.ReportsRepo}, nil
}

type Unit struct {
	users    domainuser.Repository
	listings domainlistings.ListingRepository
	carts    domaincart.Repository
	reports  domainreports.Repository
}

func (u *Unit) Users() domainuser.Repository               { return u.users }
func (u *Unit) Listings() domainlistings.ListingRepository { return u.listings }
func (u *Unit) Carts() domaincart.Repository               { return u.carts }
func (u *Unit) Reports() domainreports.Repository          { return u.reports }

func (u *Unit) Commit(ctx context.Context) error   { return nil }
func (u *Unit) Rollback(ctx context.Context) error { return nil }

// Store bundles every in-memory adapter.
type Store struct {
	Users         *UserRepository
	Accounts      *AccountStore
	Sessions      *SessionStore
	Listings      *ListingRepository
	Carts         *CartRepository
	Reports       *ReportRepository
	Conversations *ConversationRepository
	Messages      *MessageRepository
	Outbox        *Outbox
	Idempotency   *IdempotencyStore
}

func NewStore() *Store {
	return &Store{
		Users:         NewUserRepository(),
		Accounts:      NewAccountStore(),
		Sessions:      NewSessionStore(),
		Listings:      NewListingRepository(),
		Carts:         NewCartRepository(),
		Reports:       NewReportRepository(),
		Conversations: NewConversationRepository(),
		Messages:      NewMessageRepository(),
		Outbox:        NewOutbox(),
		Idempotency:   NewIdempotencyStore(),
	}
}

func (s *Store) Factory() Factory {
	return Factory{UsersRepo: s.Users, ListingsRepo: s.Listings, CartsRepo: s.Carts, ReportsRepo: s.Reports}
}
