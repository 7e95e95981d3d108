package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"campusmarket/internal/app/uow"
	domaincart "campusmarket/internal/domain/cart"
	domainlistings "campusmarket/internal/domain/listings"
	domainreports "campusmarket/internal/domain/reports"
	domainuser "campusmarket/internal/domain/user"
)

// Factory hands out units backed by the shared repositories. Every repository
// call is a single atomic statement, so units carry no transaction and work
// against standalone servers as well as replica sets.
type Factory struct {
	DB *mongo.Database

	UsersRepo    domainuser.Repository
	ListingsRepo domainlistings.ListingRepository
	CartsRepo    domaincart.Repository
	ReportsRepo  domainreports.Repository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:           db,
		UsersRepo:    NewUserRepository(db),
		ListingsRepo: NewListingRepository(db),
		CartsRepo:    NewCartRepository(db),
		ReportsRepo:  NewReportRepository(db),
	}
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	return &Unit{
		users:    f.UsersRepo,
		listings: f.ListingsRepo,
		carts:    f.CartsRepo,
		reports:  f.ReportsRepo,
	}, nil
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

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)
