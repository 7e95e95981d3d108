package uow

import (
	"context"

	domaincart "campusmarket/internal/domain/cart"
	domainlistings "campusmarket/internal/domain/listings"
	domainreports "campusmarket/internal/domain/reports"
	domainuser "campusmarket/internal/domain/user"
)

// UnitOfWork hands out the repositories used by one command or query.
// Stores apply each statement atomically; there is no multi-statement rollback.
type UnitOfWork interface {
	Users() domainuser.Repository
	Listings() domainlistings.ListingRepository
	Carts() domaincart.Repository
	Reports() domainreports.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}
