package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	"campusmarket/internal/app/middleware"
	"campusmarket/internal/app/queries"
	domaincart "campusmarket/internal/domain/cart"
	domainlistings "campusmarket/internal/domain/listings"
	"campusmarket/internal/infra/storage/memory"
)

func seedListing(t *testing.T, store *memory.Store, id, seller, institution string, price int64) *domainlistings.Listing {
	t.Helper()
	listing, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:          domainlistings.ListingID(id),
		Seller:      domainlistings.SellerID(seller),
		Institution: institution,
		Title:       "Listing " + id,
		PriceCents:  price,
		Now:         time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, store.Listings.Save(context.Background(), listing))
	return listing
}

func newCartBuses(store *memory.Store) (commands.Bus, queries.Bus) {
	cmdBus := commands.NewInMemoryBus()
	commands.RegisterHandler[AddToCartCommand, *dto.Cart](cmdBus, AddToCartCommand{}.Key(), &AddToCartHandler{})
	commands.RegisterHandler[RemoveFromCartCommand, *dto.Cart](cmdBus, RemoveFromCartCommand{}.Key(), &RemoveFromCartHandler{})
	commands.RegisterHandler[ClearCartCommand, *dto.Cart](cmdBus, ClearCartCommand{}.Key(), &ClearCartHandler{})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler[GetCartQuery, *dto.Cart](queryBus, GetCartQuery{}.Key(), &GetCartHandler{UoWFactory: store.Factory()})

	return middleware.ChainCommands(cmdBus,
		middleware.Validation(middleware.NewStructValidator()),
		middleware.Transaction(store.Factory(), nil),
	), queryBus
}

func TestAddToCartRules(t *testing.T) {
	store := memory.NewStore()
	cmds, _ := newCartBuses(store)
	ctx := context.Background()

	seedListing(t, store, "l-own", "buyer", "mit.edu", 100)
	seedListing(t, store, "l-far", "seller", "stanford.edu", 100)
	sold := seedListing(t, store, "l-sold", "seller", "mit.edu", 100)
	require.NoError(t, sold.MarkSold(time.Now()))
	require.NoError(t, store.Listings.Save(ctx, sold))
	seedListing(t, store, "l-ok", "seller", "mit.edu", 1999)

	tests := []struct {
		name    string
		listing string
		wantErr error
	}{
		{"own listing", "l-own", domaincart.ErrOwnListing},
		{"other campus", "l-far", domaincart.ErrListingUnavailable},
		{"sold", "l-sold", domaincart.ErrListingUnavailable},
		{"missing", "l-none", domainlistings.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := commands.Dispatch[AddToCartCommand, *dto.Cart](ctx, cmds, AddToCartCommand{UserID: "buyer", Institution: "mit.edu", ListingID: tt.listing})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	cart, err := commands.Dispatch[AddToCartCommand, *dto.Cart](ctx, cmds, AddToCartCommand{UserID: "buyer", Institution: "mit.edu", ListingID: "l-ok"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(1999), cart.TotalCents)

	_, err = commands.Dispatch[AddToCartCommand, *dto.Cart](ctx, cmds, AddToCartCommand{UserID: "buyer", Institution: "mit.edu", ListingID: "l-ok"})
	assert.ErrorIs(t, err, domaincart.ErrAlreadyInCart)
}

func TestCartListRemoveClear(t *testing.T) {
	store := memory.NewStore()
	cmds, qs := newCartBuses(store)
	ctx := context.Background()
	seedListing(t, store, "l-1", "seller", "mit.edu", 500)
	second := seedListing(t, store, "l-2", "seller", "mit.edu", 700)

	for _, id := range []string{"l-1", "l-2"} {
		_, err := commands.Dispatch[AddToCartCommand, *dto.Cart](ctx, cmds, AddToCartCommand{UserID: "buyer", Institution: "mit.edu", ListingID: id})
		require.NoError(t, err)
	}

	require.NoError(t, second.MarkSold(time.Now()))
	require.NoError(t, store.Listings.Save(ctx, second))

	cart, err := queries.Ask[GetCartQuery, *dto.Cart](ctx, qs, GetCartQuery{UserID: "buyer"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, int64(500), cart.TotalCents)

	cart, err = commands.Dispatch[RemoveFromCartCommand, *dto.Cart](ctx, cmds, RemoveFromCartCommand{UserID: "buyer", ListingID: "l-1"})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "l-2", cart.Items[0].ListingID)
	assert.False(t, cart.Items[0].Available)

	cart, err = commands.Dispatch[ClearCartCommand, *dto.Cart](ctx, cmds, ClearCartCommand{UserID: "buyer"})
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}
