package profile

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
	domainuser "campusmarket/internal/domain/user"
	"campusmarket/internal/infra/storage/memory"
)

func seedUser(t *testing.T, store *memory.Store, id, email, name, username string) {
	t.Helper()
	u, err := domainuser.NewUser(domainuser.CreateParams{
		ID:          domainuser.ID(id),
		Email:       email,
		Name:        name,
		Username:    username,
		Institution: domainuser.Institution{Name: "Mit", Domain: "mit.edu"},
		CreatedAt:   time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, store.Users.Save(context.Background(), u))
}

func strPtr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	store := memory.NewStore()
	seedUser(t, store, "u-1", "ada@mit.edu", "Ada", "ada")
	seedUser(t, store, "u-2", "bob@mit.edu", "Bob", "bob")

	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[UpdateProfileCommand, *dto.UserProfile](bus, UpdateProfileCommand{}.Key(), &UpdateProfileHandler{})
	cmds := middleware.ChainCommands(bus,
		middleware.Validation(middleware.NewStructValidator()),
		middleware.Transaction(store.Factory(), nil),
	)
	ctx := context.Background()

	profile, err := commands.Dispatch[UpdateProfileCommand, *dto.UserProfile](ctx, cmds, UpdateProfileCommand{UserID: "u-1", Name: strPtr(" Ada L. "), Username: strPtr("Ada.L")})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", profile.Name)
	assert.Equal(t, "ada.l", profile.Username)

	_, err = commands.Dispatch[UpdateProfileCommand, *dto.UserProfile](ctx, cmds, UpdateProfileCommand{UserID: "u-1", Username: strPtr("BOB")})
	assert.ErrorIs(t, err, domainuser.ErrUsernameTaken)

	_, err = commands.Dispatch[UpdateProfileCommand, *dto.UserProfile](ctx, cmds, UpdateProfileCommand{UserID: "u-1", Username: strPtr("no spaces")})
	assert.ErrorIs(t, err, domainuser.ErrInvalidUsername)

	stored, err := store.Users.ByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "ada.l", stored.Username)

	// The old username is released.
	got, err := store.Users.ByUsername(ctx, "ada")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domainuser.ErrNotFound)
}

func TestUsernameAvailability(t *testing.T) {
	store := memory.NewStore()
	seedUser(t, store, "u-1", "ada@mit.edu", "Ada", "ada")
	bus := queries.NewInMemoryBus()
	queries.RegisterHandler[UsernameAvailabilityQuery, dto.UsernameAvailability](bus, UsernameAvailabilityQuery{}.Key(), &UsernameAvailabilityHandler{Users: store.Users})
	ctx := context.Background()

	tests := []struct {
		name      string
		query     UsernameAvailabilityQuery
		available bool
	}{
		{"taken ignoring case", UsernameAvailabilityQuery{Username: "ADA", UserID: "u-2"}, false},
		{"own username", UsernameAvailabilityQuery{Username: "ada", UserID: "u-1"}, true},
		{"free", UsernameAvailabilityQuery{Username: "grace", UserID: "u-2"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := queries.Ask[UsernameAvailabilityQuery, dto.UsernameAvailability](ctx, bus, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.available, got.Available)
		})
	}

	_, err := queries.Ask[UsernameAvailabilityQuery, dto.UsernameAvailability](ctx, bus, UsernameAvailabilityQuery{Username: "x"})
	assert.ErrorIs(t, err, domainuser.ErrInvalidUsername)
}

func TestGetProfile(t *testing.T) {
	store := memory.NewStore()
	seedUser(t, store, "u-1", "ada@mit.edu", "Ada", "")
	handler := &GetProfileHandler{UoWFactory: store.Factory()}

	profile, err := handler.Handle(context.Background(), GetProfileQuery{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, "ada@mit.edu", profile.Email)
	assert.Equal(t, "mit.edu", profile.Institution.Domain)

	_, err = handler.Handle(context.Background(), GetProfileQuery{UserID: "nobody"})
	assert.ErrorIs(t, err, domainuser.ErrNotFound)
}
