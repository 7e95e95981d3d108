package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/dto"
	"campusmarket/internal/app/handlers/support"
	"campusmarket/internal/app/queries"
	"campusmarket/internal/app/uow"
	domainuser "campusmarket/internal/domain/user"
)

const (
	updateProfileKey     = "profile.update"
	usernameAvailableKey = "profile.username_available"
	getProfileKey        = "profile.get"
)

// UpdateProfileCommand changes the display name and/or username. A nil field
// is left untouched; an empty Username clears it.
type UpdateProfileCommand struct {
	UserID   string  `validate:"required"`
	Name     *string `validate:"omitempty,max=80"`
	Username *string `validate:"omitempty,max=30"`
}

func (c UpdateProfileCommand) Key() string { return updateProfileKey }

type UpdateProfileHandler struct {
	Logger *slog.Logger
	Now    func() time.Time
}

func (h *UpdateProfileHandler) Handle(ctx context.Context, cmd UpdateProfileCommand) (*dto.UserProfile, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	user, err := unit.Users().ByID(ctx, domainuser.ID(cmd.UserID))
	if err != nil {
		return nil, err
	}
	now := support.Now(h.Now)
	if cmd.Name != nil {
		if err := user.UpdateName(*cmd.Name, now); err != nil {
			return nil, err
		}
	}
	if cmd.Username != nil {
		if err := user.SetUsername(*cmd.Username, now); err != nil {
			return nil, err
		}
		if user.Username != "" {
			if err := ensureUsernameFree(ctx, unit.Users(), user.Username, user.ID); err != nil {
				return nil, err
			}
		}
	}
	if err := unit.Users().Save(ctx, user); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("profile updated", "user_id", user.ID)
	}
	result := dto.MapUserProfile(user)
	return &result, nil
}

type UsernameAvailabilityQuery struct {
	Username string `validate:"required"`
	UserID   string
}

func (q UsernameAvailabilityQuery) Key() string { return usernameAvailableKey }

// UsernameAvailabilityHandler reads through the service-level user repository
// so the check sees every profile, not only the caller's.
type UsernameAvailabilityHandler struct {
	Users domainuser.Repository
}

func (h *UsernameAvailabilityHandler) Handle(ctx context.Context, q UsernameAvailabilityQuery) (dto.UsernameAvailability, error) {
	if h.Users == nil {
		return dto.UsernameAvailability{}, errors.New("profile: user repository required")
	}
	username, err := domainuser.NormalizeUsername(q.Username)
	if err != nil {
		return dto.UsernameAvailability{}, err
	}
	err = ensureUsernameFree(ctx, h.Users, username, domainuser.ID(q.UserID))
	switch {
	case err == nil:
		return dto.UsernameAvailability{Username: username, Available: true}, nil
	case errors.Is(err, domainuser.ErrUsernameTaken):
		return dto.UsernameAvailability{Username: username, Available: false}, nil
	default:
		return dto.UsernameAvailability{}, err
	}
}

type GetProfileQuery struct {
	UserID string `validate:"required"`
}

func (q GetProfileQuery) Key() string { return getProfileKey }

type GetProfileHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetProfileHandler) Handle(ctx context.Context, q GetProfileQuery) (dto.UserProfile, error) {
	unit, ctx, release, err := uow.ReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return dto.UserProfile{}, err
	}
	defer release()
	user, err := unit.Users().ByID(ctx, domainuser.ID(q.UserID))
	if err != nil {
		return dto.UserProfile{}, err
	}
	return dto.MapUserProfile(user), nil
}

func ensureUsernameFree(ctx context.Context, users domainuser.Repository, username string, self domainuser.ID) error {
	existing, err := users.ByUsername(ctx, username)
	if errors.Is(err, domainuser.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == self {
		return nil
	}
	return domainuser.ErrUsernameTaken
}

var (
	_ commands.Handler[UpdateProfileCommand, *dto.UserProfile]                 = (*UpdateProfileHandler)(nil)
	_ queries.Handler[UsernameAvailabilityQuery, dto.UsernameAvailability] = (*UsernameAvailabilityHandler)(nil)
	_ queries.Handler[GetProfileQuery, dto.UserProfile]                        = (*GetProfileHandler)(nil)
)
