package auth

import (
	"context"
	"errors"

	domainuser "campusmarket/internal/domain/user"
)

var ErrNotAuthenticated = errors.New("auth: not authenticated")

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID      domainuser.ID
	Email       string
	Name        string
	Username    string
	Institution domainuser.Institution
	Token       string
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID == "" {
		return Principal{}, false
	}
	return p, true
}

// RequirePrincipal returns the caller or ErrNotAuthenticated.
func RequirePrincipal(ctx context.Context) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrNotAuthenticated
	}
	return p, nil
}

func PrincipalFromUser(u *domainuser.User, token string) Principal {
	if u == nil {
		return Principal{}
	}
	return Principal{
		UserID:      u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Username:    u.Username,
		Institution: u.Institution,
		Token:       token,
	}
}
