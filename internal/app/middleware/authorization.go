package middleware

import (
	"context"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/queries"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context, message any) error

func (f AuthorizerFunc) Authorize(ctx context.Context, message any) error {
	return f(ctx, message)
}

// AllOf runs every authorizer in order and stops at the first rejection.
func AllOf(authorizers ...Authorizer) Authorizer {
	return AuthorizerFunc(func(ctx context.Context, message any) error {
		for _, a := range authorizers {
			if a == nil {
				continue
			}
			if err := a.Authorize(ctx, message); err != nil {
				return err
			}
		}
		return nil
	})
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return CommandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return QueryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
