package middleware

import (
	"context"

	"campusmarket/internal/app/commands"
	"campusmarket/internal/app/queries"
)

type CommandMiddleware func(next commands.Bus) commands.Bus

type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands wraps base so that mws[0] sees a command first. Nil entries
// are skipped, which lets callers pass optional stages inline.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	return chain(base, mws)
}

// ChainQueries is ChainCommands for the read side.
func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	return chain(base, mws)
}

func chain[B any, M ~func(B) B](base B, mws []M) B {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			base = mws[i](base)
		}
	}
	return base
}

// CommandFunc lets a closure stand in for a commands.Bus.
type CommandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f CommandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

// QueryFunc lets a closure stand in for a queries.Bus.
type QueryFunc func(ctx context.Context, q queries.Query) (any, error)

func (f QueryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}
