package commands

import (
	"context"
	"errors"
	"fmt"
)

// Command is a write intent. Its Key names the handler registered for it.
type Command interface {
	Key() string
}

type Handler[C Command, R any] interface {
	Handle(ctx context.Context, cmd C) (R, error)
}

// HandlerFunc lets a plain function serve as a Handler.
type HandlerFunc[C Command, R any] func(ctx context.Context, cmd C) (R, error)

func (f HandlerFunc[C, R]) Handle(ctx context.Context, cmd C) (R, error) {
	return f(ctx, cmd)
}

type Bus interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

var (
	ErrHandlerNotFound = errors.New("commands: handler not found")
	ErrInvalidCommand  = errors.New("commands: invalid command for handler")
	ErrResultType      = errors.New("commands: result type mismatch")
	ErrNilBus          = errors.New("commands: nil bus")
)

// Dispatch sends cmd through bus and returns the handler's result as R.
// A context that is already done fails before any middleware runs.
func Dispatch[C Command, R any](ctx context.Context, bus Bus, cmd C) (R, error) {
	if bus == nil {
		var zero R
		return zero, ErrNilBus
	}
	if err := ctx.Err(); err != nil {
		var zero R
		return zero, err
	}
	res, err := bus.Dispatch(ctx, cmd)
	if err != nil {
		var zero R
		return zero, err
	}
	return resultAs[R](cmd.Key(), res)
}

// resultAs maps a nil result to the zero R.
func resultAs[R any](key string, res any) (R, error) {
	value, ok := res.(R)
	if ok || res == nil {
		return value, nil
	}
	return value, fmt.Errorf("%w: %s returned %T, want %T", ErrResultType, key, res, value)
}
