package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCommand struct{ Text string }

func (echoCommand) Key() string { return "test.echo" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestDispatchTypedHandler(t *testing.T) {
	bus := NewInMemoryBus()
	RegisterHandler[echoCommand, string](bus, echoCommand{}.Key(), HandlerFunc[echoCommand, string](
		func(ctx context.Context, cmd echoCommand) (string, error) {
			return "echo:" + cmd.Text, nil
		},
	))

	out, err := Dispatch[echoCommand, string](context.Background(), bus, echoCommand{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)
	assert.Equal(t, []string{"test.echo"}, bus.Keys())

	_, err = Dispatch[echoCommand, int](context.Background(), bus, echoCommand{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = bus.Dispatch(context.Background(), otherCommand{})
	assert.True(t, errors.Is(err, ErrHandlerNotFound))

	_, err = Dispatch[echoCommand, string](context.Background(), nil, echoCommand{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestRegisterTwicePanics(t *testing.T) {
	bus := NewInMemoryBus()
	handler := HandlerFunc[echoCommand, string](func(context.Context, echoCommand) (string, error) { return "", nil })
	RegisterHandler[echoCommand, string](bus, "dup", handler)
	assert.Panics(t, func() {
		RegisterHandler[echoCommand, string](bus, "dup", handler)
	})
}

func TestRegisterUsesCommandKey(t *testing.T) {
	bus := NewInMemoryBus()
	Register[echoCommand, string](bus, HandlerFunc[echoCommand, string](func(_ context.Context, cmd echoCommand) (string, error) {
		return cmd.Text, nil
	}))
	assert.Equal(t, []string{"test.echo"}, bus.Keys())

	out, err := Dispatch[echoCommand, string](context.Background(), bus, echoCommand{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", out)
}

func TestDispatchStopsOnDoneContext(t *testing.T) {
	calls := 0
	bus := NewInMemoryBus()
	Register[echoCommand, string](bus, HandlerFunc[echoCommand, string](func(context.Context, echoCommand) (string, error) {
		calls++
		return "", nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Dispatch[echoCommand, string](ctx, bus, echoCommand{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestDispatchNilResultIsZero(t *testing.T) {
	bus := NewInMemoryBus()
	Register[otherCommand, any](bus, HandlerFunc[otherCommand, any](func(context.Context, otherCommand) (any, error) {
		return nil, nil
	}))
	out, err := Dispatch[otherCommand, string](context.Background(), bus, otherCommand{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
