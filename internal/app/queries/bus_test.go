package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countQuery struct{ N int }

func (countQuery) Key() string { return "test.count" }

type unknownQuery struct{}

func (unknownQuery) Key() string { return "test.unknown" }

func newCountBus(calls *int) *InMemoryBus {
	bus := NewInMemoryBus()
	Register[countQuery, int](bus, HandlerFunc[countQuery, int](func(_ context.Context, q countQuery) (int, error) {
		*calls++
		return q.N * 2, nil
	}))
	return bus
}

func TestAskTypedHandler(t *testing.T) {
	calls := 0
	bus := newCountBus(&calls)
	assert.Equal(t, []string{"test.count"}, bus.Keys())

	out, err := Ask[countQuery, int](context.Background(), bus, countQuery{N: 21})
	require.NoError(t, err)
	assert.Equal(t, 42, out)

	_, err = Ask[countQuery, string](context.Background(), bus, countQuery{})
	assert.ErrorIs(t, err, ErrResultType)

	_, err = bus.Ask(context.Background(), unknownQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)

	_, err = Ask[countQuery, int](context.Background(), nil, countQuery{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestAskStopsOnDoneContext(t *testing.T) {
	calls := 0
	bus := newCountBus(&calls)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Ask[countQuery, int](ctx, bus, countQuery{N: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestRegisterTwicePanics(t *testing.T) {
	calls := 0
	bus := newCountBus(&calls)
	assert.Panics(t, func() {
		Register[countQuery, int](bus, HandlerFunc[countQuery, int](func(context.Context, countQuery) (int, error) { return 0, nil }))
	})
}
