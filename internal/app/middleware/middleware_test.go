package middleware

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusmarket/internal/app/commands"
)

type createThing struct {
	Name    string `validate:"required,max=5"`
	IdemKey string
}

func (createThing) Key() string              { return "things.create" }
func (c createThing) IdempotencyKey() string { return c.IdemKey }
func (createThing) ResultPrototype() any     { return &thingResult{} }

type thingResult struct {
	ID string `json:"id"`
}

type fakeIdemStore struct {
	mu    sync.Mutex
	items map[string]IdempotencyRecord
}

func (s *fakeIdemStore) Get(_ context.Context, key string) (IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *fakeIdemStore) Save(_ context.Context, rec IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

func newThingBus(calls *int, fail error) *commands.InMemoryBus {
	bus := commands.NewInMemoryBus()
	commands.RegisterHandler[createThing, *thingResult](bus, createThing{}.Key(), commands.HandlerFunc[createThing, *thingResult](
		func(ctx context.Context, cmd createThing) (*thingResult, error) {
			*calls++
			if fail != nil {
				return nil, fail
			}
			return &thingResult{ID: "thing-" + cmd.Name}, nil
		},
	))
	return bus
}

func TestValidationRejectsBadCommand(t *testing.T) {
	calls := 0
	bus := ChainCommands(newThingBus(&calls, nil), Validation(NewStructValidator()))

	_, err := bus.Dispatch(context.Background(), createThing{Name: "toolongname"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "max=5", verr.Fields["Name"])
	assert.Equal(t, 0, calls)

	_, err = bus.Dispatch(context.Background(), createThing{Name: "ok"})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReplaysSuccess(t *testing.T) {
	calls := 0
	store := &fakeIdemStore{items: map[string]IdempotencyRecord{}}
	bus := ChainCommands(newThingBus(&calls, nil), Idempotency(store, nil, time.Hour))

	first, err := commands.Dispatch[createThing, *thingResult](context.Background(), bus, createThing{Name: "a", IdemKey: "k1"})
	require.NoError(t, err)
	second, err := commands.Dispatch[createThing, *thingResult](context.Background(), bus, createThing{Name: "b", IdemKey: "k1"})
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.ID, second.ID)

	_, err = bus.Dispatch(context.Background(), createThing{Name: "c"})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyDoesNotStoreFailures(t *testing.T) {
	calls := 0
	store := &fakeIdemStore{items: map[string]IdempotencyRecord{}}
	boom := errors.New("boom")
	bus := ChainCommands(newThingBus(&calls, boom), Idempotency(store, nil, time.Hour))

	_, err := bus.Dispatch(context.Background(), createThing{Name: "a", IdemKey: "k1"})
	assert.ErrorIs(t, err, boom)
	_, err = bus.Dispatch(context.Background(), createThing{Name: "a", IdemKey: "k1"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.items)
}

func TestAuthorizationStopsDispatch(t *testing.T) {
	calls := 0
	denied := errors.New("denied")
	bus := ChainCommands(newThingBus(&calls, nil), Authorization(AllOf(
		AuthorizerFunc(func(context.Context, any) error { return nil }),
		AuthorizerFunc(func(context.Context, any) error { return denied }),
	)))

	_, err := bus.Dispatch(context.Background(), createThing{Name: "a"})
	assert.ErrorIs(t, err, denied)
	assert.Equal(t, 0, calls)
}

func TestObserveReportsOutcome(t *testing.T) {
	calls := 0
	var got []string
	bus := ChainCommands(newThingBus(&calls, errors.New("x")), Observe(nil, func(kind, key, outcome string, _ time.Duration) {
		got = append(got, kind+"/"+key+"/"+outcome)
	}))

	_, _ = bus.Dispatch(context.Background(), createThing{Name: "a"})
	assert.Equal(t, []string{"command/things.create/error"}, got)
}

func TestChainRunsOutermostFirstAndSkipsNil(t *testing.T) {
	calls := 0
	var order []string
	stage := func(name string) CommandMiddleware {
		return func(next commands.Bus) commands.Bus {
			return CommandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
				order = append(order, name)
				return next.Dispatch(ctx, cmd)
			})
		}
	}
	bus := ChainCommands(newThingBus(&calls, nil), stage("outer"), nil, stage("inner"))

	res, err := bus.Dispatch(context.Background(), createThing{Name: "a"})
	require.NoError(t, err)
	assert.Equal(t, &thingResult{ID: "thing-a"}, res)
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, 1, calls)
}
