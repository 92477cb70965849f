package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alchemorsel/nutricore/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

type fakeUoW struct{ ctx context.Context }

func (f *fakeUoW) Context() context.Context { return f.ctx }

func newTestUoWFactory() (UnitOfWorkFactory, *int32, *int32) {
	var commits, rollbacks int32
	factory := func(ctx context.Context) (UnitOfWork, func() error, func() error, error) {
		return &fakeUoW{ctx: ctx}, func() error {
				atomic.AddInt32(&commits, 1)
				return nil
			}, func() error {
				atomic.AddInt32(&rollbacks, 1)
				return nil
			}, nil
	}
	return factory, &commits, &rollbacks
}

func newTestBus(t *testing.T) (*Bus, *Registry) {
	t.Helper()
	registry := NewRegistry()
	factory, _, _ := newTestUoWFactory()
	b := New(registry, factory, zap.NewNop(), otel.Tracer("test"), Config{Workers: 2, QueueSize: 8})
	t.Cleanup(b.Shutdown)
	return b, registry
}

type testCommand struct{ Value string }
type testQuery struct{ Value string }

type testEvent struct{ name string }

func (e testEvent) EventName() string     { return e.name }
func (e testEvent) OccurredAt() time.Time { return time.Now() }

type eventSourceResult struct {
	shared.AggregateRoot
}

func TestBus_Send_UnknownCommandReturnsError(t *testing.T) {
	b, _ := newTestBus(t)
	_, err := b.Send(context.Background(), testCommand{})
	assert.ErrorIs(t, err, ErrUnknownRequestType)
}

func TestBus_Send_CommitsOnSuccess(t *testing.T) {
	registry := NewRegistry()
	factory, commits, rollbacks := newTestUoWFactory()
	b := New(registry, factory, zap.NewNop(), otel.Tracer("test"), Config{Workers: 1, QueueSize: 4})
	defer b.Shutdown()

	require.NoError(t, registry.RegisterCommand(testCommand{}, func(ctx context.Context, uow UnitOfWork, cmd Command) (interface{}, error) {
		return "ok", nil
	}))

	result, err := b.Send(context.Background(), testCommand{Value: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.EqualValues(t, 1, atomic.LoadInt32(commits))
	assert.EqualValues(t, 0, atomic.LoadInt32(rollbacks))
}

func TestBus_Send_RollsBackOnHandlerError(t *testing.T) {
	registry := NewRegistry()
	factory, commits, rollbacks := newTestUoWFactory()
	b := New(registry, factory, zap.NewNop(), otel.Tracer("test"), Config{Workers: 1, QueueSize: 4})
	defer b.Shutdown()

	wantErr := assert.AnError
	require.NoError(t, registry.RegisterCommand(testCommand{}, func(ctx context.Context, uow UnitOfWork, cmd Command) (interface{}, error) {
		return nil, wantErr
	}))

	_, err := b.Send(context.Background(), testCommand{})
	assert.ErrorIs(t, err, wantErr)
	assert.EqualValues(t, 0, atomic.LoadInt32(commits))
	assert.EqualValues(t, 1, atomic.LoadInt32(rollbacks))
}

func TestBus_Send_DrainsEventsOnlyAfterCommit(t *testing.T) {
	b, registry := newTestBus(t)

	var mu sync.Mutex
	var received []string
	done := make(chan struct{})

	registry.Subscribe(testEvent{}, func(ctx context.Context, event shared.DomainEvent) error {
		mu.Lock()
		received = append(received, event.EventName())
		mu.Unlock()
		close(done)
		return nil
	})

	require.NoError(t, registry.RegisterCommand(testCommand{}, func(ctx context.Context, uow UnitOfWork, cmd Command) (interface{}, error) {
		agg := &eventSourceResult{}
		agg.AddEvent(testEvent{name: "thing.happened"})
		return agg, nil
	}))

	_, err := b.Send(context.Background(), testCommand{})
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event subscriber never ran")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"thing.happened"}, received)
}

func TestBus_Ask_UnknownQueryReturnsError(t *testing.T) {
	b, _ := newTestBus(t)
	_, err := b.Ask(context.Background(), testQuery{})
	assert.ErrorIs(t, err, ErrUnknownRequestType)
}

func TestBus_Ask_ReturnsHandlerResult(t *testing.T) {
	b, registry := newTestBus(t)
	require.NoError(t, registry.RegisterQuery(testQuery{}, func(ctx context.Context, uow UnitOfWork, q Query) (interface{}, error) {
		return 42, nil
	}))

	result, err := b.Ask(context.Background(), testQuery{})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestRegistry_DuplicateCommandRegistrationFails(t *testing.T) {
	registry := NewRegistry()
	handler := func(ctx context.Context, uow UnitOfWork, cmd Command) (interface{}, error) { return nil, nil }
	require.NoError(t, registry.RegisterCommand(testCommand{}, handler))
	err := registry.RegisterCommand(testCommand{}, handler)
	assert.ErrorIs(t, err, ErrDuplicateRegistration)
}

func TestRegistry_RegisterAfterFreezePanics(t *testing.T) {
	registry := NewRegistry()
	registry.Freeze()
	assert.Panics(t, func() {
		_ = registry.RegisterCommand(testCommand{}, func(ctx context.Context, uow UnitOfWork, cmd Command) (interface{}, error) {
			return nil, nil
		})
	})
}

func TestBus_Publish_DropsEventsWhenQueueFull(t *testing.T) {
	registry := NewRegistry()
	factory, _, _ := newTestUoWFactory()
	// Zero workers so nothing drains the queue; QueueSize 1 means the second publish overflows.
	b := &Bus{
		registry:   registry,
		uowFactory: factory,
		log:        zap.NewNop(),
		tracer:     otel.Tracer("test"),
		eventCh:    make(chan publishedEvent, 1),
	}

	b.Publish(context.Background(), testEvent{name: "first"})
	// Queue is now full; this publish must not block.
	done := make(chan struct{})
	go func() {
		b.Publish(context.Background(), testEvent{name: "second"})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full queue instead of dropping")
	}
}
