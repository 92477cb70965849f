// Package bus implements the event-bus mediator of §4.1: a process-wide Command/Query/Event
// registry, request-scoped unit-of-work dispatch, and an asynchronous event-publication pool.
package bus

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/alchemorsel/nutricore/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Command is a request for a state change; it has exactly one handler.
type Command interface{}

// Query is a read-only request; it has exactly one handler.
type Query interface{}

// CommandHandler executes a Command within a Unit-of-Work and returns a typed result.
type CommandHandler func(ctx context.Context, uow UnitOfWork, cmd Command) (interface{}, error)

// QueryHandler executes a Query and returns a typed result. Queries do not need write access to
// the Unit-of-Work but are handed one anyway so read replicas/read-only transactions compose
// the same way commands do.
type QueryHandler func(ctx context.Context, uow UnitOfWork, q Query) (interface{}, error)

// EventSubscriber reacts to a published DomainEvent. A subscriber error is logged and does not
// affect other subscribers or the originating request (§4.1's failure semantics).
type EventSubscriber func(ctx context.Context, event shared.DomainEvent) error

// UnitOfWork is threaded through handler execution, granting access to repositories that share
// one underlying transaction. Handlers must not retain it past their own return.
type UnitOfWork interface {
	// Context returns the request-scoped context carrying the transaction, for repositories that
	// need to pass it straight through to a *gorm.DB/*sql.Tx-bound call.
	Context() context.Context
}

// UnitOfWorkFactory begins a new Unit-of-Work, returning it along with commit/rollback funcs.
// Commit is invoked on handler success, Rollback on handler error — exactly once, never both.
type UnitOfWorkFactory func(ctx context.Context) (uow UnitOfWork, commit func() error, rollback func() error, err error)

// ErrUnknownRequestType is returned when send() is called with a Command/Query type that was
// never registered — a startup-time misconfiguration surfaced at the worst possible time, hence
// fatal per §4.1.
var ErrUnknownRequestType = fmt.Errorf("bus: no handler registered for request type")

// ErrDuplicateRegistration is returned by Register* when the same Command/Query type is
// registered twice; the registry is meant to be built once during startup wiring.
var ErrDuplicateRegistration = fmt.Errorf("bus: handler already registered for this type")

// Registry is the process-wide singleton mapping each Command/Query/Event type to its handler(s).
// Registration happens once during startup wiring; Register* calls after Freeze panics, matching
// the teacher's fail-fast startup posture (container.go builds its whole graph before serving).
type Registry struct {
	mu          sync.Mutex
	commands    map[reflect.Type]CommandHandler
	queries     map[reflect.Type]QueryHandler
	subscribers map[reflect.Type][]EventSubscriber
	frozen      bool
}

// NewRegistry creates an empty, mutable registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:    make(map[reflect.Type]CommandHandler),
		queries:     make(map[reflect.Type]QueryHandler),
		subscribers: make(map[reflect.Type][]EventSubscriber),
	}
}

// RegisterCommand binds cmdType's handler. cmdSample is a zero-value instance of the concrete
// Command type, used only to derive its reflect.Type.
func (r *Registry) RegisterCommand(cmdSample Command, handler CommandHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("bus: cannot register a command handler after the registry is frozen")
	}
	t := reflect.TypeOf(cmdSample)
	if _, exists := r.commands[t]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, t)
	}
	r.commands[t] = handler
	return nil
}

// RegisterQuery binds queryType's handler.
func (r *Registry) RegisterQuery(querySample Query, handler QueryHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("bus: cannot register a query handler after the registry is frozen")
	}
	t := reflect.TypeOf(querySample)
	if _, exists := r.queries[t]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateRegistration, t)
	}
	r.queries[t] = handler
	return nil
}

// Subscribe registers a subscriber for eventSample's concrete type. Multiple subscribers per
// event type are allowed — this is the only many-handlers case in the registry.
func (r *Registry) Subscribe(eventSample shared.DomainEvent, subscriber EventSubscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		panic("bus: cannot subscribe after the registry is frozen")
	}
	t := reflect.TypeOf(eventSample)
	r.subscribers[t] = append(r.subscribers[t], subscriber)
}

// Freeze marks the registry immutable. Call once, after all startup wiring has registered its
// handlers and subscribers.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Bus dispatches Commands/Queries through the Registry under a fresh Unit-of-Work per call, and
// publishes drained events to a bounded worker pool of background subscribers.
type Bus struct {
	registry   *Registry
	uowFactory UnitOfWorkFactory
	log        *zap.Logger
	tracer     trace.Tracer

	eventCh chan publishedEvent
	wg      sync.WaitGroup
}

type publishedEvent struct {
	ctx   context.Context
	event shared.DomainEvent
}

// Config controls the bus's background event-worker pool.
type Config struct {
	// Workers is the fixed size of the in-process event-dispatch pool (§5: "fixed size in the
	// low tens").
	Workers int
	// QueueSize bounds the number of events buffered ahead of the worker pool.
	QueueSize int
}

// New constructs a Bus and starts its background event-dispatch workers. Callers should invoke
// Shutdown during graceful termination to drain in-flight events. tracer wraps every Send/Ask
// dispatch and background event delivery in a span; pass otel.Tracer("noop") equivalent (any
// tracer backed by a no-op TracerProvider) when tracing is disabled.
func New(registry *Registry, uowFactory UnitOfWorkFactory, log *zap.Logger, tracer trace.Tracer, cfg Config) *Bus {
	if cfg.Workers <= 0 {
		cfg.Workers = 16
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	b := &Bus{
		registry:   registry,
		uowFactory: uowFactory,
		log:        log,
		tracer:     tracer,
		eventCh:    make(chan publishedEvent, cfg.QueueSize),
	}
	for i := 0; i < cfg.Workers; i++ {
		b.wg.Add(1)
		go b.eventWorker()
	}
	return b
}

// Send resolves cmd's handler, opens a request-scoped Unit-of-Work, invokes the handler, commits
// on success (rolling back on failure), and — only after a successful commit — drains any events
// the handler accumulated to the publication queue.
func (b *Bus) Send(ctx context.Context, cmd Command) (interface{}, error) {
	t := reflect.TypeOf(cmd)

	ctx, span := b.tracer.Start(ctx, "bus.Send "+t.String(),
		trace.WithAttributes(attribute.String("bus.command", t.String())))
	defer span.End()

	handler, ok := b.registry.commands[t]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownRequestType, t)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	uow, commit, rollback, err := b.uowFactory(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	result, err := handler(ctx, uow, cmd)
	if err != nil {
		if rbErr := rollback(); rbErr != nil {
			b.log.Error("unit of work rollback failed", zap.Error(rbErr), zap.String("command", t.String()))
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if cerr := commit(); cerr != nil {
		span.SetStatus(codes.Error, cerr.Error())
		return nil, cerr
	}

	if aggregate, ok := result.(eventSource); ok {
		b.publishDrained(ctx, aggregate.Events())
	}
	return result, nil
}

// Ask resolves q's handler and invokes it under a read-scoped Unit-of-Work.
func (b *Bus) Ask(ctx context.Context, q Query) (interface{}, error) {
	t := reflect.TypeOf(q)

	ctx, span := b.tracer.Start(ctx, "bus.Ask "+t.String(),
		trace.WithAttributes(attribute.String("bus.query", t.String())))
	defer span.End()

	handler, ok := b.registry.queries[t]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownRequestType, t)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	uow, commit, rollback, err := b.uowFactory(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	result, err := handler(ctx, uow, q)
	if err != nil {
		_ = rollback()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if cerr := commit(); cerr != nil {
		span.SetStatus(codes.Error, cerr.Error())
		return nil, cerr
	}
	return result, nil
}

// eventSource lets Send() drain events off whatever aggregate a handler returns, without coupling
// the bus to any particular domain package.
type eventSource interface {
	Events() []shared.DomainEvent
}

// Publish enqueues events for asynchronous, best-effort delivery to subscribers. Use this
// directly when a handler's result isn't an eventSource (e.g. it returns a DTO it already built).
func (b *Bus) Publish(ctx context.Context, events ...shared.DomainEvent) {
	b.publishDrained(ctx, events)
}

func (b *Bus) publishDrained(ctx context.Context, events []shared.DomainEvent) {
	for _, e := range events {
		select {
		case b.eventCh <- publishedEvent{ctx: ctx, event: e}:
		default:
			b.log.Error("event queue full, dropping event", zap.String("event", e.EventName()))
		}
	}
}

func (b *Bus) eventWorker() {
	defer b.wg.Done()
	for pe := range b.eventCh {
		b.dispatchOne(pe)
	}
}

func (b *Bus) dispatchOne(pe publishedEvent) {
	t := reflect.TypeOf(pe.event)
	subs := b.registry.subscribers[t]
	if len(subs) == 0 {
		return
	}

	ctx, span := b.tracer.Start(context.Background(), "bus.dispatch "+pe.event.EventName(),
		trace.WithAttributes(attribute.String("bus.event", pe.event.EventName()), attribute.Int("bus.subscribers", len(subs))))
	defer span.End()

	g, ctx := errgroup.WithContext(ctx)
	for _, sub := range subs {
		sub := sub
		g.Go(func() error {
			if err := sub(ctx, pe.event); err != nil {
				b.log.Error("event subscriber failed",
					zap.String("event", pe.event.EventName()),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Shutdown closes the event queue and waits for in-flight subscribers to finish.
func (b *Bus) Shutdown() {
	close(b.eventCh)
	b.wg.Wait()
}
