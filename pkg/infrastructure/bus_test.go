package infrastructure

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/siddharth-2002/API-Workindia/pkg/application"
	"github.com/siddharth-2002/API-Workindia/pkg/domain"
)

type testMessage struct {
	name string
	data string
}

func (m testMessage) CommandName() string { return m.name }
func (m testMessage) QueryName() string   { return m.name }
func (m testMessage) EventName() string   { return m.name }
func (m testMessage) Payload() string     { return m.data }

type commandHandlerFunc func(ctx context.Context, cmd domain.Command[string]) error

func (f commandHandlerFunc) Handle(ctx context.Context, cmd domain.Command[string]) error {
	return f(ctx, cmd)
}

type queryHandlerFunc func(ctx context.Context, q domain.Query[string]) (int, error)

func (f queryHandlerFunc) Handle(ctx context.Context, q domain.Query[string]) (int, error) {
	return f(ctx, q)
}

type eventHandlerFunc func(ctx context.Context, e domain.Event[string]) error

func (f eventHandlerFunc) Handle(ctx context.Context, e domain.Event[string]) error {
	return f(ctx, e)
}

func TestSimpleCommandBus_Dispatch(t *testing.T) {
	bus := NewSimpleCommandBus[domain.Command[string], string](application.NewNopLogger())

	var received string
	bus.RegisterHandler("Greet", commandHandlerFunc(func(_ context.Context, cmd domain.Command[string]) error {
		received = cmd.Payload()
		return nil
	}))

	if err := bus.Dispatch(context.Background(), testMessage{name: "Greet", data: "hello"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received != "hello" {
		t.Errorf("expected handler to receive payload, got %q", received)
	}

	if err := bus.Dispatch(context.Background(), testMessage{name: "Unknown"}); !errors.Is(err, ErrNoHandler) {
		t.Errorf("expected ErrNoHandler, got %v", err)
	}
}

func TestSimpleCommandBus_PropagatesHandlerError(t *testing.T) {
	bus := NewSimpleCommandBus[domain.Command[string], string](application.NewNopLogger())
	boom := errors.New("boom")
	bus.RegisterHandler("Fail", commandHandlerFunc(func(context.Context, domain.Command[string]) error { return boom }))

	if err := bus.Dispatch(context.Background(), testMessage{name: "Fail"}); !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

func TestSimpleQueryBus_Dispatch(t *testing.T) {
	bus := NewSimpleQueryBus[domain.Query[string], string, int](application.NewNopLogger())
	bus.RegisterHandler("Length", queryHandlerFunc(func(_ context.Context, q domain.Query[string]) (int, error) {
		return len(q.Payload()), nil
	}))

	got, err := bus.Dispatch(context.Background(), testMessage{name: "Length", data: "seats"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 5 {
		t.Errorf("expected 5, got %d", got)
	}

	if _, err := bus.Dispatch(context.Background(), testMessage{name: "Unknown"}); !errors.Is(err, ErrNoHandler) {
		t.Errorf("expected ErrNoHandler, got %v", err)
	}
}

func TestSimpleQueryBus_RespectsContext(t *testing.T) {
	bus := NewSimpleQueryBus[domain.Query[string], string, int](application.NewNopLogger())
	release := make(chan struct{})
	defer close(release)
	bus.RegisterHandler("Slow", queryHandlerFunc(func(context.Context, domain.Query[string]) (int, error) {
		<-release
		return 0, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := bus.Dispatch(ctx, testMessage{name: "Slow"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSimpleEventBus_Publish(t *testing.T) {
	bus := NewSimpleEventBus[domain.Event[string], string](application.NewNopLogger())

	var calls atomic.Int32
	for i := 0; i < 3; i++ {
		bus.RegisterHandler("SeatsBooked", eventHandlerFunc(func(context.Context, domain.Event[string]) error {
			calls.Add(1)
			return nil
		}))
	}

	if err := bus.Publish(context.Background(), testMessage{name: "SeatsBooked"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 handler calls, got %d", calls.Load())
	}

	if err := bus.Publish(context.Background(), testMessage{name: "Nobody"}); err != nil {
		t.Errorf("expected publish without handlers to succeed, got %v", err)
	}
}

func TestSimpleEventBus_JoinsHandlerErrors(t *testing.T) {
	bus := NewSimpleEventBus[domain.Event[string], string](application.NewNopLogger())
	first, second := errors.New("first"), errors.New("second")
	bus.RegisterHandler("E", eventHandlerFunc(func(context.Context, domain.Event[string]) error { return first }))
	bus.RegisterHandler("E", eventHandlerFunc(func(context.Context, domain.Event[string]) error { return second }))
	bus.RegisterHandler("E", eventHandlerFunc(func(context.Context, domain.Event[string]) error { return nil }))

	err := bus.Publish(context.Background(), testMessage{name: "E"})
	if !errors.Is(err, first) || !errors.Is(err, second) {
		t.Fatalf("expected both handler errors, got %v", err)
	}
}

func TestGenerateUUID(t *testing.T) {
	a, b := GenerateUUID(), GenerateUUID()
	if len(a) != 36 || a == b {
		t.Errorf("expected distinct uuids, got %q and %q", a, b)
	}
}
