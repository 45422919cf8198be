package adapter

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/siddharth-2002/API-Workindia/pkg/application"
	"github.com/siddharth-2002/API-Workindia/pkg/domain"
)

type seatsChanged struct {
	TrainID   int64 `json:"trainId"`
	Available int   `json:"available"`
}

type seatsChangedEvent struct {
	data seatsChanged
}

func (e seatsChangedEvent) EventName() string    { return "SeatsChanged" }
func (e seatsChangedEvent) Payload() seatsChanged { return e.data }

type forwardingHandler struct {
	received chan seatsChanged
}

func (h forwardingHandler) Handle(_ context.Context, event domain.Event[seatsChanged]) error {
	select {
	case h.received <- event.Payload():
	default:
	}
	return nil
}

func TestWatermillEventBus_DeliversOverGoChannel(t *testing.T) {
	logger := application.NewNopLogger()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, NewWatermillLoggerAdapter(logger))
	defer pubSub.Close()

	bus := NewWatermillEventBus[domain.Event[seatsChanged], seatsChanged](pubSub, pubSub, logger)
	defer bus.Close()

	received := make(chan seatsChanged, 1)
	bus.RegisterHandler("SeatsChanged", forwardingHandler{received: received})

	// A inscrição acontece numa goroutine; publica até o consumidor estar pronto.
	deadline := time.After(2 * time.Second)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := bus.Publish(context.Background(), seatsChangedEvent{data: seatsChanged{TrainID: 7, Available: 3}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		select {
		case got := <-received:
			if got.TrainID != 7 || got.Available != 3 {
				t.Fatalf("unexpected payload: %+v", got)
			}
			return
		case <-ticker.C:
		case <-deadline:
			t.Fatal("event was not delivered")
		}
	}
}

type failingHandler struct {
	calls *atomic.Int64
}

func (h failingHandler) Handle(context.Context, domain.Event[seatsChanged]) error {
	h.calls.Add(1)
	return errors.New("cache unavailable")
}

func TestWatermillEventBus_FailingHandlerIsRetriedThenDropped(t *testing.T) {
	logger := application.NewNopLogger()
	// Persistent entrega ao assinante tardio a mensagem publicada antes da inscrição.
	pubSub := gochannel.NewGoChannel(gochannel.Config{Persistent: true}, NewWatermillLoggerAdapter(logger))
	defer pubSub.Close()

	bus := NewWatermillEventBus[domain.Event[seatsChanged], seatsChanged](pubSub, pubSub, logger).
		WithRetry(middleware.Retry{MaxRetries: 2, InitialInterval: time.Millisecond, Multiplier: 1})
	defer bus.Close()

	if err := bus.Publish(context.Background(), seatsChangedEvent{data: seatsChanged{TrainID: 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	calls := &atomic.Int64{}
	bus.RegisterHandler("SeatsChanged", failingHandler{calls: calls})

	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 deliveries (1 + 2 retries), got %d", got)
	}
}

func TestNewPubSub_UnknownDriver(t *testing.T) {
	if _, err := NewPubSub(PubSubConfig{Driver: "carrier-pigeon"}, nil, NewWatermillLoggerAdapter(application.NewNopLogger())); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestNewPubSub_RedisRequiresClient(t *testing.T) {
	if _, err := NewPubSub(PubSubConfig{Driver: DriverRedis}, nil, NewWatermillLoggerAdapter(application.NewNopLogger())); err == nil {
		t.Fatal("expected error without redis client")
	}
}
