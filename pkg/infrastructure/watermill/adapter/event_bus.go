package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/siddharth-2002/API-Workindia/pkg/application"
	"github.com/siddharth-2002/API-Workindia/pkg/domain"
)

const eventNameMetadataKey = "event_name"

// DefaultRetry limita as reentregas de um evento cujo manipulador falha.
func DefaultRetry(logger watermill.LoggerAdapter) middleware.Retry {
	return middleware.Retry{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2,
		Logger:          logger,
	}
}

// WatermillEventBus publica eventos como mensagens em qualquer transporte do watermill
// (gochannel, kafka, redis streams) e os entrega aos manipuladores inscritos no tópico.
type WatermillEventBus[E domain.Event[D], D any] struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[string][]application.EventHandler[E, D]
	mu         sync.RWMutex
	logger     application.AppLogger
	retry      middleware.Retry

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatermillEventBus[E domain.Event[D], D any](publisher message.Publisher, subscriber message.Subscriber, logger application.AppLogger) *WatermillEventBus[E, D] {
	ctx, cancel := context.WithCancel(context.Background())
	return &WatermillEventBus[E, D]{
		publisher:  publisher,
		subscriber: subscriber,
		handlers:   make(map[string][]application.EventHandler[E, D]),
		logger:     logger,
		retry:      DefaultRetry(NewWatermillLoggerAdapter(logger)),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// WithRetry troca a política de novas tentativas; deve ser chamado antes de RegisterHandler.
func (bus *WatermillEventBus[E, D]) WithRetry(retry middleware.Retry) *WatermillEventBus[E, D] {
	bus.retry = retry
	return bus
}

// RegisterHandler inscreve o barramento no tópico na primeira vez em que o evento recebe um manipulador.
func (bus *WatermillEventBus[E, D]) RegisterHandler(eventName string, handler application.EventHandler[E, D]) {
	bus.mu.Lock()
	first := len(bus.handlers[eventName]) == 0
	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	bus.mu.Unlock()

	if first {
		bus.wg.Add(1)
		go bus.consume(eventName)
	}
}

func (bus *WatermillEventBus[E, D]) consume(eventName string) {
	defer bus.wg.Done()

	messages, err := bus.subscriber.Subscribe(bus.ctx, eventName)
	if err != nil {
		application.LogError(bus.ctx, bus.logger, "error subscribing to event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return
	}

	handle := bus.retry.Middleware(func(msg *message.Message) ([]*message.Message, error) {
		return nil, bus.dispatch(eventName, msg)
	})

	for msg := range messages {
		bus.handleMessage(eventName, msg, handle)
	}
}

// handleMessage sempre reconhece a mensagem: falhas são tentadas de novo pelo middleware
// de retry e, esgotadas as tentativas, descartadas com log.
func (bus *WatermillEventBus[E, D]) handleMessage(eventName string, msg *message.Message, handle message.HandlerFunc) {
	ctx := msg.Context()

	if _, err := handle(msg); err != nil {
		application.LogError(ctx, bus.logger, "error handling event, discarding after retries", err, map[string]interface{}{
			"event_name": eventName,
			"message_id": msg.UUID,
		})
		msg.Ack()
		return
	}

	application.LogDebug(ctx, bus.logger, "event handled", map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	})
	msg.Ack()
}

func (bus *WatermillEventBus[E, D]) dispatch(eventName string, msg *message.Message) error {
	ctx := msg.Context()

	payload, err := application.UnmarshalPayload[D](msg.Payload)
	if err != nil {
		// Payload malformado nunca será processado.
		application.LogError(ctx, bus.logger, "error unmarshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
			"message_id": msg.UUID,
		})
		return nil
	}

	typedEvent, ok := interface{}(&dynamicEvent[D]{eventName: eventName, payload: payload}).(E)
	if !ok {
		application.LogError(ctx, bus.logger, "error asserting event type", nil, map[string]interface{}{
			"event_name": eventName,
		})
		return nil
	}

	bus.mu.RLock()
	handlers := append([]application.EventHandler[E, D](nil), bus.handlers[eventName]...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, typedEvent); err != nil {
			application.LogError(ctx, bus.logger, "error handling event", err, map[string]interface{}{
				"event_name": eventName,
				"message_id": msg.UUID,
			})
			return err
		}
	}
	return nil
}

func (bus *WatermillEventBus[E, D]) Publish(ctx context.Context, event E) error {
	eventName := event.EventName()

	payload, err := application.MarshalPayload(event.Payload())
	if err != nil {
		application.LogError(ctx, bus.logger, "error marshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventNameMetadataKey, eventName)
	if requestID, ok := application.RequestID(ctx); ok {
		msg.Metadata.Set("request_id", requestID)
	}

	if err := bus.publisher.Publish(eventName, msg); err != nil {
		application.LogError(ctx, bus.logger, "error publishing event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	application.LogDebug(ctx, bus.logger, "event published", map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	})
	return nil
}

// Close encerra as inscrições e espera os consumidores terminarem.
func (bus *WatermillEventBus[E, D]) Close() {
	bus.cancel()
	bus.wg.Wait()
}

type dynamicEvent[D any] struct {
	eventName string
	payload   D
}

func (e *dynamicEvent[D]) EventName() string {
	return e.eventName
}

func (e *dynamicEvent[D]) Payload() D {
	return e.payload
}
