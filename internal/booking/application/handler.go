package application

import (
	"context"
	"fmt"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
	pkgDomain "github.com/siddharth-2002/API-Workindia/pkg/domain"
)

type InventoryEventBus = pkgApp.EventBus[pkgDomain.Event[InventoryChangedData], InventoryChangedData]

type bookSeatsHandler struct {
	coordinator *Coordinator
	eventBus    InventoryEventBus
	logger      pkgApp.AppLogger
}

func (h *bookSeatsHandler) Handle(ctx context.Context, command pkgDomain.Command[BookSeatsData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	data := command.Payload()
	receipt, err := h.coordinator.Book(ctx, BookRequest{
		BookingID: data.BookingID,
		UserID:    data.UserID,
		TrainID:   data.TrainID,
		Seats:     data.Seats,
	})
	if err != nil {
		return err
	}

	event := NewSeatsBookedEvent(InventoryChangedData{
		TrainID:        receipt.Train.ID,
		Source:         receipt.Train.Source,
		Destination:    receipt.Train.Destination,
		TotalSeats:     receipt.Train.TotalSeats,
		AvailableSeats: receipt.Train.AvailableSeats,
		BookingID:      receipt.Booking.ID,
		Seats:          receipt.Booking.Seats,
	})
	// A reserva já foi confirmada; falha ao publicar não pode desfazê-la.
	if err := h.eventBus.Publish(ctx, event); err != nil {
		pkgApp.LogError(ctx, h.logger, "Erro ao publicar evento", err, map[string]interface{}{
			"booking_id": receipt.Booking.ID,
		})
	}

	return nil
}

func NewBookSeatsHandler(coordinator *Coordinator, eventBus InventoryEventBus, logger pkgApp.AppLogger) pkgApp.CommandHandler[pkgDomain.Command[BookSeatsData], BookSeatsData] {
	return &bookSeatsHandler{
		coordinator: coordinator,
		eventBus:    eventBus,
		logger:      logger,
	}
}

type findAvailabilityHandler struct {
	reader domain.AvailabilityReader
	logger pkgApp.AppLogger
}

func (h *findAvailabilityHandler) Handle(ctx context.Context, query pkgDomain.Query[FindAvailabilityData]) (AvailabilityResult, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return AvailabilityResult{}, ctx.Err()
	}

	data := query.Payload()
	if data.Source == "" || data.Destination == "" {
		return AvailabilityResult{}, fmt.Errorf("%w: source and destination are required", domain.ErrInvalidRequest)
	}

	trains, err := h.reader.FindByRoute(ctx, data.Source, data.Destination)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "Erro ao consultar disponibilidade", err, map[string]interface{}{
			"source":      data.Source,
			"destination": data.Destination,
		})
		return AvailabilityResult{}, err
	}
	if len(trains) == 0 {
		return AvailabilityResult{}, fmt.Errorf("%w: no trains for route %s -> %s", domain.ErrTrainNotFound, data.Source, data.Destination)
	}

	result := NewAvailabilityResult(trains)
	pkgApp.LogDebug(ctx, h.logger, "Disponibilidade encontrada", map[string]interface{}{
		"source":                data.Source,
		"destination":           data.Destination,
		"available_train_count": result.AvailableTrainCount,
	})
	return result, nil
}

func NewFindAvailabilityHandler(reader domain.AvailabilityReader, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[FindAvailabilityData], FindAvailabilityData, AvailabilityResult] {
	return &findAvailabilityHandler{
		reader: reader,
		logger: logger,
	}
}

type findUserBookingsHandler struct {
	repository domain.BookingRepository
	logger     pkgApp.AppLogger
}

func (h *findUserBookingsHandler) Handle(ctx context.Context, query pkgDomain.Query[FindUserBookingsData]) ([]domain.UserBooking, error) {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return nil, ctx.Err()
	}

	data := query.Payload()
	bookings, err := h.repository.FindByUser(ctx, data.UserID)
	if err != nil {
		pkgApp.LogError(ctx, h.logger, "Erro ao buscar reservas", err, map[string]interface{}{"user_id": data.UserID})
		return nil, err
	}

	pkgApp.LogDebug(ctx, h.logger, "Reservas encontradas", map[string]interface{}{
		"user_id": data.UserID,
		"count":   len(bookings),
	})
	return bookings, nil
}

func NewFindUserBookingsHandler(repo domain.BookingRepository, logger pkgApp.AppLogger) pkgApp.QueryHandler[pkgDomain.Query[FindUserBookingsData], FindUserBookingsData, []domain.UserBooking] {
	return &findUserBookingsHandler{
		repository: repo,
		logger:     logger,
	}
}

// AvailabilityInvalidator descarta leituras de disponibilidade guardadas para uma rota.
type AvailabilityInvalidator interface {
	Invalidate(ctx context.Context, source, destination string) error
}

type inventoryChangedEventHandler struct {
	invalidator AvailabilityInvalidator
	logger      pkgApp.AppLogger
}

func (h *inventoryChangedEventHandler) Handle(ctx context.Context, event pkgDomain.Event[InventoryChangedData]) error {
	if ctx.Err() != nil {
		pkgApp.LogError(ctx, h.logger, "Contexto cancelado", ctx.Err(), nil)
		return ctx.Err()
	}

	data := event.Payload()
	fields := map[string]interface{}{
		"event":           event.EventName(),
		"train_id":        data.TrainID,
		"available_seats": data.AvailableSeats,
	}

	if h.invalidator != nil {
		if err := h.invalidator.Invalidate(ctx, data.Source, data.Destination); err != nil {
			pkgApp.LogError(ctx, h.logger, "Erro ao invalidar cache de disponibilidade", err, fields)
			return err
		}
	}

	pkgApp.LogInfo(ctx, h.logger, "Evento recebido", fields)
	return nil
}

// NewInventoryChangedEventHandler aceita invalidator nil quando não há cache configurado.
func NewInventoryChangedEventHandler(invalidator AvailabilityInvalidator, logger pkgApp.AppLogger) pkgApp.EventHandler[pkgDomain.Event[InventoryChangedData], InventoryChangedData] {
	return &inventoryChangedEventHandler{
		invalidator: invalidator,
		logger:      logger,
	}
}
