package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
	pkgDomain "github.com/siddharth-2002/API-Workindia/pkg/domain"
)

// NewTrain é o cadastro de um trem; o inventário começa com todos os assentos disponíveis.
type NewTrain struct {
	TrainNumber string `json:"trainNumber"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	TotalSeats  int    `json:"totalSeats"`
}

// TrainAudit compara o contador do trem com a soma das reservas confirmadas.
type TrainAudit struct {
	TrainID        int64 `json:"trainId"`
	TotalSeats     int   `json:"totalSeats"`
	AvailableSeats int   `json:"availableSeats"`
	BookedSeats    int   `json:"bookedSeats"`
	Consistent     bool  `json:"consistent"`
}

// CatalogService concentra as operações administrativas sobre o inventário.
type CatalogService struct {
	store    domain.TrainStore
	eventBus InventoryEventBus
	logger   pkgApp.AppLogger
}

func NewCatalogService(store domain.TrainStore, eventBus InventoryEventBus, logger pkgApp.AppLogger) *CatalogService {
	return &CatalogService{
		store:    store,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *CatalogService) AddTrains(ctx context.Context, newTrains []NewTrain) ([]domain.Train, error) {
	if len(newTrains) == 0 {
		return nil, fmt.Errorf("%w: at least one train is required", domain.ErrInvalidRequest)
	}

	trains := make([]domain.Train, 0, len(newTrains))
	for i, nt := range newTrains {
		if strings.TrimSpace(nt.TrainNumber) == "" || strings.TrimSpace(nt.Source) == "" || strings.TrimSpace(nt.Destination) == "" {
			return nil, fmt.Errorf("%w: train %d: trainNumber, source and destination are required", domain.ErrInvalidRequest, i)
		}
		if nt.TotalSeats <= 0 {
			return nil, fmt.Errorf("%w: train %d: totalSeats must be a positive integer", domain.ErrInvalidRequest, i)
		}
		trains = append(trains, domain.Train{
			TrainNumber:    nt.TrainNumber,
			Source:         nt.Source,
			Destination:    nt.Destination,
			TotalSeats:     nt.TotalSeats,
			AvailableSeats: nt.TotalSeats,
		})
	}

	created, err := s.store.CreateTrains(ctx, trains)
	if err != nil {
		pkgApp.LogError(ctx, s.logger, "Erro ao cadastrar trens", err, map[string]interface{}{"count": len(trains)})
		return nil, err
	}

	for _, train := range created {
		s.publish(ctx, NewTrainAddedEvent(inventoryData(train)))
	}

	pkgApp.LogInfo(ctx, s.logger, "Trens cadastrados", map[string]interface{}{"count": len(created)})
	return created, nil
}

// UpdateTrainSeats sobrescreve os contadores de um trem sob o bloqueio da linha.
func (s *CatalogService) UpdateTrainSeats(ctx context.Context, trainID int64, totalSeats, availableSeats int) (domain.Train, error) {
	if totalSeats < 0 || availableSeats < 0 || availableSeats > totalSeats {
		return domain.Train{}, fmt.Errorf("%w: available seats must be between 0 and total seats", domain.ErrInvalidState)
	}

	var updated domain.Train
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		train, err := s.store.LockForUpdate(ctx, tx, trainID)
		if err != nil {
			return err
		}
		if err := s.store.SetSeats(ctx, tx, trainID, totalSeats, availableSeats); err != nil {
			return err
		}
		train.TotalSeats = totalSeats
		train.AvailableSeats = availableSeats
		updated = train
		return nil
	})
	if err != nil {
		pkgApp.LogError(ctx, s.logger, "Erro ao atualizar assentos", err, map[string]interface{}{"train_id": trainID})
		return domain.Train{}, err
	}

	s.publish(ctx, NewTrainSeatsUpdatedEvent(inventoryData(updated)))

	pkgApp.LogInfo(ctx, s.logger, "Assentos atualizados", map[string]interface{}{
		"train_id":        trainID,
		"total_seats":     totalSeats,
		"available_seats": availableSeats,
	})
	return updated, nil
}

func (s *CatalogService) AuditTrain(ctx context.Context, trainID int64) (TrainAudit, error) {
	train, err := s.store.FindByID(ctx, trainID)
	if err != nil {
		return TrainAudit{}, err
	}

	booked, err := s.store.SumSeatsByTrain(ctx, trainID)
	if err != nil {
		return TrainAudit{}, err
	}

	audit := TrainAudit{
		TrainID:        train.ID,
		TotalSeats:     train.TotalSeats,
		AvailableSeats: train.AvailableSeats,
		BookedSeats:    booked,
	}
	audit.Consistent = train.AvailableSeats >= 0 &&
		train.AvailableSeats <= train.TotalSeats &&
		train.TotalSeats == train.AvailableSeats+booked

	if !audit.Consistent {
		pkgApp.LogInfo(ctx, s.logger, "Inventário divergente", map[string]interface{}{"audit": audit})
	}
	return audit, nil
}

func (s *CatalogService) publish(ctx context.Context, event pkgDomain.Event[InventoryChangedData]) {
	if err := s.eventBus.Publish(ctx, event); err != nil {
		pkgApp.LogError(ctx, s.logger, "Erro ao publicar evento", err, map[string]interface{}{
			"event": event.EventName(),
		})
	}
}

func inventoryData(train domain.Train) InventoryChangedData {
	return InventoryChangedData{
		TrainID:        train.ID,
		Source:         train.Source,
		Destination:    train.Destination,
		TotalSeats:     train.TotalSeats,
		AvailableSeats: train.AvailableSeats,
	}
}
