package infrastructure

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
)

// GormStore implementa o armazenamento sobre PostgreSQL ou MySQL.
// O bloqueio de cada trem é o SELECT ... FOR UPDATE da própria linha.
type GormStore struct {
	db     *gorm.DB
	logger pkgApp.AppLogger
}

func NewGormStore(db *gorm.DB, logger pkgApp.AppLogger) *GormStore {
	return &GormStore{
		db:     db,
		logger: logger,
	}
}

type gormTx struct {
	id     string
	db     *gorm.DB
	locked map[int64]struct{}
}

func (t *gormTx) ID() string {
	return t.id
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	txID := uuid.NewString()

	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		fnErr = fn(ctx, &gormTx{id: txID, db: db, locked: make(map[int64]struct{})})
		return fnErr
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err == nil {
		return nil
	}

	// fn já devolve erros classificados; o que sobra é falha ao abrir ou confirmar a transação.
	if fnErr != nil {
		return fnErr
	}
	pkgApp.LogError(ctx, s.logger, "failed to commit transaction", err, map[string]interface{}{
		"tx_id": txID,
	})
	return classifyStorageError(ctx, fmt.Errorf("commit: %w", err))
}

func (s *GormStore) openTx(tx domain.Tx) (*gormTx, error) {
	t, ok := tx.(*gormTx)
	if !ok {
		return nil, fmt.Errorf("%w: transaction does not belong to this store", domain.ErrTransactionFailure)
	}
	return t, nil
}

func (s *GormStore) lockedTx(tx domain.Tx, trainID int64) (*gormTx, error) {
	t, err := s.openTx(tx)
	if err != nil {
		return nil, err
	}
	if _, ok := t.locked[trainID]; !ok {
		return nil, fmt.Errorf("%w: train %d is not locked by transaction %s", domain.ErrInvalidState, trainID, t.id)
	}
	return t, nil
}

func (s *GormStore) LockForUpdate(ctx context.Context, tx domain.Tx, trainID int64) (domain.Train, error) {
	t, err := s.openTx(tx)
	if err != nil {
		return domain.Train{}, err
	}

	var train domain.Train
	err = t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", trainID).
		Take(&train).Error
	if err != nil {
		return domain.Train{}, classifyStorageError(ctx, fmt.Errorf("lock train %d: %w", trainID, err))
	}

	t.locked[trainID] = struct{}{}
	return train, nil
}

func (s *GormStore) DecrementAvailable(ctx context.Context, tx domain.Tx, trainID int64, n int) error {
	t, err := s.lockedTx(tx, trainID)
	if err != nil {
		return err
	}

	result := t.db.WithContext(ctx).
		Model(&domain.Train{}).
		Where("id = ?", trainID).
		UpdateColumn("available_seats", gorm.Expr("available_seats - ?", n))
	if result.Error != nil {
		return classifyStorageError(ctx, fmt.Errorf("decrement train %d: %w", trainID, result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrTrainNotFound, trainID)
	}
	return nil
}

func (s *GormStore) IncrementAvailable(ctx context.Context, tx domain.Tx, trainID int64, n int) error {
	t, err := s.lockedTx(tx, trainID)
	if err != nil {
		return err
	}
	if n <= 0 {
		return fmt.Errorf("%w: cannot release %d seats", domain.ErrInvalidState, n)
	}

	result := t.db.WithContext(ctx).
		Model(&domain.Train{}).
		Where("id = ? AND available_seats + ? <= total_seats", trainID, n).
		UpdateColumn("available_seats", gorm.Expr("available_seats + ?", n))
	if result.Error != nil {
		return classifyStorageError(ctx, fmt.Errorf("increment train %d: %w", trainID, result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: releasing %d seats would exceed total seats of train %d", domain.ErrInvalidState, n, trainID)
	}
	return nil
}

func (s *GormStore) SetSeats(ctx context.Context, tx domain.Tx, trainID int64, totalSeats, availableSeats int) error {
	if totalSeats < 0 || availableSeats < 0 || availableSeats > totalSeats {
		return fmt.Errorf("%w: available %d, total %d", domain.ErrInvalidState, availableSeats, totalSeats)
	}
	t, err := s.lockedTx(tx, trainID)
	if err != nil {
		return err
	}

	result := t.db.WithContext(ctx).
		Model(&domain.Train{}).
		Where("id = ?", trainID).
		UpdateColumns(map[string]interface{}{
			"total_seats":     totalSeats,
			"available_seats": availableSeats,
		})
	if result.Error != nil {
		return classifyStorageError(ctx, fmt.Errorf("set seats of train %d: %w", trainID, result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: id %d", domain.ErrTrainNotFound, trainID)
	}
	return nil
}

func (s *GormStore) Insert(ctx context.Context, tx domain.Tx, booking domain.Booking) error {
	t, err := s.openTx(tx)
	if err != nil {
		return err
	}

	if err := t.db.WithContext(ctx).Create(&booking).Error; err != nil {
		return classifyStorageError(ctx, fmt.Errorf("insert booking %s: %w", booking.ID, err))
	}
	return nil
}

func (s *GormStore) FindByUser(ctx context.Context, userID int64) ([]domain.UserBooking, error) {
	var bookings []domain.UserBooking

	err := s.db.WithContext(ctx).
		Table("bookings").
		Select("bookings.id AS booking_id, bookings.number_of_seats AS seats, bookings.train_id, " +
			"trains.train_number, trains.source, trains.destination, bookings.created_at").
		Joins("JOIN trains ON trains.id = bookings.train_id").
		Where("bookings.user_id = ?", userID).
		Order("bookings.created_at").
		Scan(&bookings).Error
	if err != nil {
		pkgApp.LogError(ctx, s.logger, "failed to find bookings", err, map[string]interface{}{
			"userID": userID,
		})
		return nil, classifyStorageError(ctx, err)
	}
	if bookings == nil {
		bookings = []domain.UserBooking{}
	}
	return bookings, nil
}

func (s *GormStore) SumSeatsByTrain(ctx context.Context, trainID int64) (int, error) {
	var total int64

	err := s.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Select("COALESCE(SUM(number_of_seats), 0)").
		Where("train_id = ?", trainID).
		Scan(&total).Error
	if err != nil {
		return 0, classifyStorageError(ctx, err)
	}
	return int(total), nil
}

func (s *GormStore) CreateTrains(ctx context.Context, trains []domain.Train) ([]domain.Train, error) {
	if err := s.db.WithContext(ctx).Create(&trains).Error; err != nil {
		pkgApp.LogError(ctx, s.logger, "failed to create trains", err, map[string]interface{}{
			"count": len(trains),
		})
		return nil, classifyStorageError(ctx, err)
	}

	pkgApp.LogInfo(ctx, s.logger, "trains created", map[string]interface{}{
		"count": len(trains),
	})
	return trains, nil
}

func (s *GormStore) FindByID(ctx context.Context, trainID int64) (domain.Train, error) {
	var train domain.Train
	if err := s.db.WithContext(ctx).Where("id = ?", trainID).Take(&train).Error; err != nil {
		return domain.Train{}, classifyStorageError(ctx, fmt.Errorf("find train %d: %w", trainID, err))
	}
	return train, nil
}

func (s *GormStore) FindByRoute(ctx context.Context, source, destination string) ([]domain.Train, error) {
	var trains []domain.Train

	err := s.db.WithContext(ctx).
		Where("source = ? AND destination = ?", source, destination).
		Order("id").
		Find(&trains).Error
	if err != nil {
		pkgApp.LogError(ctx, s.logger, "failed to find trains", err, map[string]interface{}{
			"source":      source,
			"destination": destination,
		})
		return nil, classifyStorageError(ctx, err)
	}
	return trains, nil
}
