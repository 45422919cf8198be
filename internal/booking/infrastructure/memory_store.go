package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
)

// MemoryStore é uma implementação em memória de todo o armazenamento de reservas.
// Cada trem tem um bloqueio exclusivo próprio; as alterações de uma transação ficam
// num rascunho e só se tornam visíveis para leitores no commit.
type MemoryStore struct {
	mu       sync.RWMutex
	trains   map[int64]domain.Train
	bookings []domain.Booking
	nextID   int64

	// ids confirmados e os reservados por transações abertas
	bookingIDs map[string]struct{}

	locksMu sync.Mutex
	locks   map[int64]chan struct{}

	logger pkgApp.AppLogger
}

func NewMemoryStore(logger pkgApp.AppLogger) *MemoryStore {
	return &MemoryStore{
		trains:     make(map[int64]domain.Train),
		bookingIDs: make(map[string]struct{}),
		locks:      make(map[int64]chan struct{}),
		logger:     logger,
	}
}

type memTx struct {
	id       string
	store    *MemoryStore
	held     []int64
	staged   map[int64]domain.Train
	bookings []domain.Booking
	done     bool
}

func (t *memTx) ID() string {
	return t.id
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) (err error) {
	tx := &memTx{
		id:     uuid.NewString(),
		store:  s,
		staged: make(map[int64]domain.Train),
	}

	defer func() {
		if r := recover(); r != nil {
			s.rollback(tx)
			panic(r)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		s.rollback(tx)
		return err
	}

	if err := ctx.Err(); err != nil {
		s.rollback(tx)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: commit: %v", domain.ErrTimeout, err)
		}
		return err
	}

	s.commit(tx)
	return nil
}

func (s *MemoryStore) commit(tx *memTx) {
	s.mu.Lock()
	for id, train := range tx.staged {
		s.trains[id] = train
	}
	s.bookings = append(s.bookings, tx.bookings...)
	s.mu.Unlock()

	s.finish(tx)
	pkgApp.LogTrace(context.Background(), s.logger, "memory transaction committed", map[string]interface{}{
		"tx_id":    tx.id,
		"trains":   len(tx.staged),
		"bookings": len(tx.bookings),
	})
}

func (s *MemoryStore) rollback(tx *memTx) {
	s.mu.Lock()
	for _, b := range tx.bookings {
		delete(s.bookingIDs, b.ID)
	}
	s.mu.Unlock()

	tx.staged = nil
	tx.bookings = nil
	s.finish(tx)
	pkgApp.LogTrace(context.Background(), s.logger, "memory transaction rolled back", map[string]interface{}{
		"tx_id": tx.id,
	})
}

func (s *MemoryStore) finish(tx *memTx) {
	tx.done = true
	for _, id := range tx.held {
		<-s.trainLock(id)
	}
	tx.held = nil
}

func (s *MemoryStore) trainLock(trainID int64) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.locks[trainID]
	if !ok {
		lock = make(chan struct{}, 1)
		s.locks[trainID] = lock
	}
	return lock
}

func (s *MemoryStore) openTx(tx domain.Tx) (*memTx, error) {
	t, ok := tx.(*memTx)
	if !ok || t.store != s {
		return nil, fmt.Errorf("%w: transaction does not belong to this store", domain.ErrTransactionFailure)
	}
	if t.done {
		return nil, fmt.Errorf("%w: transaction %s already finished", domain.ErrTransactionFailure, t.id)
	}
	return t, nil
}

func (t *memTx) holds(trainID int64) bool {
	_, ok := t.staged[trainID]
	return ok
}

func (s *MemoryStore) LockForUpdate(ctx context.Context, tx domain.Tx, trainID int64) (domain.Train, error) {
	t, err := s.openTx(tx)
	if err != nil {
		return domain.Train{}, err
	}
	if t.holds(trainID) {
		return t.staged[trainID], nil
	}

	if _, ok := s.committedTrain(trainID); !ok {
		return domain.Train{}, fmt.Errorf("%w: id %d", domain.ErrTrainNotFound, trainID)
	}

	select {
	case s.trainLock(trainID) <- struct{}{}:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return domain.Train{}, fmt.Errorf("%w: train %d", domain.ErrTimeout, trainID)
		}
		return domain.Train{}, ctx.Err()
	}
	t.held = append(t.held, trainID)

	// Relê depois de obter o bloqueio: a imagem anterior pode ter sido alterada pelo último dono.
	train, _ := s.committedTrain(trainID)
	t.staged[trainID] = train
	return train, nil
}

func (s *MemoryStore) committedTrain(trainID int64) (domain.Train, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	train, ok := s.trains[trainID]
	return train, ok
}

func (s *MemoryStore) lockedTrain(tx domain.Tx, trainID int64) (*memTx, domain.Train, error) {
	t, err := s.openTx(tx)
	if err != nil {
		return nil, domain.Train{}, err
	}
	if !t.holds(trainID) {
		return nil, domain.Train{}, fmt.Errorf("%w: train %d is not locked by transaction %s", domain.ErrInvalidState, trainID, t.id)
	}
	return t, t.staged[trainID], nil
}

func (s *MemoryStore) DecrementAvailable(_ context.Context, tx domain.Tx, trainID int64, n int) error {
	t, train, err := s.lockedTrain(tx, trainID)
	if err != nil {
		return err
	}
	if n <= 0 || train.AvailableSeats-n < 0 {
		return fmt.Errorf("%w: cannot take %d of %d available seats", domain.ErrInvalidState, n, train.AvailableSeats)
	}
	train.AvailableSeats -= n
	t.staged[trainID] = train
	return nil
}

func (s *MemoryStore) IncrementAvailable(_ context.Context, tx domain.Tx, trainID int64, n int) error {
	t, train, err := s.lockedTrain(tx, trainID)
	if err != nil {
		return err
	}
	if n <= 0 || train.AvailableSeats+n > train.TotalSeats {
		return fmt.Errorf("%w: releasing %d seats would exceed total of %d", domain.ErrInvalidState, n, train.TotalSeats)
	}
	train.AvailableSeats += n
	t.staged[trainID] = train
	return nil
}

func (s *MemoryStore) SetSeats(_ context.Context, tx domain.Tx, trainID int64, totalSeats, availableSeats int) error {
	if totalSeats < 0 || availableSeats < 0 || availableSeats > totalSeats {
		return fmt.Errorf("%w: available %d, total %d", domain.ErrInvalidState, availableSeats, totalSeats)
	}
	t, train, err := s.lockedTrain(tx, trainID)
	if err != nil {
		return err
	}
	train.TotalSeats = totalSeats
	train.AvailableSeats = availableSeats
	t.staged[trainID] = train
	return nil
}

func (s *MemoryStore) Insert(_ context.Context, tx domain.Tx, booking domain.Booking) error {
	t, err := s.openTx(tx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.trains[booking.TrainID]; !ok {
		return fmt.Errorf("%w: id %d", domain.ErrTrainNotFound, booking.TrainID)
	}
	if _, taken := s.bookingIDs[booking.ID]; taken {
		return fmt.Errorf("%w: duplicate booking id %s", domain.ErrInvalidRequest, booking.ID)
	}
	s.bookingIDs[booking.ID] = struct{}{}

	t.bookings = append(t.bookings, booking)
	return nil
}

func (s *MemoryStore) FindByUser(_ context.Context, userID int64) ([]domain.UserBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.UserBooking, 0)
	for _, b := range s.bookings {
		if b.UserID != userID {
			continue
		}
		train := s.trains[b.TrainID]
		result = append(result, domain.UserBooking{
			BookingID:   b.ID,
			Seats:       b.Seats,
			TrainID:     b.TrainID,
			TrainNumber: train.TrainNumber,
			Source:      train.Source,
			Destination: train.Destination,
			CreatedAt:   b.CreatedAt,
		})
	}
	return result, nil
}

func (s *MemoryStore) SumSeatsByTrain(_ context.Context, trainID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, b := range s.bookings {
		if b.TrainID == trainID {
			total += b.Seats
		}
	}
	return total, nil
}

func (s *MemoryStore) CreateTrains(ctx context.Context, trains []domain.Train) ([]domain.Train, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]domain.Train, 0, len(trains))
	for _, train := range trains {
		s.nextID++
		train.ID = s.nextID
		s.trains[train.ID] = train
		created = append(created, train)
	}

	pkgApp.LogDebug(ctx, s.logger, "trains created", map[string]interface{}{"count": len(created)})
	return created, nil
}

func (s *MemoryStore) FindByID(_ context.Context, trainID int64) (domain.Train, error) {
	train, ok := s.committedTrain(trainID)
	if !ok {
		return domain.Train{}, fmt.Errorf("%w: id %d", domain.ErrTrainNotFound, trainID)
	}
	return train, nil
}

func (s *MemoryStore) FindByRoute(_ context.Context, source, destination string) ([]domain.Train, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Train, 0)
	for _, train := range s.trains {
		if train.Source == source && train.Destination == destination {
			result = append(result, train)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}
