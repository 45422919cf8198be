package infrastructure

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
)

func newSeededMemoryStore(t *testing.T, seats ...int) (*MemoryStore, []domain.Train) {
	t.Helper()
	store := NewMemoryStore(pkgApp.NewNopLogger())

	trains := make([]domain.Train, 0, len(seats))
	for _, n := range seats {
		trains = append(trains, domain.Train{TrainNumber: "T", Source: "A", Destination: "B", TotalSeats: n, AvailableSeats: n})
	}
	created, err := store.CreateTrains(context.Background(), trains)
	if err != nil {
		t.Fatalf("seeding trains: %v", err)
	}
	return store, created
}

// holdLock mantém o trem bloqueado por outra transação até a função devolvida ser chamada.
func holdLock(t *testing.T, store *MemoryStore, trainID int64) func() {
	t.Helper()

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.WithinTx(context.Background(), func(ctx context.Context, tx domain.Tx) error {
			if _, err := store.LockForUpdate(ctx, tx, trainID); err != nil {
				close(locked)
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	return func() {
		close(release)
		if err := <-done; err != nil {
			t.Errorf("holder transaction failed: %v", err)
		}
	}
}

func TestMemoryStore_LockTimeout(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5)
	release := holdLock(t, store, trains[0].ID)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		_, err := store.LockForUpdate(ctx, tx, trains[0].ID)
		return err
	})
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestMemoryStore_DifferentTrainsDoNotBlock(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5, 5)
	release := holdLock(t, store, trains[0].ID)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := store.LockForUpdate(ctx, tx, trains[1].ID); err != nil {
			return err
		}
		return store.DecrementAvailable(ctx, tx, trains[1].ID, 2)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("booking on another train waited %s", elapsed)
	}

	train, _ := store.FindByID(context.Background(), trains[1].ID)
	if train.AvailableSeats != 3 {
		t.Errorf("expected 3 available seats, got %d", train.AvailableSeats)
	}
}

func TestMemoryStore_UncommittedChangesAreInvisible(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5)
	ctx := context.Background()
	id := trains[0].ID

	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := store.LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if err := store.DecrementAvailable(ctx, tx, id, 2); err != nil {
			return err
		}
		if err := store.Insert(ctx, tx, domain.Booking{ID: "b1", UserID: 1, TrainID: id, Seats: 2}); err != nil {
			return err
		}

		train, _ := store.FindByID(ctx, id)
		if train.AvailableSeats != 5 {
			t.Errorf("reader saw uncommitted availability %d", train.AvailableSeats)
		}
		booked, _ := store.SumSeatsByTrain(ctx, id)
		if booked != 0 {
			t.Errorf("reader saw uncommitted booking")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	train, _ := store.FindByID(ctx, id)
	booked, _ := store.SumSeatsByTrain(ctx, id)
	if train.AvailableSeats != 3 || booked != 2 {
		t.Errorf("expected committed state 3 available and 2 booked, got %d and %d", train.AvailableSeats, booked)
	}
}

func TestMemoryStore_RollbackRestoresAndReleases(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5)
	ctx := context.Background()
	id := trains[0].ID
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := store.LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if err := store.DecrementAvailable(ctx, tx, id, 4); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	train, _ := store.FindByID(ctx, id)
	if train.AvailableSeats != 5 {
		t.Errorf("expected rollback to keep 5 seats, got %d", train.AvailableSeats)
	}

	lockCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	err = store.WithinTx(lockCtx, func(ctx context.Context, tx domain.Tx) error {
		_, err := store.LockForUpdate(ctx, tx, id)
		return err
	})
	if err != nil {
		t.Fatalf("expected lock to be released after rollback, got %v", err)
	}
}

func TestMemoryStore_MutationsRequireLock(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5)
	id := trains[0].ID

	mutations := map[string]func(ctx context.Context, tx domain.Tx) error{
		"decrement": func(ctx context.Context, tx domain.Tx) error { return store.DecrementAvailable(ctx, tx, id, 1) },
		"increment": func(ctx context.Context, tx domain.Tx) error { return store.IncrementAvailable(ctx, tx, id, 1) },
		"set seats": func(ctx context.Context, tx domain.Tx) error { return store.SetSeats(ctx, tx, id, 5, 4) },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			err := store.WithinTx(context.Background(), mutate)
			if !errors.Is(err, domain.ErrInvalidState) {
				t.Fatalf("expected ErrInvalidState without the lock, got %v", err)
			}
		})
	}
}

func TestMemoryStore_SeatBounds(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5)
	ctx := context.Background()
	id := trains[0].ID

	tests := []struct {
		name    string
		mutate  func(ctx context.Context, tx domain.Tx) error
		wantErr error
	}{
		{"release beyond total", func(ctx context.Context, tx domain.Tx) error { return store.IncrementAvailable(ctx, tx, id, 1) }, domain.ErrInvalidState},
		{"take more than available", func(ctx context.Context, tx domain.Tx) error { return store.DecrementAvailable(ctx, tx, id, 6) }, domain.ErrInvalidState},
		{"available above total", func(ctx context.Context, tx domain.Tx) error { return store.SetSeats(ctx, tx, id, 5, 6) }, domain.ErrInvalidState},
		{"negative available", func(ctx context.Context, tx domain.Tx) error { return store.SetSeats(ctx, tx, id, 5, -1) }, domain.ErrInvalidState},
		{"release after take", func(ctx context.Context, tx domain.Tx) error {
			if err := store.DecrementAvailable(ctx, tx, id, 2); err != nil {
				return err
			}
			return store.IncrementAvailable(ctx, tx, id, 2)
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
				if _, err := store.LockForUpdate(ctx, tx, id); err != nil {
					return err
				}
				return tt.mutate(ctx, tx)
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			train, _ := store.FindByID(ctx, id)
			if train.AvailableSeats != 5 || train.TotalSeats != 5 {
				t.Errorf("expected train to stay at 5/5, got %d/%d", train.AvailableSeats, train.TotalSeats)
			}
		})
	}
}

func TestMemoryStore_RejectsForeignAndFinishedTransactions(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5)
	other := NewMemoryStore(pkgApp.NewNopLogger())
	ctx := context.Background()

	err := other.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		_, err := store.LockForUpdate(ctx, tx, trains[0].ID)
		return err
	})
	if !errors.Is(err, domain.ErrTransactionFailure) {
		t.Errorf("expected ErrTransactionFailure for foreign tx, got %v", err)
	}

	var leaked domain.Tx
	if err := store.WithinTx(ctx, func(_ context.Context, tx domain.Tx) error {
		leaked = tx
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.LockForUpdate(ctx, leaked, trains[0].ID); !errors.Is(err, domain.ErrTransactionFailure) {
		t.Errorf("expected ErrTransactionFailure for finished tx, got %v", err)
	}
}

func TestMemoryStore_FindByUserJoinsTrain(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5)
	ctx := context.Background()
	id := trains[0].ID

	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if _, err := store.LockForUpdate(ctx, tx, id); err != nil {
			return err
		}
		if err := store.DecrementAvailable(ctx, tx, id, 1); err != nil {
			return err
		}
		return store.Insert(ctx, tx, domain.Booking{ID: "b1", UserID: 9, TrainID: id, Seats: 1, CreatedAt: time.Now()})
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bookings, err := store.FindByUser(ctx, 9)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bookings) != 1 || bookings[0].BookingID != "b1" || bookings[0].Source != "A" || bookings[0].TrainNumber != "T" {
		t.Errorf("unexpected bookings: %+v", bookings)
	}

	none, _ := store.FindByUser(ctx, 10)
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", none)
	}
}

func TestMemoryStore_BookingIDIsReservedAcrossTransactions(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5, 5)
	ctx := context.Background()

	inserted := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
			err := store.Insert(ctx, tx, domain.Booking{ID: "same", UserID: 1, TrainID: trains[0].ID, Seats: 1})
			close(inserted)
			if err != nil {
				return err
			}
			<-release
			return nil
		})
	}()
	<-inserted

	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return store.Insert(ctx, tx, domain.Booking{ID: "same", UserID: 2, TrainID: trains[1].ID, Seats: 1})
	})
	close(release)
	if firstErr := <-done; firstErr != nil {
		t.Fatalf("first transaction failed: %v", firstErr)
	}
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for a reused booking id, got %v", err)
	}

	count := 0
	for _, b := range store.bookings {
		if b.ID == "same" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected one booking with id same, got %d", count)
	}
}

func TestMemoryStore_RolledBackBookingIDCanBeReused(t *testing.T) {
	store, trains := newSeededMemoryStore(t, 5)
	ctx := context.Background()
	booking := domain.Booking{ID: "retry", UserID: 1, TrainID: trains[0].ID, Seats: 1}

	failure := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		if err := store.Insert(ctx, tx, booking); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	if err := store.WithinTx(ctx, func(ctx context.Context, tx domain.Tx) error {
		return store.Insert(ctx, tx, booking)
	}); err != nil {
		t.Fatalf("expected reuse after rollback, got %v", err)
	}
}
