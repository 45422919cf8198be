package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
	pkgApp "github.com/siddharth-2002/API-Workindia/pkg/application"
	pkgDomain "github.com/siddharth-2002/API-Workindia/pkg/domain"
)

// BookingMetrics recebe o desfecho de cada tentativa de reserva.
type BookingMetrics interface {
	ObserveBooking(outcome string, elapsed time.Duration)
}

type BookRequest struct {
	BookingID string
	UserID    int64
	TrainID   int64
	Seats     int
}

// Receipt traz a reserva confirmada e a imagem do trem após o decremento.
type Receipt struct {
	Booking domain.Booking
	Train   domain.Train
}

// Coordinator executa a reserva como uma unidade atômica: bloqueia o trem,
// confere a disponibilidade, decrementa e grava a reserva na mesma transação.
type Coordinator struct {
	txManager   domain.TxManager
	ledger      domain.Ledger
	bookings    domain.BookingRepository
	idGenerator pkgDomain.IDGenerator[string]
	lockTimeout time.Duration
	logger      pkgApp.AppLogger
	metrics     BookingMetrics
	now         func() time.Time
}

func NewCoordinator(
	txManager domain.TxManager,
	ledger domain.Ledger,
	bookings domain.BookingRepository,
	idGenerator pkgDomain.IDGenerator[string],
	lockTimeout time.Duration,
	logger pkgApp.AppLogger,
	metrics BookingMetrics,
) *Coordinator {
	return &Coordinator{
		txManager:   txManager,
		ledger:      ledger,
		bookings:    bookings,
		idGenerator: idGenerator,
		lockTimeout: lockTimeout,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}
}

func (c *Coordinator) Book(ctx context.Context, req BookRequest) (Receipt, error) {
	start := time.Now()
	receipt, err := c.book(ctx, req)
	if c.metrics != nil {
		c.metrics.ObserveBooking(domain.Outcome(err), time.Since(start))
	}
	return receipt, err
}

func (c *Coordinator) book(ctx context.Context, req BookRequest) (Receipt, error) {
	if req.Seats <= 0 {
		return Receipt{}, fmt.Errorf("%w: seatsToBook must be a positive integer", domain.ErrInvalidRequest)
	}
	if req.TrainID <= 0 {
		return Receipt{}, fmt.Errorf("%w: trainId must be a positive integer", domain.ErrInvalidRequest)
	}
	if req.UserID <= 0 {
		return Receipt{}, fmt.Errorf("%w: userId must be a positive integer", domain.ErrInvalidRequest)
	}

	bookingID := req.BookingID
	if bookingID == "" {
		bookingID = c.idGenerator()
	}

	fields := map[string]interface{}{
		"booking_id": bookingID,
		"user_id":    req.UserID,
		"train_id":   req.TrainID,
		"seats":      req.Seats,
	}

	txCtx := ctx
	if c.lockTimeout > 0 {
		var cancel context.CancelFunc
		txCtx, cancel = context.WithTimeout(ctx, c.lockTimeout)
		defer cancel()
	}

	var receipt Receipt
	err := c.txManager.WithinTx(txCtx, func(ctx context.Context, tx domain.Tx) error {
		train, err := c.ledger.LockForUpdate(ctx, tx, req.TrainID)
		if err != nil {
			return err
		}

		if train.AvailableSeats < req.Seats {
			return &domain.InsufficientSeatsError{Requested: req.Seats, Available: train.AvailableSeats}
		}

		if err := c.ledger.DecrementAvailable(ctx, tx, train.ID, req.Seats); err != nil {
			return err
		}

		booking := domain.Booking{
			ID:        bookingID,
			UserID:    req.UserID,
			TrainID:   train.ID,
			Seats:     req.Seats,
			CreatedAt: c.now().UTC(),
		}
		if err := c.bookings.Insert(ctx, tx, booking); err != nil {
			return err
		}

		train.AvailableSeats -= req.Seats
		receipt = Receipt{Booking: booking, Train: train}
		return nil
	})
	if err != nil {
		err = classifyBookingError(txCtx, err)
		fields["outcome"] = domain.Outcome(err)
		if errors.Is(err, domain.ErrTransactionFailure) || errors.Is(err, domain.ErrTimeout) {
			pkgApp.LogError(ctx, c.logger, "booking transaction rolled back", err, fields)
		} else {
			fields["reason"] = err.Error()
			pkgApp.LogInfo(ctx, c.logger, "booking rejected", fields)
		}
		return Receipt{}, err
	}

	fields["available_seats"] = receipt.Train.AvailableSeats
	pkgApp.LogInfo(ctx, c.logger, "booking committed", fields)
	return receipt, nil
}

var bookingErrorKinds = []error{
	domain.ErrInvalidRequest,
	domain.ErrTrainNotFound,
	domain.ErrInsufficientSeats,
	domain.ErrInvalidState,
	domain.ErrTimeout,
	domain.ErrTransactionFailure,
}

// classifyBookingError garante que todo erro que sai do coordenador pertença à taxonomia de domínio.
func classifyBookingError(ctx context.Context, err error) error {
	for _, kind := range bookingErrorKinds {
		if errors.Is(err, kind) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrTransactionFailure, err)
}
