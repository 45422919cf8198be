package domain

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrTrainNotFound      = errors.New("train not found")
	ErrInsufficientSeats  = errors.New("insufficient seats")
	ErrInvalidState       = errors.New("invalid seat state")
	ErrTransactionFailure = errors.New("transaction failure")
	ErrTimeout            = errors.New("timed out waiting for lock")
)

// InsufficientSeatsError carrega quanto havia disponível no momento da checagem.
type InsufficientSeatsError struct {
	Requested int
	Available int
}

func (e *InsufficientSeatsError) Error() string {
	return "insufficient seats"
}

func (e *InsufficientSeatsError) Is(target error) bool {
	return target == ErrInsufficientSeats
}

// Outcome resume um erro de reserva num rótulo curto para logs e métricas.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrTrainNotFound):
		return "train_not_found"
	case errors.Is(err, ErrInsufficientSeats):
		return "insufficient_seats"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	default:
		return "transaction_failure"
	}
}
