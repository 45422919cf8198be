package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "success"},
		{"wrapped not found", fmt.Errorf("lock: %w", ErrTrainNotFound), "train_not_found"},
		{"insufficient detail", &InsufficientSeatsError{Requested: 3, Available: 1}, "insufficient_seats"},
		{"timeout", ErrTimeout, "timeout"},
		{"invalid state", ErrInvalidState, "invalid_state"},
		{"unknown", errors.New("boom"), "transaction_failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Outcome(tt.err); got != tt.want {
				t.Errorf("Outcome() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInsufficientSeatsError_Is(t *testing.T) {
	err := fmt.Errorf("book: %w", &InsufficientSeatsError{Requested: 4, Available: 2})

	if !errors.Is(err, ErrInsufficientSeats) {
		t.Fatal("expected error to match ErrInsufficientSeats")
	}

	var detail *InsufficientSeatsError
	if !errors.As(err, &detail) {
		t.Fatal("expected error to expose InsufficientSeatsError")
	}
	if detail.Available != 2 || detail.Requested != 4 {
		t.Errorf("unexpected detail: %+v", detail)
	}
}
