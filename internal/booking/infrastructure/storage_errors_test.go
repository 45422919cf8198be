package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
)

func TestClassifyStorageError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"record not found", gorm.ErrRecordNotFound, domain.ErrTrainNotFound},
		{"already classified", fmt.Errorf("wrap: %w", domain.ErrInsufficientSeats), domain.ErrInsufficientSeats},
		{"pg lock not available", &pgconn.PgError{Code: pgLockNotAvailable}, domain.ErrTimeout},
		{"pg statement canceled", &pgconn.PgError{Code: pgQueryCanceled}, domain.ErrTimeout},
		{"pg check violation", &pgconn.PgError{Code: pgCheckViolation}, domain.ErrInvalidState},
		{"pg deadlock", &pgconn.PgError{Code: pgDeadlockDetected}, domain.ErrTransactionFailure},
		{"pg unique violation", &pgconn.PgError{Code: pgUniqueViolation}, domain.ErrInvalidRequest},
		{"mysql lock wait timeout", &mysql.MySQLError{Number: mysqlLockWaitTimeout}, domain.ErrTimeout},
		{"mysql check constraint", &mysql.MySQLError{Number: mysqlCheckConstraint}, domain.ErrInvalidState},
		{"mysql duplicate entry", &mysql.MySQLError{Number: mysqlDuplicateEntry}, domain.ErrInvalidRequest},
		{"mysql deadlock", &mysql.MySQLError{Number: mysqlDeadlock}, domain.ErrTransactionFailure},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), domain.ErrTimeout},
		{"unknown", errors.New("broken pipe"), domain.ErrTransactionFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyStorageError(context.Background(), tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestClassifyStorageError_ExpiredContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 0)
	defer cancel()
	<-ctx.Done()

	if got := classifyStorageError(ctx, errors.New("driver: bad connection")); !errors.Is(got, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout when the deadline already passed, got %v", got)
	}
}

func TestClassifyStorageError_Nil(t *testing.T) {
	if err := classifyStorageError(context.Background(), nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
