package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/siddharth-2002/API-Workindia/internal/booking/domain"
)

const (
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgCheckViolation       = "23514"
	pgUniqueViolation      = "23505"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"

	mysqlLockWaitTimeout  = 1205
	mysqlDeadlock         = 1213
	mysqlCheckConstraint  = 3819
	mysqlQueryInterrupted = 1317
	mysqlDuplicateEntry   = 1062
)

// classifyStorageError traduz erros do driver para a taxonomia de domínio.
func classifyStorageError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	if errorsIsAny(err,
		domain.ErrInvalidRequest, domain.ErrTrainNotFound, domain.ErrInsufficientSeats,
		domain.ErrInvalidState, domain.ErrTimeout, domain.ErrTransactionFailure) {
		return err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrTrainNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgQueryCanceled:
			return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		case pgCheckViolation:
			return fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
		case pgUniqueViolation:
			return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		case pgDeadlockDetected, pgSerializationFailure:
			return fmt.Errorf("%w: %v", domain.ErrTransactionFailure, err)
		}
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlLockWaitTimeout, mysqlQueryInterrupted:
			return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
		case mysqlCheckConstraint:
			return fmt.Errorf("%w: %v", domain.ErrInvalidState, err)
		case mysqlDuplicateEntry:
			return fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
		case mysqlDeadlock:
			return fmt.Errorf("%w: %v", domain.ErrTransactionFailure, err)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", domain.ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", domain.ErrTransactionFailure, err)
}

// errorsIsAny informa se err corresponde a algum dos alvos.
func errorsIsAny(err error, targets ...error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
