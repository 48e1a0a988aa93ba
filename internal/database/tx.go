package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	apperrors "seatwise/internal/errors"

	"github.com/lib/pq"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"

	maxRetryDelay = time.Second
)

// Serializable runs fn in a SERIALIZABLE transaction. Any error returned by fn
// rolls the transaction back. Serialization failures and deadlocks replay the
// whole unit with jittered exponential backoff. When every attempt conflicts
// the error wraps apperrors.ErrContention.
func (db *DB) Serializable(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return retry(ctx, db.maxRetries, db.backoff, db.onRetry, func() error {
		return db.runTx(ctx, fn)
	})
}

func (db *DB) runTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("Failed to rollback transaction", "error", rbErr)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func retry(ctx context.Context, maxRetries int, backoff time.Duration, hook func(int, error), fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxRetries+1; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return err
		}
		if attempt > maxRetries {
			break
		}

		slog.Warn("Transaction conflict, retrying",
			"attempt", attempt, "max_retries", maxRetries, "error", err)
		if hook != nil {
			hook(attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelay(attempt, backoff)):
		}
	}

	return fmt.Errorf("%w: transaction failed after %d attempts: %w", apperrors.ErrContention, maxRetries+1, lastErr)
}

// retryDelay doubles base per attempt up to maxRetryDelay and picks a random
// point in the upper half, so writers that lost the same row lock spread out.
func retryDelay(attempt int, base time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	d = min(d, maxRetryDelay)
	half := d / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// IsRetryable reports whether err is a serialization failure or deadlock.
func IsRetryable(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return pqErr.Code == codeSerializationFailure || pqErr.Code == codeDeadlockDetected
}
