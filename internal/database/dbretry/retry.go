// Package dbretry wraps database operations with bounded exponential backoff
// for transient Postgres failures. Classification errors from the abuse
// pipeline are never retried; only connection-level and contention-level
// failures qualify.
package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	maxElapsedTime  = 30 * time.Second
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
	maxRetries      = uint64(5)
)

// retryablePgCodes are the Postgres error classes worth retrying:
// connection failures (08), serialization/deadlock (40), resource
// exhaustion (53), and operator intervention (57).
var retryablePgCodes = map[string]struct{}{
	"08000": {}, "08001": {}, "08003": {}, "08004": {}, "08006": {}, "08007": {},
	"40001": {}, "40P01": {},
	"53000": {}, "53100": {}, "53200": {}, "53300": {},
	"57000": {}, "57P01": {}, "57P02": {}, "57P03": {},
	"55P03": {},
}

// IsRetryableError checks if the given error is retryable.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var pgerr *pgdriver.Error
	if errors.As(err, &pgerr) {
		if _, ok := retryablePgCodes[pgerr.Field('C')]; ok {
			return true
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Network failures surface as wrapped strings from the driver.
	msg := err.Error()

	return strings.Contains(msg, "connection reset by peer") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "EOF")
}

func newBackoff(ctx context.Context) backoff.BackOffContext {
	return backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries), ctx)
}

// Operation wraps a database operation with retry logic.
func Operation[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	err := backoff.Retry(func() error {
		var err error

		result, err = operation(ctx)
		if err != nil {
			if !IsRetryableError(err) {
				return backoff.Permanent(err)
			}

			lastErr = err

			return err
		}

		return nil
	}, newBackoff(ctx))
	if err != nil {
		if lastErr != nil {
			return result, fmt.Errorf("database operation failed after retries: %w", lastErr)
		}

		return result, fmt.Errorf("database operation failed: %w", err)
	}

	return result, nil
}

// NoResult wraps a database operation that doesn't return a result.
func NoResult(ctx context.Context, operation func(context.Context) error) error {
	_, err := Operation(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})

	return err
}

// Transaction wraps a database transaction with retry logic. The whole
// transaction re-runs on a transient failure, so the callback must be safe
// to execute more than once.
func Transaction(ctx context.Context, db *bun.DB, fn func(context.Context, bun.Tx) error) error {
	return NoResult(ctx, func(ctx context.Context) error {
		return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			return fn(ctx, tx)
		})
	})
}
