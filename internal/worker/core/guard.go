package core

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// GuardKeyPrefix is the Redis key prefix for daily run-once guards.
	GuardKeyPrefix = "daily_report:"

	// GuardTTL keeps claimed day keys around long past the day boundary so a
	// clock-skewed instance cannot re-send yesterday's report.
	GuardTTL = 48 * time.Hour
)

// RunOnceGuard claims calendar days in Redis so that exactly one worker
// instance performs a daily job.
type RunOnceGuard struct {
	client rueidis.Client
	logger *zap.Logger
}

// NewRunOnceGuard creates a new run-once guard.
func NewRunOnceGuard(client rueidis.Client, logger *zap.Logger) *RunOnceGuard {
	return &RunOnceGuard{
		client: client,
		logger: logger.Named("run_once_guard"),
	}
}

// Claim attempts to claim the given UTC day. It returns true when this
// instance won the claim and should run the job.
func (g *RunOnceGuard) Claim(ctx context.Context, day time.Time) (bool, error) {
	key := GuardKeyPrefix + day.UTC().Format("2006-01-02")

	ok, err := g.client.Do(ctx,
		g.client.B().Set().Key(key).Value("1").Nx().Ex(GuardTTL).Build(),
	).AsBool()
	if err != nil {
		// SET NX returns a nil reply when the key is already held.
		if rueidis.IsRedisNil(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to claim day guard: %w", err)
	}

	if ok {
		g.logger.Info("Claimed daily guard", zap.String("key", key))
	}

	return ok, nil
}
