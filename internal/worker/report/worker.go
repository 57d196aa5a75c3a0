// Package report runs the hourly monitoring worker: it snapshots vote,
// reward, and detection volumes every hour and sends the daily summary at
// the configured UTC hour. A redis day guard keeps the summary to exactly
// one send across worker instances.
package report

import (
	"context"
	"time"

	"github.com/promptcraft/voteguard/internal/database"
	"github.com/promptcraft/voteguard/internal/database/types"
	"github.com/promptcraft/voteguard/internal/redis"
	"github.com/promptcraft/voteguard/internal/setup"
	"github.com/promptcraft/voteguard/internal/setup/config"
	"github.com/promptcraft/voteguard/internal/worker/core"
	"go.uber.org/zap"
)

// Worker handles hourly statistics snapshots and the daily summary report.
type Worker struct {
	db       database.Client
	cfg      *config.WorkerConfig
	reporter *core.StatusReporter
	guard    *core.RunOnceGuard
	logger   *zap.Logger
}

// New creates a new report worker.
func New(app *setup.App, logger *zap.Logger) (*Worker, error) {
	statusClient, err := app.RedisManager.GetClient(redis.WorkerStatusDBIndex)
	if err != nil {
		return nil, err
	}

	guardClient, err := app.RedisManager.GetClient(redis.ReportGuardDBIndex)
	if err != nil {
		return nil, err
	}

	interval := time.Duration(app.Config.Worker.HeartbeatSeconds) * time.Second

	return &Worker{
		db:       app.DB,
		cfg:      &app.Config.Worker,
		reporter: core.NewStatusReporter(statusClient, "report", interval, logger),
		guard:    core.NewRunOnceGuard(guardClient, logger),
		logger:   logger,
	}, nil
}

// Start begins the report worker's main loop. It blocks until the context is
// cancelled.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("Report worker started", zap.String("workerID", w.reporter.GetWorkerID()))
	w.reporter.Start(ctx)

	defer w.reporter.Stop()

	for {
		w.reporter.SetHealthy(true)

		// Wait until the start of the next hour.
		w.reporter.UpdateStatus("Waiting for next hour")

		nextHour := time.Now().UTC().Truncate(time.Hour).Add(time.Hour)
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(nextHour)):
		}

		w.runHour(ctx, nextHour)
	}
}

// runHour performs the work for one hour boundary.
func (w *Worker) runHour(ctx context.Context, hour time.Time) {
	w.reporter.UpdateStatus("Saving hourly snapshot")

	if err := w.saveSnapshot(ctx, hour); err != nil {
		w.logger.Error("Failed to save hourly snapshot", zap.Error(err))
		w.reporter.SetHealthy(false)
	}

	if hour.Hour() != w.cfg.ReportHourUTC {
		return
	}

	w.reporter.UpdateStatus("Sending daily summary")

	claimed, err := w.guard.Claim(ctx, hour)
	if err != nil {
		w.logger.Error("Failed to claim daily report guard", zap.Error(err))
		w.reporter.SetHealthy(false)

		return
	}

	if !claimed {
		w.logger.Info("Daily summary already claimed by another instance")
		return
	}

	lookback := time.Duration(w.cfg.LookbackHours) * time.Hour
	if err := w.db.Service().Monitor().SendDailySummaryReport(ctx, lookback); err != nil {
		w.logger.Error("Failed to send daily summary", zap.Error(err))
		w.reporter.SetHealthy(false)
	}
}

// saveSnapshot persists the volumes for the hour that just ended.
func (w *Worker) saveSnapshot(ctx context.Context, hour time.Time) error {
	since := hour.Add(-time.Hour)

	votes, err := w.db.Model().Vote().CountAllSince(ctx, since)
	if err != nil {
		return err
	}

	rewards, err := w.db.Model().Reward().CountSince(ctx, since)
	if err != nil {
		return err
	}

	detections, err := w.db.Model().Detection().CountSince(ctx, since)
	if err != nil {
		return err
	}

	return w.db.Model().Stats().SaveHourlyStats(ctx, &types.HourlyStats{
		Timestamp:  since,
		Votes:      int64(votes),
		Rewards:    int64(rewards),
		Detections: int64(detections),
	})
}
