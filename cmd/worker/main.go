package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/promptcraft/voteguard/internal/setup"
	"github.com/promptcraft/voteguard/internal/worker/report"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// WorkerLogDir specifies where worker log files are stored.
const WorkerLogDir = "logs/worker_logs"

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "worker",
		Usage: "Start the voteguard worker",
		Commands: []*cli.Command{
			{
				Name:  "report",
				Usage: "Start the hourly stats and daily summary worker",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return runReportWorker(ctx)
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func runReportWorker(ctx context.Context) error {
	app, err := setup.InitializeApp(ctx, WorkerLogDir)
	if err != nil {
		return err
	}
	defer app.Cleanup(ctx)

	workerLogger := app.LogManager.GetWorkerLogger("report")

	worker, err := report.New(app, workerLogger)
	if err != nil {
		return err
	}

	// Stop the worker loop on SIGINT/SIGTERM.
	runCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	worker.Start(runCtx)

	app.Logger.Info("Report worker stopped", zap.String("reason", runCtx.Err().Error()))

	return nil
}
