package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"finanzas/internal/cli"
	"finanzas/internal/log"
	"finanzas/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentWorker)
	logger.Info("Starting finanzas-worker")

	cfg := cli.LoadAndValidateConfig(logger, true)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the compensation worker")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	be, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()
	if be.AMQP == nil {
		logger.Error("Failed to connect to AMQP broker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		os.Exit(1)
	}

	compensations := worker.NewCompensationWorker(be.Store, cfg.WorkerMaxAttempts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return be.AMQP.ConsumeCompensations(gctx, compensations.Handle)
	})
	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				completed, abandoned := compensations.Stats()
				logger.Debug("Compensation worker stats", "completed", completed, "abandoned", abandoned)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	completed, abandoned := compensations.Stats()
	logger.Info("Worker stopped gracefully", "completed", completed, "abandoned", abandoned)
}
