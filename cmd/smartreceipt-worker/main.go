package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"smartreceipt/internal/amqp"
	"smartreceipt/internal/cli"
	"smartreceipt/internal/log"
	"smartreceipt/internal/sheets"
	"smartreceipt/internal/sheets/google"
	"smartreceipt/internal/sheets/memory"
	"smartreceipt/internal/store/sqlite"
	"smartreceipt/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.DataBackend != "sqlite" {
		logger.Error("sheet mirroring requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	repo, err := sqlite.New(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("failed to open sqlite store", log.FieldError, err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	var appender sheets.RowAppender
	if cfg.GoogleSpreadsheetID != "" {
		client, err := google.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger.WithComponent(log.ComponentSheets))
		if err != nil {
			logger.Error("failed to create sheets client", log.FieldError, err)
			os.Exit(1)
		}
		appender = client
		logger.Info("mirroring to spreadsheet", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		appender = memory.New()
		logger.Warn("no spreadsheet configured, mirroring to in-memory sink")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.Error("failed to connect to message broker", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(repo, appender, cfg.SyncBatchSize, logger)

	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Warn("startup sync check failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("consuming expense events", "queue", cfg.AMQPQueue)
		return amqpClient.ConsumeEvents(gctx, func(msg *amqp.ExpenseEventMessage) error {
			return syncWorker.HandleEvent(gctx, msg)
		})
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := syncWorker.ProcessPending(gctx); err != nil {
					logger.Warn("periodic sync pass failed", log.FieldError, err)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("worker stopped", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("worker stopped")
}
