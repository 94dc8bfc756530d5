package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"smartreceipt/internal/amqp"
	"smartreceipt/internal/app"
	"smartreceipt/internal/cli"
	apphttp "smartreceipt/internal/http"
	"smartreceipt/internal/log"
	"smartreceipt/internal/scan"
	"smartreceipt/internal/store"
	"smartreceipt/internal/store/jsonfile"
	"smartreceipt/internal/store/sqlite"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	var (
		expenses store.ExpenseStore
		settings store.SettingsStore
	)

	switch cfg.DataBackend {
	case "sqlite":
		repo, err := sqlite.New(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("failed to open sqlite store", log.FieldError, err)
			os.Exit(1)
		}
		defer repo.Close()
		expenses, settings = repo, repo
	default:
		st, err := jsonfile.New(cfg.FileStoreDir)
		if err != nil {
			logger.Error("failed to open file store", log.FieldError, err)
			os.Exit(1)
		}
		expenses, settings = st, st
	}

	opts := []app.Option{}

	if cfg.ScanEnabled() {
		scanner := scan.NewGeminiScanner(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL, logger.WithComponent(log.ComponentScan))
		opts = append(opts, app.WithScanner(scanner))
		logger.Info("receipt scanning enabled", "model", cfg.GeminiModel)
	} else {
		logger.Info("receipt scanning disabled, no API key configured")
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			logger.Error("failed to connect to message broker", log.FieldError, err)
			os.Exit(1)
		}
		defer client.Close()
		opts = append(opts, app.WithPublisher(client))
		logger.Info("expense event publishing enabled", "exchange", cfg.AMQPExchange)
	}

	controller := app.NewController(expenses, settings, logger.WithComponent(log.ComponentController), opts...)
	if err := controller.Reload(context.Background()); err != nil {
		logger.Error("failed to load expenses", log.FieldError, err)
		os.Exit(1)
	}

	srv := apphttp.NewServer(":"+cfg.Port, controller, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("starting server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("server stopped")
}
