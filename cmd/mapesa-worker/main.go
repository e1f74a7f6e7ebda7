package main

import (
	"context"
	"errors"
	"os"

	"mapesa/internal/backend"
	"mapesa/internal/cli"
	"mapesa/internal/log"
	"mapesa/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(log.ComponentWorker)
	logger.Info("Starting mapesa-worker", log.FieldOperation, log.OpStartup)

	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	b := result.Backend
	if b.Events == nil {
		logger.Error("AMQP client unavailable", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		_ = result.Cleanup()
		os.Exit(1)
	}

	tags, err := factory.TagRepository()
	if err != nil {
		logger.Error("Tag repository unavailable", log.FieldError, err)
		_ = result.Cleanup()
		os.Exit(1)
	}
	tagWorker := worker.NewTagEventWorker(tags)

	consumed := make(chan struct{})
	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		// Wait for the in-flight delivery before closing the connection.
		select {
		case <-consumed:
		case <-ctx.Done():
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	go func() {
		defer close(consumed)
		err := b.Events.ConsumeTagEvents(ctx, tagWorker.HandleTagLinked)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Tag event consumption failed",
				log.FieldError, err,
				log.FieldErrorType, log.ErrorTypeNetwork,
				log.FieldOperation, log.OpConsume)
		}
	}()

	logger.Info("Consuming tag events", "queue", cfg.AMQPQueue)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
