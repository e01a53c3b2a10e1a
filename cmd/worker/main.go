package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lumenbank/transfers/internal/bootstrap"
	infraRedis "github.com/lumenbank/transfers/internal/infrastructure/redis"
	"github.com/lumenbank/transfers/internal/mirror"
	"github.com/lumenbank/transfers/internal/repository/postgres"
)

const idempotencyCleanupInterval = time.Hour

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "transfers-worker", "transfers_worker")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	txnMirror := mirror.New(app.Redis, cfg.Mirror.TTL, cfg.Mirror.MaxEntries, app.Metrics, app.Logger)
	producer := infraRedis.NewStreamProducer(app.Redis)
	consumer := infraRedis.NewStreamConsumer(
		app.Redis,
		infraRedis.TransferStream,
		cfg.Worker.ConsumerGroup,
		cfg.InstanceID,
		cfg.Worker.BatchSize,
		cfg.Worker.BlockDuration,
	)

	syncer := mirror.NewSyncer(consumer, producer, txnMirror, app.Metrics, app.Logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return syncer.Run(gCtx)
	})

	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	g.Go(func() error {
		ticker := time.NewTicker(idempotencyCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			case <-ticker.C:
				removed, err := idempotencyRepo.Cleanup(gCtx)
				if err != nil {
					app.Logger.Error().Err(err).Msg("Idempotency cleanup failed")
					continue
				}
				if removed > 0 {
					app.Logger.Info().Int64("removed", removed).Msg("Expired idempotency keys removed")
				}
			}
		}
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down worker...")
			cancel()
			return nil
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		app.Logger.Error().Err(err).Msg("Worker error")
	}
	app.Logger.Info().Msg("Worker exited")
}
