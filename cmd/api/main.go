package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	accountApp "github.com/lumenbank/transfers/internal/application/account"
	transferApp "github.com/lumenbank/transfers/internal/application/transfer"
	"github.com/lumenbank/transfers/internal/bootstrap"
	"github.com/lumenbank/transfers/internal/controller"
	"github.com/lumenbank/transfers/internal/directory"
	infraRedis "github.com/lumenbank/transfers/internal/infrastructure/redis"
	"github.com/lumenbank/transfers/internal/ledger"
	"github.com/lumenbank/transfers/internal/mirror"
	"github.com/lumenbank/transfers/internal/repository/postgres"
)

func main() {
	ctx := context.Background()

	app, err := bootstrap.New(ctx, "transfers-api", "transfers")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	cfg := app.Config

	// --- Repositories ---
	accountRepo := postgres.NewAccountRepository(app.Pool)
	transactionRepo := postgres.NewTransactionRepository(app.Pool)
	directoryRepo := postgres.NewDirectoryRepository(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)
	txManager := postgres.NewTxManager(app.Pool)

	// --- Application services ---
	accountService := accountApp.NewService(accountRepo, transactionRepo, app.Logger)
	resolver := directory.NewResolver(directoryRepo)

	streamProducer := infraRedis.NewStreamProducer(app.Redis)
	events := mirror.NewEventPublisher(streamProducer)
	txnMirror := mirror.New(app.Redis, cfg.Mirror.TTL, cfg.Mirror.MaxEntries, app.Metrics, app.Logger)
	subscriptions := mirror.NewSubscriptionManager(ctx)

	var ledgerService ledger.Service
	switch cfg.Ledger.Mode {
	case "remote":
		ledgerService = ledger.NewRemoteClient(ledger.RemoteConfig{
			BaseURL:        cfg.Ledger.RemoteBaseURL,
			CallTimeout:    cfg.Ledger.CallTimeout,
			MaxAttempts:    cfg.Ledger.MaxAttempts,
			InitialBackoff: cfg.Ledger.InitialBackoff,
		}, app.Logger)
	default:
		ledgerService = postgres.NewLedger(accountRepo, transactionRepo, txManager, events, app.Logger)
	}

	validator := transferApp.NewValidator(accountService, transferApp.Policy{
		DailyCeiling:   cfg.Transfer.DailyCeilingCents,
		FraudThreshold: cfg.Transfer.FraudThresholdCents,
		Window:         cfg.Transfer.Window,
	})

	attempts := transferApp.NewRegistry(transferApp.Deps{
		Directory:     resolver,
		Accounts:      accountService,
		Validator:     validator,
		Ledger:        ledgerService,
		Mirror:        txnMirror,
		LedgerTimeout: cfg.Ledger.CallTimeout,
		Logger:        app.Logger,
	})

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:            app.Pool,
		RedisClient:     app.Redis,
		AccountService:  accountService,
		Attempts:        attempts,
		Mirror:          txnMirror,
		Subscriptions:   subscriptions,
		IdempotencyRepo: idempotencyRepo,
		Metrics:         app.Metrics,
		ServerConfig:    cfg.Server,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		app.Logger.Info().Str("addr", addr).Str("ledger_mode", cfg.Ledger.Mode).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	app.Logger.Info().Msg("Shutting down server...")
	subscriptions.StopAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error().Err(err).Msg("Server forced to shutdown")
	}
	app.Logger.Info().Msg("Server exited")
}
