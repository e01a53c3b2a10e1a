package controller

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	accountApp "github.com/lumenbank/transfers/internal/application/account"
	transferApp "github.com/lumenbank/transfers/internal/application/transfer"
	"github.com/lumenbank/transfers/internal/infrastructure/config"
	"github.com/lumenbank/transfers/internal/infrastructure/observability"
	customMW "github.com/lumenbank/transfers/internal/middleware"
	"github.com/lumenbank/transfers/internal/mirror"
	"github.com/lumenbank/transfers/internal/repository/postgres"
)

type RouterDeps struct {
	Pool            *pgxpool.Pool
	RedisClient     *redis.Client
	AccountService  *accountApp.Service
	Attempts        *transferApp.Registry
	Mirror          *mirror.Mirror
	Subscriptions   *mirror.SubscriptionManager
	IdempotencyRepo *postgres.IdempotencyRepository
	Metrics         *observability.Metrics
	ServerConfig    config.ServerConfig
}

func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(customMW.Tracing())
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(customMW.SecurityHeaders())
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.ServerConfig.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Link", "X-Idempotency-Replayed"},
		AllowCredentials: deps.ServerConfig.CORS.AllowCredentials,
		MaxAge:           300,
	}))
	r.Use(customMW.Metrics(deps.Metrics))
	r.Use(customMW.RateLimit(deps.ServerConfig.RequestsPerMinute))

	healthH := NewHealthController(deps.Pool, deps.RedisClient)
	accountH := NewAccountController(deps.AccountService, deps.Mirror, deps.Subscriptions)
	transferH := NewTransferController(deps.Attempts, deps.Metrics)

	r.Get("/health", healthH.Health)
	r.Get("/health/live", healthH.Liveness)
	r.Get("/health/ready", healthH.Readiness)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Idempotency middleware for mutating endpoints.
		idempotencyMW := customMW.Idempotency(deps.IdempotencyRepo)

		// Accounts
		r.Get("/accounts", accountH.List)
		r.Get("/accounts/{id}", accountH.Get)
		r.Get("/accounts/{id}/transactions", accountH.ListTransactions)
		r.Get("/accounts/{id}/mirror", accountH.ListMirror)
		r.Get("/accounts/{id}/mirror/stream", accountH.StreamMirror)

		// Transfers
		r.With(idempotencyMW).Post("/transfers", transferH.Submit)
		r.Get("/transfers/attempt", transferH.Attempt)
		r.Get("/recipients/resolve", transferH.Resolve)
	})

	return r
}
