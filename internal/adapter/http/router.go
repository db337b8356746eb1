package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/adapter/http/handler"
	"github.com/iho/goescrow/internal/adapter/http/middleware"
	"github.com/iho/goescrow/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler       *handler.AccountHandler
	EntryHandler         *handler.EntryHandler
	LedgerHandler        *handler.LedgerHandler
	DepositHandler       *handler.DepositHandler
	PayoutAddressHandler *handler.PayoutAddressHandler
	HealthHandler        *handler.HealthHandler
	IdempotencyStore     usecase.IdempotencyStore
	IdempotencyTTL       time.Duration
	RateLimiter          *middleware.RateLimiter
	HTTPMetrics          *middleware.HTTPMetrics
	MetricsHandler       http.Handler
	Logger               zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger, "/health", "/ready", "/metrics").Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.HTTPMetrics != nil {
		r.Use(cfg.HTTPMetrics.Wrap)
	}
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		r.Route("/accounts/{key}", func(r chi.Router) {
			r.Get("/balance", cfg.AccountHandler.Balance)
			r.Get("/entries", cfg.AccountHandler.Entries)
		})

		r.Get("/deals/{id}/entries", cfg.EntryHandler.ListByDeal)
		r.Get("/ledger/consistency", cfg.LedgerHandler.CheckConsistency)

		r.Route("/deposits/{id}", func(r chi.Router) {
			r.Post("/approve", cfg.DepositHandler.Approve)
			r.Post("/reject", cfg.DepositHandler.Reject)
		})

		r.Get("/payout-addresses/{userId}", cfg.PayoutAddressHandler.Get)
		r.Put("/payout-addresses/{userId}", cfg.PayoutAddressHandler.Upsert)
	})

	return r
}
