package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iho/goescrow/internal/adapter/blockchain/resilient"
	"github.com/iho/goescrow/internal/adapter/blockchain/toncenter"
	httpAdapter "github.com/iho/goescrow/internal/adapter/http"
	"github.com/iho/goescrow/internal/adapter/http/handler"
	"github.com/iho/goescrow/internal/adapter/http/middleware"
	"github.com/iho/goescrow/internal/adapter/messaging/redisstream"
	postgresRepo "github.com/iho/goescrow/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/goescrow/internal/adapter/repository/redis"
	"github.com/iho/goescrow/internal/adapter/signer"
	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/infrastructure/config"
	"github.com/iho/goescrow/internal/infrastructure/eventpublisher"
	"github.com/iho/goescrow/internal/infrastructure/metrics"
	"github.com/iho/goescrow/internal/infrastructure/postgres"
	"github.com/iho/goescrow/internal/infrastructure/redis"
	"github.com/iho/goescrow/internal/infrastructure/scheduler"
	"github.com/iho/goescrow/internal/usecase"
)

const rateLimiterIdle = 10 * time.Minute

// app holds the wired component graph of the server.
type app struct {
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	redis   *goredis.Client
	metrics *metrics.Metrics

	ledger         *usecase.LedgerUseCase
	deposits       *usecase.DepositWatcher
	outbound       *usecase.OutboundConfirmer
	sweeper        *usecase.DustSweeper
	reconciliation *usecase.ReconciliationUseCase
	publisher      *eventpublisher.EventPublisher
	consumer       *redisstream.Consumer

	payoutAddresses  usecase.PayoutAddressRepository
	idempotencyStore usecase.IdempotencyStore
	rateLimiter      *middleware.RateLimiter
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info().Msg("connected to postgres")

	if cfg.MigrateOnStart {
		if err := postgres.NewMigrator(cfg.DatabaseURL, cfg.MigrationsPath, logger).Up(); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	redisClient, err := redis.NewClient(ctx, redis.Options{
		URL:            cfg.RedisURL,
		Name:           "escrow-" + cfg.CommandConsumer,
		ConnectTimeout: cfg.RedisConnectTimeout,
	}, logger)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Msg("connected to redis")

	a := &app{
		logger:  logger,
		pool:    pool,
		redis:   redisClient,
		metrics: metrics.New(),
	}

	if err := a.wire(cfg); err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func (a *app) wire(cfg *config.Config) error {
	policy, err := cfg.ConfirmationPolicy()
	if err != nil {
		return fmt.Errorf("confirmation policy: %w", err)
	}

	eventRegistry, err := domain.NewEventRegistry()
	if err != nil {
		return fmt.Errorf("event registry: %w", err)
	}

	commandRegistry, err := domain.NewCommandRegistry()
	if err != nil {
		return fmt.Errorf("command registry: %w", err)
	}

	txManager := postgresRepo.NewTxManager(a.pool,
		postgresRepo.WithStatementTimeout(cfg.StatementTimeout),
		postgresRepo.WithLockTimeout(cfg.LockTimeout),
	)
	accountRepo := postgresRepo.NewAccountRepository(a.pool)
	ledgerTxRepo := postgresRepo.NewLedgerTransactionRepository()
	entryRepo := postgresRepo.NewEntryRepository(a.pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(a.pool)
	tonTxRepo := postgresRepo.NewTonTransactionRepository(a.pool)
	outboxRepo := postgresRepo.NewOutboxRepository(a.pool)
	a.payoutAddresses = postgresRepo.NewPayoutAddressRepository(a.pool)
	idGen := postgresRepo.NewULIDGenerator()

	locker := redisRepo.NewLocker(a.redis)
	balanceCache := redisRepo.NewCache(a.redis, "balance")
	chainCache := redisRepo.NewCache(a.redis, "chain")
	a.idempotencyStore = redisRepo.NewIdempotencyStore(a.redis)
	a.rateLimiter = middleware.NewRateLimiter(cfg.HTTPRateLimitRPS, cfg.HTTPRateLimitBurst)

	chain := resilient.New(
		toncenter.NewClient(toncenter.Config{
			BaseURL: cfg.ToncenterURL,
			APIKey:  cfg.ToncenterAPIKey,
			RPS:     cfg.ToncenterRPS,
			Timeout: cfg.ToncenterTimeout,
		}, a.logger),
		chainCache,
		a.metrics,
		a.logger,
		resilient.Config{
			Name:             "toncenter",
			MaxConcurrency:   cfg.ChainMaxConcurrency,
			BulkheadWait:     cfg.ChainBulkheadWait,
			SlowCall:         cfg.ChainSlowCall,
			MinRequests:      cfg.BreakerMinRequests,
			FailureRatio:     cfg.BreakerFailureRatio,
			OpenTimeout:      cfg.BreakerOpenTimeout,
			HalfOpenRequests: cfg.BreakerHalfOpenRequests,
			StaleTTL:         cfg.ChainStaleTTL,
		},
	)

	walletSigner := signer.NewClient(signer.Config{
		URL:   cfg.SignerURL,
		Token: cfg.SignerToken,
	}, a.logger)

	outbox := usecase.NewOutbox(outboxRepo, eventRegistry, idGen)

	a.ledger = usecase.NewLedgerUseCase(
		txManager, accountRepo, ledgerTxRepo, entryRepo, ledgerRepo,
		balanceCache, idGen, a.metrics, a.logger,
		usecase.LedgerConfig{
			DefaultPageSize: cfg.DefaultPageSize,
			MaxPageSize:     cfg.MaxPageSize,
			BalanceCacheTTL: cfg.BalanceCacheTTL,
		},
	).WithRetrier(postgresRepo.NewRetrier(a.logger,
		postgresRepo.WithMaxRetries(cfg.DBMaxRetries),
		postgresRepo.WithRetryMetrics(a.metrics),
	))

	a.deposits = usecase.NewDepositWatcher(
		txManager, tonTxRepo, a.ledger, outbox, chain, locker, policy, idGen, a.metrics, a.logger,
		usecase.DepositConfig{
			MaxPollDuration: cfg.DepositMaxPollDuration,
			BatchSize:       cfg.DepositBatchSize,
			LockTTL:         cfg.DepositPollLockTTL,
			ChainCallBudget: cfg.ChainBulkheadWait + cfg.ChainSlowCall,
			LateWindow:      cfg.LateDepositWindow,
		},
	)

	settlement := usecase.NewSettlementExecutor(
		txManager, tonTxRepo, a.payoutAddresses, a.ledger, outbox, chain, walletSigner, locker, idGen, a.metrics, a.logger,
		usecase.SettlementConfig{
			WalletLockTTL:  cfg.WalletLockTTL,
			WalletLockWait: cfg.WalletLockWait,
		},
	)

	a.outbound = usecase.NewOutboundConfirmer(
		txManager, tonTxRepo, chain, locker, a.metrics, a.logger,
		usecase.OutboundConfig{SubmitTimeout: cfg.OutboundSubmitTimeout},
	)

	a.sweeper = usecase.NewDustSweeper(
		txManager, accountRepo, tonTxRepo, a.ledger, outbox, locker, a.metrics, a.logger,
		usecase.SweepConfig{DustThreshold: cfg.DustThresholdNano},
	)

	a.reconciliation = usecase.NewReconciliationUseCase(
		txManager, accountRepo, ledgerRepo, outbox, chain, locker, a.metrics, a.logger,
		usecase.ReconciliationConfig{HotWalletAddress: cfg.HotWalletAddress},
	)

	a.publisher = eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  a.eventSink(cfg),
		Locker:     locker,
		Metrics:    a.metrics,
		Logger:     a.logger,
		BatchSize:  cfg.OutboxBatchSize,
		Retention:  cfg.OutboxRetention,
	})

	a.consumer = redisstream.NewConsumer(
		a.redis,
		commandRegistry,
		usecase.NewCommandDispatcher(settlement, a.deposits),
		a.metrics,
		a.logger,
		redisstream.ConsumerConfig{
			Stream:   cfg.CommandStream,
			Group:    cfg.CommandGroup,
			Consumer: cfg.CommandConsumer,
		},
	)

	return nil
}

func (a *app) eventSink(cfg *config.Config) eventpublisher.Publisher {
	if cfg.EventSink == "log" {
		a.logger.Warn().Msg("events are logged, not published")
		return redisstream.NewLogPublisher(a.logger)
	}
	return redisstream.NewPublisher(a.redis, cfg.EventStreamPrefix)
}

func (a *app) router(cfg *config.Config) http.Handler {
	return httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:       handler.NewAccountHandler(a.ledger),
		EntryHandler:         handler.NewEntryHandler(a.ledger),
		LedgerHandler:        handler.NewLedgerHandler(a.ledger),
		DepositHandler:       handler.NewDepositHandler(a.deposits),
		PayoutAddressHandler: handler.NewPayoutAddressHandler(a.payoutAddresses, nil),
		HealthHandler:        handler.NewHealthHandler(readinessChecks(a.pool, a.redis)),
		IdempotencyStore:     a.idempotencyStore,
		IdempotencyTTL:       cfg.IdempotencyTTL,
		RateLimiter:          a.rateLimiter,
		HTTPMetrics:          middleware.NewHTTPMetrics(prometheus.DefaultRegisterer),
		MetricsHandler:       promhttp.Handler(),
		Logger:               a.logger,
	})
}

func (a *app) scheduler(cfg *config.Config) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.logger, a.metrics)
	for _, job := range jobs(cfg, a) {
		if err := sched.Add(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

// Close releases the connections held by the app.
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close redis client")
	}
	a.pool.Close()
}

// jobRunners is what the periodic jobs drive.
type jobRunners interface {
	pollDeposits(ctx context.Context) error
	sweepLateDeposits(ctx context.Context) error
	publishOutbox(ctx context.Context) error
	cleanupOutbox(ctx context.Context) error
	confirmOutbound(ctx context.Context) error
	sweepDust(ctx context.Context) error
	reconcile(ctx context.Context) error
	evictRateLimiters(ctx context.Context) error
}

func jobs(cfg *config.Config, r jobRunners) []scheduler.Job {
	return []scheduler.Job{
		{Name: "deposit-poll", Interval: cfg.DepositPollInterval, Run: r.pollDeposits},
		{Name: "late-deposit-sweep", Interval: cfg.LateDepositInterval, Run: r.sweepLateDeposits},
		{Name: "outbox-publish", Interval: cfg.OutboxPollInterval, Run: r.publishOutbox},
		{Name: "outbox-cleanup", Interval: time.Hour, Run: r.cleanupOutbox},
		{Name: "outbound-confirm", Interval: cfg.OutboundConfirmInterval, Run: r.confirmOutbound},
		{Name: "dust-sweep", Interval: cfg.SweepInterval, Run: r.sweepDust},
		{Name: "reconciliation", Interval: cfg.ReconciliationInterval, Run: r.reconcile},
		{Name: "rate-limiter-evict", Interval: rateLimiterIdle, Run: r.evictRateLimiters},
	}
}

func (a *app) pollDeposits(ctx context.Context) error {
	return a.deposits.Poll(ctx)
}

func (a *app) sweepLateDeposits(ctx context.Context) error {
	recorded, err := a.deposits.SweepLate(ctx)
	if recorded > 0 {
		a.logger.Warn().Int("recorded", recorded).Msg("late deposits recorded")
	}
	return err
}

func (a *app) publishOutbox(ctx context.Context) error {
	return a.publisher.Poll(ctx)
}

func (a *app) cleanupOutbox(ctx context.Context) error {
	return a.publisher.Cleanup(ctx)
}

func (a *app) confirmOutbound(ctx context.Context) error {
	return a.outbound.Run(ctx)
}

func (a *app) sweepDust(ctx context.Context) error {
	swept, err := a.sweeper.Run(ctx)
	if swept > 0 {
		a.logger.Info().Int("swept", swept).Msg("dust sweep finished")
	}
	return err
}

func (a *app) reconcile(ctx context.Context) error {
	_, err := a.reconciliation.Run(ctx)
	return err
}

func (a *app) evictRateLimiters(context.Context) error {
	if removed := a.rateLimiter.Evict(rateLimiterIdle); removed > 0 {
		a.logger.Debug().Int("removed", removed).Msg("evicted idle rate limiters")
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func readinessChecks(db pinger, rdb *goredis.Client) map[string]handler.Check {
	return map[string]handler.Check{
		"postgres": db.Ping,
		"redis": func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
	}
}
