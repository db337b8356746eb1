package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Ledger metrics
	LedgerEntriesCreated  prometheus.Counter
	TransfersApplied      prometheus.Counter
	TransfersDeduplicated prometheus.Counter
	TransferDuration      prometheus.Histogram
	TransferErrors        *prometheus.CounterVec
	BalanceCacheLookups   *prometheus.CounterVec

	// Deposit metrics
	DepositsProcessed *prometheus.CounterVec

	// Settlement metrics
	SettlementsExecuted *prometheus.CounterVec
	OutboundConfirmed   prometheus.Counter

	// Outbox metrics
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter
	OutboxBatchSize prometheus.Histogram

	// Blockchain metrics
	ChainCalls        *prometheus.CounterVec
	ChainCallDuration *prometheus.HistogramVec
	ChainStaleReads   *prometheus.CounterVec
	BreakerState      *prometheus.GaugeVec

	// Coordination metrics
	LockAcquisitions *prometheus.CounterVec
	JobRuns          *prometheus.CounterVec
	DatabaseRetries  *prometheus.CounterVec

	// Reconciliation metrics
	ReconciliationCovered prometheus.Gauge
	CommandsConsumed      *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics with the default registerer.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers all Prometheus metrics with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		LedgerEntriesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_ledger_entries_created_total",
			Help: "Total number of ledger entries written",
		}),
		TransfersApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_transfers_applied_total",
			Help: "Total number of ledger transfers applied",
		}),
		TransfersDeduplicated: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_transfers_deduplicated_total",
			Help: "Total number of transfers answered from an existing idempotency key",
		}),
		TransferDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "escrow_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: prometheus.DefBuckets,
		}),
		TransferErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_transfer_errors_total",
				Help: "Total number of transfer errors by kind",
			},
			[]string{"kind"},
		),
		BalanceCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_balance_cache_lookups_total",
				Help: "Balance cache lookups by result",
			},
			[]string{"result"},
		),

		DepositsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_deposits_processed_total",
				Help: "Deposit watcher outcomes",
			},
			[]string{"outcome"},
		),

		SettlementsExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_settlements_executed_total",
				Help: "Payout and refund executions by outcome",
			},
			[]string{"operation", "outcome"},
		),
		OutboundConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_outbound_confirmed_total",
			Help: "Outbound transfers observed on chain",
		}),

		OutboxPublished: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_outbox_published_total",
			Help: "Outbox entries delivered",
		}),
		OutboxFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "escrow_outbox_failed_total",
			Help: "Outbox publish attempts that failed",
		}),
		OutboxBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "escrow_outbox_batch_size",
			Help:    "Pending outbox entries fetched per poll",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),

		ChainCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_chain_calls_total",
				Help: "Blockchain port calls by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		ChainCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "escrow_chain_call_duration_seconds",
				Help:    "Blockchain port call duration",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		ChainStaleReads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_chain_stale_reads_total",
				Help: "Reads served from the stale cache",
			},
			[]string{"method"},
		),
		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "escrow_circuit_breaker_state",
				Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
			},
			[]string{"name"},
		),

		LockAcquisitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_lock_acquisitions_total",
				Help: "Distributed lock attempts by scope and outcome",
			},
			[]string{"scope", "outcome"},
		),
		JobRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_job_runs_total",
				Help: "Periodic job runs by outcome",
			},
			[]string{"job", "outcome"},
		),
		DatabaseRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_database_retries_total",
				Help: "Transaction attempts retried after a transient database error, by SQLSTATE",
			},
			[]string{"code"},
		),

		ReconciliationCovered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "escrow_reconciliation_covered",
			Help: "1 when the hot wallet covers ledger liabilities",
		}),
		CommandsConsumed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "escrow_commands_consumed_total",
				Help: "Inbound settlement commands by type and outcome",
			},
			[]string{"type", "outcome"},
		),
	}
}
