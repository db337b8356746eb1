package usecase

import (
	"strconv"
	"time"
)

const (
	// DefaultTransactionTimeout is the maximum duration for a database transaction
	// This prevents long-running transactions from blocking tables
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long HTTP idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending is stored under an idempotency key while the first
	// request holding it is in flight.
	IdempotencyPending = "processing"

	// DefaultPageSize and MaxPageSize bound entry queries when not configured.
	DefaultPageSize = 20
	MaxPageSize     = 100

	// DefaultBalanceCacheTTL bounds how stale a cached balance may be.
	DefaultBalanceCacheTTL = 30 * time.Second

	// Lock keys of periodic jobs.
	LockDepositPoll     = "job:deposit-poll"
	LockLateDeposits    = "job:late-deposit-sweep"
	LockOutboxPublish   = "job:outbox-publish"
	LockOutboundConfirm = "job:outbound-confirm"
	LockDustSweep       = "job:dust-sweep"
	LockReconciliation  = "job:reconciliation"

	// DefaultJobLockTTL bounds how long a crashed job holder blocks others.
	DefaultJobLockTTL = time.Minute

	// DefaultDriftLimit caps drifted accounts listed per reconciliation report.
	DefaultDriftLimit = 20
)

// WalletLockKey is the lock key serializing submissions from one subwallet.
func WalletLockKey(subwalletIndex int32) string {
	return "wallet:" + strconv.FormatInt(int64(subwalletIndex), 10)
}
