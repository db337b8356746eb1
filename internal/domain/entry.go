package domain

import "time"

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryDeposit        EntryType = "deposit"
	EntryRelease        EntryType = "release"
	EntryPayout         EntryType = "payout"
	EntryRefund         EntryType = "refund"
	EntryCommission     EntryType = "commission"
	EntrySweep          EntryType = "sweep"
	EntryWithdrawal     EntryType = "withdrawal"
	EntryFee            EntryType = "fee"
	EntryReversal       EntryType = "reversal"
	EntryWriteOff       EntryType = "write_off"
	EntryOverpayment    EntryType = "overpayment"
	EntryPartialDeposit EntryType = "partial_deposit"
	EntryLateDeposit    EntryType = "late_deposit"
)

var knownEntryTypes = map[EntryType]bool{
	EntryDeposit:        true,
	EntryRelease:        true,
	EntryPayout:         true,
	EntryRefund:         true,
	EntryCommission:     true,
	EntrySweep:          true,
	EntryWithdrawal:     true,
	EntryFee:            true,
	EntryReversal:       true,
	EntryWriteOff:       true,
	EntryOverpayment:    true,
	EntryPartialDeposit: true,
	EntryLateDeposit:    true,
}

// IsValid reports whether t is a known entry type.
func (t EntryType) IsValid() bool {
	return knownEntryTypes[t]
}

// Entry is one immutable leg of a ledger transaction.
// Delta is negative for debits and positive for credits.
type Entry struct {
	CreatedAt      time.Time
	DealID         *string
	ID             string
	TransactionRef string
	AccountKey     AccountKey
	EntryType      EntryType
	IdempotencyKey string
	Delta          int64
	BalanceAfter   int64
}

// EntryPage is a keyset-paginated slice of entries, newest first.
type EntryPage struct {
	Entries    []*Entry
	NextCursor string
}
