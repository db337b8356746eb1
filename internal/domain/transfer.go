package domain

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Side is the direction of a leg.
type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

// Leg is one debit or credit line of a transfer. Amount is always positive.
type Leg struct {
	Account   AccountKey
	EntryType EntryType
	Side      Side
	Amount    int64
}

// Delta returns the signed balance change the leg applies.
func (l Leg) Delta() int64 {
	if l.Side == Debit {
		return -l.Amount
	}
	return l.Amount
}

// TransferRequest is a balanced multi-leg ledger transfer.
type TransferRequest struct {
	Metadata       map[string]string
	DealID         *string
	IdempotencyKey string
	Legs           []Leg
}

// Validate checks the request before any mutation. Unbalanced requests fail
// with ErrLedgerInconsistency.
func (r TransferRequest) Validate() error {
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return NewError(KindInvalidArgument, "idempotency key is required")
	}

	if len(r.Legs) < 2 {
		return NewError(KindInvalidArgument, "transfer needs at least two legs")
	}

	var debits, credits int64
	for _, leg := range r.Legs {
		if err := leg.Account.Validate(); err != nil {
			return WrapError(KindInvalidArgument, err, "leg account %q", leg.Account)
		}

		if !leg.EntryType.IsValid() {
			return NewError(KindInvalidArgument, "unknown entry type %q", leg.EntryType)
		}

		if leg.Amount <= 0 {
			return ErrInvalidAmount
		}

		switch leg.Side {
		case Debit:
			if debits > math.MaxInt64-leg.Amount {
				return WrapError(KindLedgerInconsistency, ErrLedgerInconsistency, "debit legs overflow")
			}
			debits += leg.Amount
		case Credit:
			if credits > math.MaxInt64-leg.Amount {
				return WrapError(KindLedgerInconsistency, ErrLedgerInconsistency, "credit legs overflow")
			}
			credits += leg.Amount
		default:
			return NewError(KindInvalidArgument, "unknown leg side %q", leg.Side)
		}
	}

	if debits != credits {
		return WrapError(KindLedgerInconsistency, ErrLedgerInconsistency,
			"debits %d do not match credits %d", debits, credits)
	}

	return nil
}

// SortedLegs returns the legs ordered by account key, credits before debits
// on the same account. Every transfer mutates accounts in this global order.
func (r TransferRequest) SortedLegs() []Leg {
	legs := make([]Leg, len(r.Legs))
	copy(legs, r.Legs)

	sort.SliceStable(legs, func(i, j int) bool {
		if legs[i].Account != legs[j].Account {
			return legs[i].Account < legs[j].Account
		}
		return legs[i].Side == Credit && legs[j].Side == Debit
	})

	return legs
}

// Accounts returns the distinct accounts touched by the request, sorted.
func (r TransferRequest) Accounts() []AccountKey {
	seen := make(map[AccountKey]bool, len(r.Legs))
	keys := make([]AccountKey, 0, len(r.Legs))

	for _, leg := range r.Legs {
		if !seen[leg.Account] {
			seen[leg.Account] = true
			keys = append(keys, leg.Account)
		}
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	return keys
}

// LedgerTransaction is the idempotency marker shared by all legs of a transfer.
type LedgerTransaction struct {
	CreatedAt      time.Time
	DealID         *string
	Metadata       map[string]string
	ID             string
	IdempotencyKey string
}

// TransferResult describes the outcome of a transfer.
// Applied is false when the idempotency key had already been recorded.
type TransferResult struct {
	TransactionRef string
	Entries        []*Entry
	Accounts       []AccountKey
	Applied        bool
}
