package domain

import "time"

// Direction of a tracked blockchain transfer.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Operation is the business purpose of a tracked transfer.
type Operation string

const (
	OperationDeposit Operation = "DEPOSIT"
	OperationPayout  Operation = "PAYOUT"
	OperationRefund  Operation = "REFUND"
)

// KeyPrefix returns the lower-case prefix used in idempotency keys.
func (o Operation) KeyPrefix() string {
	switch o {
	case OperationDeposit:
		return "deposit"
	case OperationPayout:
		return "payout"
	case OperationRefund:
		return "refund"
	default:
		return "unknown"
	}
}

// TxStatus is the lifecycle status of a tracked transfer.
type TxStatus string

const (
	// inbound
	StatusPending                TxStatus = "PENDING"
	StatusTimeout                TxStatus = "TIMEOUT"
	StatusAwaitingOperatorReview TxStatus = "AWAITING_OPERATOR_REVIEW"
	StatusRejected               TxStatus = "REJECTED"

	// outbound
	StatusCreated   TxStatus = "CREATED"
	StatusSubmitted TxStatus = "SUBMITTED"
	StatusAbandoned TxStatus = "ABANDONED"

	// both
	StatusConfirmed TxStatus = "CONFIRMED"
)

var allowedTransitions = map[TxStatus][]TxStatus{
	StatusPending:                {StatusConfirmed, StatusTimeout, StatusAwaitingOperatorReview},
	StatusAwaitingOperatorReview: {StatusConfirmed, StatusRejected},
	StatusCreated:                {StatusSubmitted, StatusAbandoned},
	StatusSubmitted:              {StatusConfirmed},
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s TxStatus) CanTransitionTo(next TxStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s TxStatus) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// TonTransaction tracks one inbound deposit or outbound payout/refund.
type TonTransaction struct {
	CreatedAt       time.Time
	UpdatedAt       time.Time
	TxHash          *string
	FirstSeenHeight *int64
	ReviewedBy      *string
	ID              string
	DealID          string
	Direction       Direction
	Operation       Operation
	FromAddress     string
	ToAddress       string
	Status          TxStatus
	FailureReason   string
	ExpectedAmount  int64
	ReceivedAmount  int64
	Fee             int64
	Commission      int64
	Lt              uint64
	Confirmations   int64
	SubwalletIndex  int32
	Version         int64
}

// HasHash reports whether a transaction hash has been recorded.
func (t *TonTransaction) HasHash() bool {
	return t.TxHash != nil && *t.TxHash != ""
}

// Hash returns the recorded hash or an empty string.
func (t *TonTransaction) Hash() string {
	if t.TxHash == nil {
		return ""
	}
	return *t.TxHash
}

// IsAmbiguous reports whether an outbound attempt was created but never
// recorded a hash, so it is unknown whether the chain accepted it.
func (t *TonTransaction) IsAmbiguous() bool {
	return t.Direction == DirectionOut && t.Status == StatusCreated && !t.HasHash()
}

// StatusUpdate is a version-checked status transition.
type StatusUpdate struct {
	UpdatedAt       time.Time
	TxHash          *string
	FirstSeenHeight *int64
	ReviewedBy      *string
	ID              string
	Status          TxStatus
	FailureReason   string
	ReceivedAmount  int64
	Fee             int64
	Lt              uint64
	Confirmations   int64
	ExpectedVersion int64
}

// ChainMessage is an inbound or outbound message of a chain transaction.
type ChainMessage struct {
	Source      string
	Destination string
	Comment     string
	Amount      int64
}

// ChainTransaction is a transaction observed on the chain.
type ChainTransaction struct {
	ObservedAt time.Time
	InMsg      *ChainMessage
	Hash       string
	OutMsgs    []ChainMessage
	Lt         uint64
	Fee        int64
}

// IsUsableInbound reports whether the transaction carries a funded inbound
// message from another account.
func (t ChainTransaction) IsUsableInbound() bool {
	return t.Hash != "" && t.InMsg != nil && t.InMsg.Source != "" && t.InMsg.Amount > 0
}

// PayoutAddress is the registered on-chain destination of a user.
type PayoutAddress struct {
	UpdatedAt time.Time
	UserID    string
	Address   string
}
