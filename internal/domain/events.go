package domain

import (
	"encoding/json"
	"time"
)

// EventType names a versioned outbound event.
type EventType string

const (
	EventDepositConfirmed     EventType = "escrow.deposit-confirmed.v1"
	EventDepositFailed        EventType = "escrow.deposit-failed.v1"
	EventPayoutCompleted      EventType = "escrow.payout-completed.v1"
	EventPayoutDeferred       EventType = "escrow.payout-deferred.v1"
	EventPayoutFailed         EventType = "escrow.payout-failed.v1"
	EventRefundCompleted      EventType = "escrow.refund-completed.v1"
	EventRefundDeferred       EventType = "escrow.refund-deferred.v1"
	EventRefundFailed         EventType = "escrow.refund-failed.v1"
	EventLateDeposit          EventType = "escrow.deposit-late.v1"
	EventReconciliationResult EventType = "escrow.reconciliation-result.v1"
	EventDustSwept            EventType = "escrow.dust-swept.v1"
)

// Default topics.
const (
	TopicDeposits    = "deposits"
	TopicSettlements = "settlements"
	TopicLedger      = "ledger"
)

// OutboxStatus is the delivery status of an outbox entry.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "PENDING"
	OutboxDelivered OutboxStatus = "DELIVERED"
)

// Envelope is the wire format of every published event and consumed command.
type Envelope struct {
	Timestamp     time.Time       `json:"timestamp"`
	DealID        *string         `json:"dealId,omitempty"`
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	CorrelationID string          `json:"correlationId"`
	Payload       json.RawMessage `json:"payload"`
}

// OutboxEntry is a durable record of one event awaiting publication.
type OutboxEntry struct {
	CreatedAt      time.Time
	DeliveredAt    *time.Time
	DealID         *string
	ID             string
	Topic          string
	EventType      EventType
	IdempotencyKey string
	Status         OutboxStatus
	LastError      string
	Payload        []byte
	RetryCount     int32
}

// DepositConfirmedPayload announces funds moved into escrow.
type DepositConfirmedPayload struct {
	DealID         string `json:"dealId"`
	DepositID      string `json:"depositId"`
	TxHash         string `json:"txHash"`
	TransactionRef string `json:"transactionRef"`
	Amount         int64  `json:"amountNano"`
	AmountTON      string `json:"amountTon"`
	Overpayment    int64  `json:"overpaymentNano"`
	Confirmations  int64  `json:"confirmations"`
	ApprovedBy     string `json:"approvedBy,omitempty"`
}

// Deposit failure reasons.
const (
	DepositFailureTimeout  = "timeout"
	DepositFailurePartial  = "partial"
	DepositFailureRejected = "rejected"
)

// DepositFailedPayload announces a deposit that will not fund escrow.
type DepositFailedPayload struct {
	DealID         string `json:"dealId"`
	DepositID      string `json:"depositId"`
	Reason         string `json:"reason"`
	TxHash         string `json:"txHash,omitempty"`
	ReceivedAmount int64  `json:"receivedNano"`
	ExpectedAmount int64  `json:"expectedNano"`
}

// SettlementCompletedPayload announces a submitted payout or refund.
type SettlementCompletedPayload struct {
	DealID         string `json:"dealId"`
	TransferID     string `json:"transferId"`
	TxHash         string `json:"txHash"`
	TransactionRef string `json:"transactionRef"`
	Destination    string `json:"destination"`
	Amount         int64  `json:"amountNano"`
	AmountTON      string `json:"amountTon"`
	Commission     int64  `json:"commissionNano"`
	Fee            int64  `json:"feeNano"`
}

// SettlementDeferredPayload announces a settlement waiting for a payout address.
type SettlementDeferredPayload struct {
	DealID string `json:"dealId"`
	UserID string `json:"userId"`
	Reason string `json:"reason"`
	Amount int64  `json:"amountNano"`
}

// Settlement failure reasons.
const (
	SettlementFailureInsufficientFunds = "insufficient_funds"
	SettlementFailureOutcomeUnknown    = "submission_outcome_unknown"
)

// SettlementFailedPayload announces a payout or refund that needs an operator.
type SettlementFailedPayload struct {
	DealID     string `json:"dealId"`
	TransferID string `json:"transferId,omitempty"`
	UserID     string `json:"userId"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail,omitempty"`
	Amount     int64  `json:"amountNano"`
}

// LateDepositPayload reports funds that reached a closed deposit address.
type LateDepositPayload struct {
	DealID         string `json:"dealId"`
	DepositID      string `json:"depositId"`
	TxHash         string `json:"txHash"`
	TransactionRef string `json:"transactionRef"`
	Amount         int64  `json:"amountNano"`
	AmountTON      string `json:"amountTon"`
}

// ReconciliationResultPayload reports a reconciliation run.
type ReconciliationResultPayload struct {
	RunAt             time.Time `json:"runAt"`
	WalletAddress     string    `json:"walletAddress,omitempty"`
	Issues            []string  `json:"issues,omitempty"`
	TotalBalance      string    `json:"totalBalance"`
	TotalDelta        string    `json:"totalDelta"`
	LedgerLiabilities int64     `json:"ledgerLiabilitiesNano"`
	ChainBalance      int64     `json:"chainBalanceNano"`
	DriftedAccounts   []string  `json:"driftedAccounts,omitempty"`
	Consistent        bool      `json:"consistent"`
	Covered           bool      `json:"covered"`
}

// DustSweptPayload reports an escrow residue written off.
type DustSweptPayload struct {
	DealID         string `json:"dealId"`
	TransactionRef string `json:"transactionRef"`
	Amount         int64  `json:"amountNano"`
}
