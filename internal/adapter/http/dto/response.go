package dto

import (
	"time"

	"github.com/iho/goescrow/internal/domain"
)

// BalanceResponse represents an account balance in API responses.
type BalanceResponse struct {
	Account     string `json:"account"`
	BalanceNano int64  `json:"balance_nano"`
	BalanceTON  string `json:"balance_ton"`
}

// BalanceFromDomain builds a balance response.
func BalanceFromDomain(key domain.AccountKey, balance int64) *BalanceResponse {
	return &BalanceResponse{
		Account:     key.String(),
		BalanceNano: balance,
		BalanceTON:  domain.FormatTON(balance),
	}
}

// EntryResponse represents an entry in API responses.
type EntryResponse struct {
	ID             string    `json:"id"`
	TransactionRef string    `json:"transaction_ref"`
	Account        string    `json:"account"`
	EntryType      string    `json:"entry_type"`
	DealID         *string   `json:"deal_id,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	DeltaNano      int64     `json:"delta_nano"`
	BalanceAfter   int64     `json:"balance_after_nano"`
	CreatedAt      time.Time `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:             e.ID,
		TransactionRef: e.TransactionRef,
		Account:        e.AccountKey.String(),
		EntryType:      string(e.EntryType),
		DealID:         e.DealID,
		IdempotencyKey: e.IdempotencyKey,
		DeltaNano:      e.Delta,
		BalanceAfter:   e.BalanceAfter,
		CreatedAt:      e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// EntryPageResponse is a page of entries with the cursor of the next page.
type EntryPageResponse struct {
	Entries    []*EntryResponse `json:"entries"`
	NextCursor string           `json:"next_cursor,omitempty"`
}

// EntryPageFromDomain converts a domain page to response.
func EntryPageFromDomain(p *domain.EntryPage) *EntryPageResponse {
	return &EntryPageResponse{
		Entries:    EntriesFromDomain(p.Entries),
		NextCursor: p.NextCursor,
	}
}

// ConsistencyResponse reports the ledger consistency check.
type ConsistencyResponse struct {
	Status     string `json:"status"`
	Consistent bool   `json:"consistent"`
	Message    string `json:"message,omitempty"`
}

// TonTransactionResponse represents a tracked chain transfer in API responses.
type TonTransactionResponse struct {
	ID             string    `json:"id"`
	DealID         string    `json:"deal_id"`
	Direction      string    `json:"direction"`
	Operation      string    `json:"operation"`
	Status         string    `json:"status"`
	FromAddress    string    `json:"from_address,omitempty"`
	ToAddress      string    `json:"to_address"`
	TxHash         *string   `json:"tx_hash,omitempty"`
	ReviewedBy     *string   `json:"reviewed_by,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	ExpectedAmount int64     `json:"expected_amount_nano"`
	ReceivedAmount int64     `json:"received_amount_nano"`
	Confirmations  int64     `json:"confirmations"`
	Version        int64     `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TonTransactionFromDomain converts a domain transfer to response.
func TonTransactionFromDomain(t *domain.TonTransaction) *TonTransactionResponse {
	return &TonTransactionResponse{
		ID:             t.ID,
		DealID:         t.DealID,
		Direction:      string(t.Direction),
		Operation:      string(t.Operation),
		Status:         string(t.Status),
		FromAddress:    t.FromAddress,
		ToAddress:      t.ToAddress,
		TxHash:         t.TxHash,
		ReviewedBy:     t.ReviewedBy,
		FailureReason:  t.FailureReason,
		ExpectedAmount: t.ExpectedAmount,
		ReceivedAmount: t.ReceivedAmount,
		Confirmations:  t.Confirmations,
		Version:        t.Version,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// PayoutAddressResponse represents a user's payout address.
type PayoutAddressResponse struct {
	UserID    string    `json:"user_id"`
	Address   string    `json:"address"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PayoutAddressFromDomain converts domain payout address to response.
func PayoutAddressFromDomain(a *domain.PayoutAddress) *PayoutAddressResponse {
	return &PayoutAddressResponse{
		UserID:    a.UserID,
		Address:   a.Address,
		UpdatedAt: a.UpdatedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
