package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/domain"
)

// ConsistencyChecker defines the behavior needed by LedgerHandler.
type ConsistencyChecker interface {
	CheckConsistency(ctx context.Context) (bool, error)
}

// LedgerHandler handles ledger-wide operations.
type LedgerHandler struct {
	ledger ConsistencyChecker
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledger ConsistencyChecker) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// CheckConsistency checks that balances and entry deltas both sum to zero.
func (h *LedgerHandler) CheckConsistency(w http.ResponseWriter, r *http.Request) {
	consistent, err := h.ledger.CheckConsistency(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrLedgerInconsistency) {
			writeJSON(w, http.StatusConflict, dto.ConsistencyResponse{
				Status:     "inconsistent",
				Consistent: false,
				Message:    err.Error(),
			})
			return
		}
		writeDomainError(w, err, "failed to check consistency")
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyResponse{
		Status:     "consistent",
		Consistent: consistent,
	})
}
