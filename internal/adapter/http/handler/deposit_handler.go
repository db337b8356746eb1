package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/domain"
)

// DepositReviewer defines the behavior needed by DepositHandler.
type DepositReviewer interface {
	Approve(ctx context.Context, depositID, operator string) (*domain.TonTransaction, error)
	Reject(ctx context.Context, depositID, operator, reason string) (*domain.TonTransaction, error)
}

// DepositHandler resolves deposits held for operator review.
type DepositHandler struct {
	deposits DepositReviewer
}

// NewDepositHandler creates a new DepositHandler.
func NewDepositHandler(deposits DepositReviewer) *DepositHandler {
	return &DepositHandler{deposits: deposits}
}

// Approve confirms a deposit held for review and credits escrow.
func (h *DepositHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, req, ok := reviewRequest(w, r, false)
	if !ok {
		return
	}

	deposit, err := h.deposits.Approve(r.Context(), id, req.Operator)
	if err != nil {
		writeDomainError(w, err, "failed to approve deposit")
		return
	}

	writeJSON(w, http.StatusOK, dto.TonTransactionFromDomain(deposit))
}

// Reject closes a deposit held for review without touching the ledger.
func (h *DepositHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, req, ok := reviewRequest(w, r, true)
	if !ok {
		return
	}

	deposit, err := h.deposits.Reject(r.Context(), id, req.Operator, req.Reason)
	if err != nil {
		writeDomainError(w, err, "failed to reject deposit")
		return
	}

	writeJSON(w, http.StatusOK, dto.TonTransactionFromDomain(deposit))
}

func reviewRequest(w http.ResponseWriter, r *http.Request, requireReason bool) (string, dto.ReviewDepositRequest, bool) {
	var req dto.ReviewDepositRequest

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing deposit ID", "")
		return "", req, false
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return "", req, false
	}

	if err := req.Validate(requireReason); err != nil {
		writeDomainError(w, err, "invalid request")
		return "", req, false
	}

	return id, req, true
}
