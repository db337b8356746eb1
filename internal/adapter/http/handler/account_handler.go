package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/domain"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	GetBalance(ctx context.Context, key domain.AccountKey) (int64, error)
	GetEntriesByAccount(ctx context.Context, key domain.AccountKey, page domain.PageRequest) (*domain.EntryPage, error)
}

// AccountHandler serves account balances and entries.
type AccountHandler struct {
	ledger AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ledger AccountService) *AccountHandler {
	return &AccountHandler{ledger: ledger}
}

// Balance returns the balance of an account.
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKeyParam(w, r)
	if !ok {
		return
	}

	balance, err := h.ledger.GetBalance(r.Context(), key)
	if err != nil {
		writeDomainError(w, err, "failed to get balance")
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(key, balance))
}

// Entries lists the entries of an account, newest first.
func (h *AccountHandler) Entries(w http.ResponseWriter, r *http.Request) {
	key, ok := accountKeyParam(w, r)
	if !ok {
		return
	}

	req, err := pageRequest(r)
	if err != nil {
		writeDomainError(w, err, "invalid page request")
		return
	}

	page, err := h.ledger.GetEntriesByAccount(r.Context(), key, req)
	if err != nil {
		writeDomainError(w, err, "failed to list entries")
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryPageFromDomain(page))
}

func accountKeyParam(w http.ResponseWriter, r *http.Request) (domain.AccountKey, bool) {
	raw := chi.URLParam(r, "key")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing account key", "")
		return "", false
	}

	key, err := domain.ParseAccountKey(raw)
	if err != nil {
		writeDomainError(w, err, "invalid account key")
		return "", false
	}

	return key, true
}
