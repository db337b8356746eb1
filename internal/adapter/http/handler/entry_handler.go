package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/domain"
)

// DealEntryService defines the behavior needed by EntryHandler.
type DealEntryService interface {
	GetEntriesByDeal(ctx context.Context, dealID string, page domain.PageRequest) (*domain.EntryPage, error)
}

// EntryHandler handles deal entry requests.
type EntryHandler struct {
	ledger DealEntryService
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(ledger DealEntryService) *EntryHandler {
	return &EntryHandler{ledger: ledger}
}

// ListByDeal lists entries tagged with a deal across all accounts.
func (h *EntryHandler) ListByDeal(w http.ResponseWriter, r *http.Request) {
	dealID := chi.URLParam(r, "id")
	if dealID == "" {
		writeError(w, http.StatusBadRequest, "missing deal ID", "")
		return
	}

	req, err := pageRequest(r)
	if err != nil {
		writeDomainError(w, err, "invalid page request")
		return
	}

	page, err := h.ledger.GetEntriesByDeal(r.Context(), dealID, req)
	if err != nil {
		writeDomainError(w, err, "failed to list entries")
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryPageFromDomain(page))
}
