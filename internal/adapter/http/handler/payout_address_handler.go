package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goescrow/internal/adapter/blockchain/tonaddr"
	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/usecase"
)

// PayoutAddressHandler manages users' payout destinations.
type PayoutAddressHandler struct {
	repo  usecase.PayoutAddressRepository
	clock usecase.Clock
}

// NewPayoutAddressHandler creates a new PayoutAddressHandler.
func NewPayoutAddressHandler(repo usecase.PayoutAddressRepository, clock usecase.Clock) *PayoutAddressHandler {
	if clock == nil {
		clock = usecase.SystemClock{}
	}
	return &PayoutAddressHandler{repo: repo, clock: clock}
}

// Get returns a user's payout address.
func (h *PayoutAddressHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user ID", "")
		return
	}

	addr, err := h.repo.Get(r.Context(), userID)
	if err != nil {
		writeDomainError(w, err, "failed to get payout address")
		return
	}

	writeJSON(w, http.StatusOK, dto.PayoutAddressFromDomain(addr))
}

// Upsert validates and stores a user's payout address. Addresses are stored
// in raw form so outbound matching compares one spelling.
func (h *PayoutAddressHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing user ID", "")
		return
	}

	var req dto.UpsertPayoutAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	normalized, err := tonaddr.Normalize(req.Address)
	if err != nil {
		writeDomainError(w, err, "invalid address")
		return
	}

	addr := &domain.PayoutAddress{
		UserID:    userID,
		Address:   normalized,
		UpdatedAt: h.clock.Now(),
	}
	if err := h.repo.Upsert(r.Context(), addr); err != nil {
		writeDomainError(w, err, "failed to store payout address")
		return
	}

	writeJSON(w, http.StatusOK, dto.PayoutAddressFromDomain(addr))
}
