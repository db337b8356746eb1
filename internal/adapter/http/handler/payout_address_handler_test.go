package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/domain"
	"github.com/iho/goescrow/internal/usecase/mocks"
)

type stubPayoutAddresses struct {
	stored map[string]*domain.PayoutAddress
}

func (s *stubPayoutAddresses) Get(ctx context.Context, userID string) (*domain.PayoutAddress, error) {
	addr, ok := s.stored[userID]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "no payout address for %s", userID)
	}
	return addr, nil
}

func (s *stubPayoutAddresses) Upsert(ctx context.Context, addr *domain.PayoutAddress) error {
	s.stored[addr.UserID] = addr
	return nil
}

func TestPayoutAddressHandler_UpsertNormalizes(t *testing.T) {
	repo := &stubPayoutAddresses{stored: map[string]*domain.PayoutAddress{}}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	handler := NewPayoutAddressHandler(repo, mocks.NewMockClock(now))

	raw := "0:" + strings.Repeat("cd", 32)
	body := `{"address":"` + strings.ToUpper(raw) + `"}`

	req := httptest.NewRequest(http.MethodPut, "/payout-addresses/user-1", strings.NewReader(body))
	req = setChiURLParam(req, "userId", "user-1")
	rec := httptest.NewRecorder()

	handler.Upsert(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	stored := repo.stored["user-1"]
	if stored == nil || stored.Address != raw || !stored.UpdatedAt.Equal(now) {
		t.Fatalf("unexpected stored address %+v", stored)
	}

	req = httptest.NewRequest(http.MethodGet, "/payout-addresses/user-1", nil)
	req = setChiURLParam(req, "userId", "user-1")
	rec = httptest.NewRecorder()

	handler.Get(rec, req)

	var resp dto.PayoutAddressResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Address != raw {
		t.Fatalf("expected %s, got %s", raw, resp.Address)
	}
}

func TestPayoutAddressHandler_UpsertRejectsInvalidAddress(t *testing.T) {
	repo := &stubPayoutAddresses{stored: map[string]*domain.PayoutAddress{}}
	handler := NewPayoutAddressHandler(repo, nil)

	req := httptest.NewRequest(http.MethodPut, "/payout-addresses/user-1", strings.NewReader(`{"address":"garbage"}`))
	req = setChiURLParam(req, "userId", "user-1")
	rec := httptest.NewRecorder()

	handler.Upsert(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(repo.stored) != 0 {
		t.Fatalf("invalid address must not be stored")
	}
}

func TestPayoutAddressHandler_GetMissing(t *testing.T) {
	handler := NewPayoutAddressHandler(&stubPayoutAddresses{stored: map[string]*domain.PayoutAddress{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/payout-addresses/ghost", nil)
	req = setChiURLParam(req, "userId", "ghost")
	rec := httptest.NewRecorder()

	handler.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
