package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/domain"
)

type stubLedger struct {
	balanceFn     func(ctx context.Context, key domain.AccountKey) (int64, error)
	accountPageFn func(ctx context.Context, key domain.AccountKey, page domain.PageRequest) (*domain.EntryPage, error)
	dealPageFn    func(ctx context.Context, dealID string, page domain.PageRequest) (*domain.EntryPage, error)
	consistencyFn func(ctx context.Context) (bool, error)
}

func (s *stubLedger) GetBalance(ctx context.Context, key domain.AccountKey) (int64, error) {
	return s.balanceFn(ctx, key)
}

func (s *stubLedger) GetEntriesByAccount(ctx context.Context, key domain.AccountKey, page domain.PageRequest) (*domain.EntryPage, error) {
	return s.accountPageFn(ctx, key, page)
}

func (s *stubLedger) GetEntriesByDeal(ctx context.Context, dealID string, page domain.PageRequest) (*domain.EntryPage, error) {
	return s.dealPageFn(ctx, dealID, page)
}

func (s *stubLedger) CheckConsistency(ctx context.Context) (bool, error) {
	return s.consistencyFn(ctx)
}

func TestAccountHandler_Balance(t *testing.T) {
	var gotKey domain.AccountKey
	handler := NewAccountHandler(&stubLedger{
		balanceFn: func(ctx context.Context, key domain.AccountKey) (int64, error) {
			gotKey = key
			return 1_500_000_000, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/accounts/ESCROW:deal-1/balance", nil)
	req = setChiURLParam(req, "key", "ESCROW:deal-1")
	rec := httptest.NewRecorder()

	handler.Balance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotKey != domain.EscrowAccount("deal-1") {
		t.Fatalf("unexpected key %q", gotKey)
	}

	var resp dto.BalanceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.BalanceNano != 1_500_000_000 || resp.BalanceTON != "1.500000000" {
		t.Fatalf("unexpected balance %+v", resp)
	}
}

func TestAccountHandler_BalanceInvalidKey(t *testing.T) {
	handler := NewAccountHandler(&stubLedger{})

	req := httptest.NewRequest(http.MethodGet, "/accounts/NOPE/balance", nil)
	req = setChiURLParam(req, "key", "NOPE:x")
	rec := httptest.NewRecorder()

	handler.Balance(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_BalanceMissingKey(t *testing.T) {
	handler := NewAccountHandler(&stubLedger{})

	req := httptest.NewRequest(http.MethodGet, "/accounts//balance", nil)
	rec := httptest.NewRecorder()

	handler.Balance(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAccountHandler_Entries(t *testing.T) {
	var gotPage domain.PageRequest
	deal := "deal-1"
	handler := NewAccountHandler(&stubLedger{
		accountPageFn: func(ctx context.Context, key domain.AccountKey, page domain.PageRequest) (*domain.EntryPage, error) {
			gotPage = page
			return &domain.EntryPage{
				Entries: []*domain.Entry{
					{ID: "e2", AccountKey: key, DealID: &deal, Delta: 5, BalanceAfter: 15, EntryType: domain.EntryDeposit, CreatedAt: time.Now()},
					{ID: "e1", AccountKey: key, DealID: &deal, Delta: 10, BalanceAfter: 10, EntryType: domain.EntryDeposit, CreatedAt: time.Now()},
				},
				NextCursor: "next",
			}, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/accounts/ESCROW:deal-1/entries?limit=2&cursor=abc", nil)
	req = setChiURLParam(req, "key", "ESCROW:deal-1")
	rec := httptest.NewRecorder()

	handler.Entries(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotPage.Limit != 2 || gotPage.Cursor != "abc" {
		t.Fatalf("unexpected page request %+v", gotPage)
	}

	var resp dto.EntryPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Entries) != 2 || resp.NextCursor != "next" {
		t.Fatalf("unexpected page %+v", resp)
	}
}

func TestAccountHandler_EntriesInvalidCursor(t *testing.T) {
	handler := NewAccountHandler(&stubLedger{
		accountPageFn: func(ctx context.Context, key domain.AccountKey, page domain.PageRequest) (*domain.EntryPage, error) {
			return nil, domain.ErrInvalidCursor
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/accounts/ESCROW:deal-1/entries?cursor=bad", nil)
	req = setChiURLParam(req, "key", "ESCROW:deal-1")
	rec := httptest.NewRecorder()

	handler.Entries(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Code != string(domain.KindInvalidCursor) {
		t.Fatalf("expected INVALID_CURSOR code, got %q", resp.Code)
	}
}

func setChiURLParam(r *http.Request, key, value string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, &chi.Context{
		URLParams: chi.RouteParams{
			Keys:   []string{key},
			Values: []string{value},
		},
	}))
}
