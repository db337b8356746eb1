package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/domain"
)

func TestPageRequest(t *testing.T) {
	tests := []struct {
		query   string
		want    domain.PageRequest
		wantErr bool
	}{
		{query: "", want: domain.PageRequest{}},
		{query: "cursor=abc&limit=7", want: domain.PageRequest{Cursor: "abc", Limit: 7}},
		{query: "limit=0", want: domain.PageRequest{}},
		{query: "limit=ten", wantErr: true},
		{query: "limit=-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := pageRequest(httptest.NewRequest(http.MethodGet, "/entries?"+tt.query, nil))
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, domain.KindInvalidArgument, domain.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapDomainError(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"account not found":       {domain.ErrAccountNotFound, http.StatusNotFound},
		"deposit not found":       {domain.ErrTransactionNotFound, http.StatusNotFound},
		"invalid cursor":          {domain.ErrInvalidCursor, http.StatusBadRequest},
		"invalid amount":          {domain.ErrInvalidAmount, http.StatusBadRequest},
		"insufficient balance":    {domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		"version conflict":        {domain.ErrVersionConflict, http.StatusConflict},
		"invalid transition":      {domain.ErrInvalidTransition, http.StatusConflict},
		"ambiguous attempt":       {domain.NewError(domain.KindAmbiguousPriorAttempt, "payout deal-1"), http.StatusConflict},
		"lock not acquired":       {domain.ErrLockNotAcquired, http.StatusServiceUnavailable},
		"chain call failed":       {domain.ErrChainCallFailed, http.StatusBadGateway},
		"wrapped kind":            {fmt.Errorf("approve: %w", domain.ErrTransactionNotFound), http.StatusNotFound},
		"ledger inconsistency":    {domain.ErrLedgerInconsistency, http.StatusInternalServerError},
		"plain error is internal": {errors.New("boom"), http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapDomainError(tt.err))
		})
	}
}

func TestWriteDomainError(t *testing.T) {
	rr := httptest.NewRecorder()

	writeDomainError(rr, domain.WrapError(domain.KindNotFound, domain.ErrTransactionNotFound, "deposit dep-1"), "failed to approve deposit")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "failed to approve deposit", resp.Error)
	assert.Equal(t, string(domain.KindNotFound), resp.Code)
	assert.Contains(t, resp.Message, "deposit dep-1")
}
