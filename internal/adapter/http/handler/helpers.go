package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/iho/goescrow/internal/adapter/http/dto"
	"github.com/iho/goescrow/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError writes err with the status and code of its kind.
func writeDomainError(w http.ResponseWriter, err error, message string) {
	kind := domain.KindOf(err)
	writeJSON(w, mapDomainError(err), dto.ErrorResponse{
		Error:   message,
		Code:    string(kind),
		Message: err.Error(),
	})
}

// mapDomainError maps domain error kinds to HTTP status codes.
func mapDomainError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindInvalidArgument, domain.KindInvalidCursor:
		return http.StatusBadRequest
	case domain.KindInsufficientBalance:
		return http.StatusUnprocessableEntity
	case domain.KindVersionConflict, domain.KindInvalidState, domain.KindAmbiguousPriorAttempt:
		return http.StatusConflict
	case domain.KindLockNotAcquired:
		return http.StatusServiceUnavailable
	case domain.KindChainCallFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// pageRequest reads the cursor and limit query parameters. A missing limit
// leaves the default to the ledger; a malformed one is rejected.
func pageRequest(r *http.Request) (domain.PageRequest, error) {
	q := r.URL.Query()
	page := domain.PageRequest{Cursor: q.Get("cursor")}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return domain.PageRequest{}, domain.NewError(domain.KindInvalidArgument, "limit %q must be a non-negative integer", raw)
		}
		page.Limit = limit
	}

	return page, nil
}
