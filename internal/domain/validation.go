package domain

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// PageRequest is a keyset pagination request.
type PageRequest struct {
	Cursor string
	Limit  int
}

// Cursor points at the last row of a page, ordered by (created_at, id) descending.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// ClampLimit clamps limit into [1, maxLimit], using defaultLimit when it is zero or negative.
func ClampLimit(limit, defaultLimit, maxLimit int) int {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// EncodeCursor renders c as an opaque token.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "|" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token yields nil.
func DecodeCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, WrapError(KindInvalidCursor, err, "invalid cursor")
	}

	ts, id, ok := strings.Cut(string(raw), "|")
	if !ok || id == "" {
		return nil, ErrInvalidCursor
	}

	nanos, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return nil, WrapError(KindInvalidCursor, err, "invalid cursor")
	}

	return &Cursor{CreatedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}
