package domain

import (
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Cursor points at the last entry of a page. The next page starts strictly
// after it in (created_at, id) descending order.
type Cursor struct {
	CreatedAt time.Time
	ID        int64
}

func CursorAfter(e LedgerEntry) *Cursor {
	return &Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
}

// String encodes the cursor as an opaque URL-safe token.
func (c Cursor) String() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixMicro(), 10) + ":" + strconv.FormatInt(c.ID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token produced by Cursor.String. An empty token means
// the first page.
func ParseCursor(token string) (*Cursor, error) {
	if token == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, Validation("invalid cursor")
	}
	micros, id, ok := strings.Cut(string(raw), ":")
	if !ok {
		return nil, Validation("invalid cursor")
	}
	ts, err := strconv.ParseInt(micros, 10, 64)
	if err != nil {
		return nil, Validation("invalid cursor")
	}
	entryID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || entryID <= 0 {
		return nil, Validation("invalid cursor")
	}
	return &Cursor{CreatedAt: time.UnixMicro(ts).UTC(), ID: entryID}, nil
}

// PageSize clamps a requested page size into [1, MaxPageSize].
func PageSize(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPageSize
	case limit > MaxPageSize:
		return MaxPageSize
	default:
		return limit
	}
}

// Before reports whether e sorts after the cursor position, i.e. belongs to the next page.
func (c Cursor) Before(e LedgerEntry) bool {
	if e.CreatedAt.Equal(c.CreatedAt) {
		return e.ID < c.ID
	}
	return e.CreatedAt.Before(c.CreatedAt)
}
