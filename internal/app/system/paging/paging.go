// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PageSize is the default number of rows in a page.
const PageSize = 50

// MaxPageSize caps caller-requested page sizes.
const MaxPageSize = 200

// Limit clamps a requested page size to [1, MaxPageSize], using PageSize
// for zero or negative values.
func Limit(requested int) int {
	switch {
	case requested <= 0:
		return PageSize
	case requested > MaxPageSize:
		return MaxPageSize
	}
	return requested
}

// LimitPlusOne returns limit+1 for look-ahead pagination (fetch one extra
// row to detect whether another page exists).
func LimitPlusOne(limit int) int { return limit + 1 }

// ParseLimit reads the "limit" query parameter and clamps it.
func ParseLimit(r *http.Request) int {
	n, err := strconv.Atoi(query.Get(r, "limit"))
	if err != nil {
		return PageSize
	}
	return Limit(n)
}

// Trim cuts a look-ahead fetch down to limit rows and reports whether rows
// were dropped (another page exists).
func Trim[T any](rows *[]T, limit int) (hasMore bool) {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}

// TimeCursor marks a position in a list ordered by time then id.
type TimeCursor struct {
	At time.Time
	ID primitive.ObjectID
}

// EncodeTimeCursor encodes at and the hex ObjectID id as an opaque cursor.
// It returns "" if id is not an ObjectID.
func EncodeTimeCursor(at time.Time, id string) string {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ""
	}
	return wafflemongo.EncodeCursor(at.UTC().Format(time.RFC3339Nano), oid)
}

// DecodeTimeCursor reverses EncodeTimeCursor.
func DecodeTimeCursor(s string) (TimeCursor, bool) {
	if s == "" {
		return TimeCursor{}, false
	}
	c, ok := wafflemongo.DecodeCursor(s)
	if !ok {
		return TimeCursor{}, false
	}
	at, err := time.Parse(time.RFC3339Nano, c.CI)
	if err != nil {
		return TimeCursor{}, false
	}
	return TimeCursor{At: at, ID: c.ID}, true
}

// Reverse reverses a slice in place.
func Reverse[T any](rows []T) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
