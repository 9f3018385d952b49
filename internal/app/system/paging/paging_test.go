package paging

import (
	"net/http/httptest"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, PageSize},
		{-3, PageSize},
		{1, 1},
		{25, 25},
		{MaxPageSize, MaxPageSize},
		{MaxPageSize + 1, MaxPageSize},
	}
	for _, tt := range tests {
		if got := Limit(tt.in); got != tt.want {
			t.Errorf("Limit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
	if LimitPlusOne(10) != 11 {
		t.Error("LimitPlusOne(10) != 11")
	}
}

func TestParseLimit(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{"/x", PageSize},
		{"/x?limit=abc", PageSize},
		{"/x?limit=20", 20},
		{"/x?limit=100000", MaxPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := ParseLimit(httptest.NewRequest("GET", tt.url, nil)); got != tt.want {
				t.Errorf("ParseLimit(%s) = %d, want %d", tt.url, got, tt.want)
			}
		})
	}
}

func TestTrim(t *testing.T) {
	tests := []struct {
		name     string
		rows     []int
		limit    int
		wantRows []int
		wantMore bool
	}{
		{"short", []int{1, 2}, 3, []int{1, 2}, false},
		{"exact", []int{1, 2, 3}, 3, []int{1, 2, 3}, false},
		{"look-ahead row", []int{1, 2, 3, 4}, 3, []int{1, 2, 3}, true},
		{"empty", nil, 3, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := tt.rows
			more := Trim(&rows, tt.limit)
			if more != tt.wantMore {
				t.Errorf("hasMore = %v, want %v", more, tt.wantMore)
			}
			if len(rows) != len(tt.wantRows) {
				t.Fatalf("rows = %v, want %v", rows, tt.wantRows)
			}
			for i := range rows {
				if rows[i] != tt.wantRows[i] {
					t.Errorf("rows[%d] = %d, want %d", i, rows[i], tt.wantRows[i])
				}
			}
		})
	}
}

func TestTimeCursor_RoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 30, 0, 123_000_000, time.UTC)
	id := primitive.NewObjectID()

	enc := EncodeTimeCursor(at, id.Hex())
	if enc == "" {
		t.Fatal("expected a cursor")
	}
	got, ok := DecodeTimeCursor(enc)
	if !ok {
		t.Fatal("cursor did not decode")
	}
	if !got.At.Equal(at) || got.ID != id {
		t.Errorf("round trip: got %+v", got)
	}

	if EncodeTimeCursor(at, "not-an-oid") != "" {
		t.Error("expected empty cursor for non-ObjectID id")
	}
	if _, ok := DecodeTimeCursor(""); ok {
		t.Error("empty cursor should not decode")
	}
	if _, ok := DecodeTimeCursor("garbage!!"); ok {
		t.Error("garbage cursor should not decode")
	}
}

func TestReverse(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	Reverse(rows)
	for i, want := range []int{4, 3, 2, 1} {
		if rows[i] != want {
			t.Fatalf("Reverse: got %v", rows)
		}
	}
}
