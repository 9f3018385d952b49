package httperr_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/campuslink/internal/app/features/shared/httperr"
	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"go.uber.org/zap"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", apperr.Invalid("text", apperr.ErrEmptyMessage), http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("send: %w", apperr.Invalid("to", apperr.ErrSelfConnection)), http.StatusBadRequest},
		{"not found", apperr.NotFound("thread", "a_b"), http.StatusNotFound},
		{"deadline", apperr.Store("messages.send", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"store", apperr.Store("messages.send", errors.New("boom")), http.StatusInternalServerError},
		{"plain", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := httperr.Status(tt.err); got != tt.want {
				t.Errorf("Status = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWrite_HidesServerErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/x", nil)
	httperr.Write(rec, req, zap.NewNop(), apperr.Store("op", errors.New("secret detail")))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body httperr.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Internal Server Error" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestWrite_ValidationField(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/x", nil)
	httperr.Write(rec, req, zap.NewNop(), apperr.Invalid("text", apperr.ErrEmptyMessage))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var body httperr.Body
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Field != "text" {
		t.Errorf("field = %q, want text", body.Field)
	}
}
