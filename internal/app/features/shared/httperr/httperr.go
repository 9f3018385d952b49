// Package httperr writes JSON responses for the API features and maps core
// errors onto HTTP status codes.
package httperr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"go.uber.org/zap"
)

// Body is the JSON error envelope.
type Body struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Status returns the HTTP status for err.
//
//	ValidationError -> 400
//	NotFoundError   -> 404
//	deadline        -> 504
//	anything else   -> 500
func Status(err error) int {
	var nf *apperr.NotFoundError
	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// Write maps err to a status and writes it. Server-side failures are logged
// and their details withheld from the client.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status := Status(err)
	body := Body{Error: err.Error()}

	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
		body.Error = http.StatusText(status)
	}
	JSON(w, status, body)
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, Body{Error: msg})
}

// NotFound writes a 404 with msg.
func NotFound(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusNotFound, Body{Error: msg})
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, Body{Error: "unauthorized"})
}

// TooManyRequests writes a 429.
func TooManyRequests(w http.ResponseWriter) {
	JSON(w, http.StatusTooManyRequests, Body{Error: "slow down"})
}
