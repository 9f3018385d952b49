package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/campuslink/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// PingFunc checks a backing service. A nil PingFunc means there is nothing
// to check (the in-memory store).
type PingFunc func(ctx context.Context) error

// Handler holds dependencies needed for health checks.
type Handler struct {
	Backend string
	Ping    PingFunc
	Log     *zap.Logger
}

// NewHandler constructs a health Handler for the named store backend.
func NewHandler(backend string, ping PingFunc, logger *zap.Logger) *Handler {
	return &Handler{
		Backend: backend,
		Ping:    ping,
		Log:     logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status   string `json:"status"`
	Backend  string `json:"backend"`
	Database string `json:"database"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "backend":"mongo", "database":"connected" }
//
// On DB failure: 503 and
//
//	{ "status":"error", "backend":"mongo", "database":"disconnected", "message":"Database unavailable", "error":"…"}
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{
		Status:   "ok",
		Backend:  h.Backend,
		Database: "connected",
	}

	if h.Ping != nil {
		if err := h.Ping(ctx); err != nil {
			h.Log.Error("health-check: ping failed", zap.String("backend", h.Backend), zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			resp.Status = "error"
			resp.Database = "disconnected"
			resp.Message = "Database unavailable"
			resp.Error = err.Error()
		}
	}

	_ = json.NewEncoder(w).Encode(resp)
}
