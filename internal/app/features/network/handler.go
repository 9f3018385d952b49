// internal/app/features/network/handler.go
package network

import (
	"net/http"

	"github.com/dalemusser/campuslink/internal/app/features/shared/httperr"
	connectionstore "github.com/dalemusser/campuslink/internal/app/store/connections"
	"github.com/dalemusser/campuslink/internal/app/system/auth"
	"github.com/dalemusser/campuslink/internal/app/system/pairkey"
	"github.com/dalemusser/campuslink/internal/app/system/timeouts"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the connection request lifecycle for the signed-in user.
type Handler struct {
	Conns *connectionstore.Store
	Log   *zap.Logger
}

// NewHandler creates a network handler.
func NewHandler(conns *connectionstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Conns: conns, Log: logger}
}

type statusResponse struct {
	Status connectionstore.Status `json:"status"`
}

type requestsResponse struct {
	Requests []models.ConnectionRequest `json:"requests"`
}

// ServeRequest handles POST /requests/{userId}: the caller asks userId to
// connect.
func (h *Handler) ServeRequest(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	other := chi.URLParam(r, "userId")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "connection request")
	defer cancel()

	if err := h.Conns.Request(ctx, me, other); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusCreated, statusResponse{Status: connectionstore.StatusPendingOutgoing})
}

// ServeAccept handles POST /requests/{userId}/accept: the caller accepts the
// request userId sent them.
func (h *Handler) ServeAccept(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	from := chi.URLParam(r, "userId")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "accept connection")
	defer cancel()

	if err := h.Conns.Accept(ctx, from, me); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, statusResponse{Status: connectionstore.StatusConnected})
}

// ServeDecline handles POST /requests/{userId}/decline.
func (h *Handler) ServeDecline(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	from := chi.URLParam(r, "userId")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "decline connection")
	defer cancel()

	if err := h.Conns.Decline(ctx, from, me); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeIncoming handles GET /requests: pending requests addressed to the
// caller, newest first.
func (h *Handler) ServeIncoming(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "incoming requests")
	defer cancel()

	reqs, err := h.Conns.IncomingRequests(ctx, me)
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, requestsResponse{Requests: reqs})
}

// ServeStatus handles GET /status/{userId}.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	other := chi.URLParam(r, "userId")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "connection status")
	defer cancel()

	st, err := h.Conns.Status(ctx, me, other)
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, statusResponse{Status: st})
}

// ServeRemove handles DELETE /connections/{connectionId}. Only a member of
// the connection may remove it; anyone else gets 404.
func (h *Handler) ServeRemove(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	id := chi.URLParam(r, "connectionId")
	if !pairkey.Contains(id, me) {
		httperr.NotFound(w, "connection not found: "+id)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "remove connection")
	defer cancel()

	if err := h.Conns.Remove(ctx, id); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
