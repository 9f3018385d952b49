// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"net/http"

	"github.com/dalemusser/campuslink/internal/app/features/shared/httperr"
	notificationstore "github.com/dalemusser/campuslink/internal/app/store/notifications"
	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/auth"
	"github.com/dalemusser/campuslink/internal/app/system/timeouts"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's notification feed actions.
type Handler struct {
	Notes *notificationstore.Store
	Log   *zap.Logger
}

// NewHandler creates a notifications handler.
func NewHandler(notes *notificationstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Notes: notes, Log: logger}
}

type countResponse struct {
	Count int `json:"count"`
}

type routeResponse struct {
	OK bool `json:"ok"`
	notificationstore.Route
}

// ServeMarkRead handles POST /{id}/read.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "mark notification read")
	defer cancel()

	if _, err := h.own(ctx, me, id); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	if err := h.Notes.MarkRead(ctx, id); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMarkAllRead handles POST /read-all.
func (h *Handler) ServeMarkAllRead(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "mark all notifications read")
	defer cancel()

	n, err := h.Notes.MarkAllRead(ctx, me)
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, countResponse{Count: n})
}

// ServeClearAll handles DELETE /.
func (h *Handler) ServeClearAll(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "clear notifications")
	defer cancel()

	n, err := h.Notes.ClearAll(ctx, me)
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, countResponse{Count: n})
}

// ServeDelete handles DELETE /{id}.
func (h *Handler) ServeDelete(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "delete notification")
	defer cancel()

	if err := h.Notes.Delete(ctx, me, id); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeRoute handles GET /{id}/route: where the client should navigate when
// the user opens the notification. Types with no target answer ok=false.
func (h *Handler) ServeRoute(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	id := chi.URLParam(r, "id")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "notification route")
	defer cancel()

	n, err := h.own(ctx, me, id)
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	route, ok := notificationstore.Dispatch(*n)
	httperr.JSON(w, http.StatusOK, routeResponse{OK: ok, Route: route})
}

// own loads a notification addressed to userID. Someone else's reads as
// not found.
func (h *Handler) own(ctx context.Context, userID, id string) (*models.Notification, error) {
	n, err := h.Notes.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, apperr.NotFound("notification", id)
	}
	return n, nil
}
