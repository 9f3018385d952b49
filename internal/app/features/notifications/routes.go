// internal/app/features/notifications/routes.go
package notifications

import (
	"github.com/dalemusser/campuslink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /api/notifications.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireUser)

	r.Post("/read-all", h.ServeMarkAllRead)
	r.Delete("/", h.ServeClearAll)
	r.Post("/{id}/read", h.ServeMarkRead)
	r.Delete("/{id}", h.ServeDelete)
	r.Get("/{id}/route", h.ServeRoute)
	return r
}
