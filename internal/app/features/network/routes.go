// internal/app/features/network/routes.go
package network

import (
	"github.com/dalemusser/campuslink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /api/network.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireUser)

	r.Get("/requests", h.ServeIncoming)
	r.Post("/requests/{userId}", h.ServeRequest)
	r.Post("/requests/{userId}/accept", h.ServeAccept)
	r.Post("/requests/{userId}/decline", h.ServeDecline)
	r.Get("/status/{userId}", h.ServeStatus)
	r.Delete("/connections/{connectionId}", h.ServeRemove)
	return r
}
