// internal/app/features/chats/routes.go
package chats

import (
	"github.com/dalemusser/campuslink/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter mounted under /api/chats.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireUser)

	r.Post("/{userId}", h.ServeEnsure)
	r.Get("/{threadId}/messages", h.ServeHistory)
	r.Post("/{threadId}/messages", h.ServeSend)
	r.Post("/{threadId}/read", h.ServeMarkRead)
	return r
}
