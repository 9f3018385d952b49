// internal/app/features/livefeed/routes.go
package livefeed

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter that serves the websocket endpoint, mounted
// under /live.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeWS)
	return r
}
