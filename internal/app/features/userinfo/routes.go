// internal/app/features/userinfo/routes.go
package userinfo

import "github.com/go-chi/chi/v5"

// MountRoutes registers GET and PUT /api/user on the supplied router.
// No auth-specific middleware is required because the handlers check the
// caller via auth.CurrentUserID.
func MountRoutes(r chi.Router, h *Handler) {
	r.Get("/api/user", h.ServeUserInfo)
	r.Put("/api/user", h.ServeUpdateProfile)
}
