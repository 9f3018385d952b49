// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/campuslink/internal/app/features/shared/httperr"
)

// Handler is the errors feature handler. It answers requests the router
// could not match, in the same JSON envelope the API features use.
type Handler struct{}

// NewHandler constructs an errors Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// NotFound is installed as the router's NotFound handler.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	httperr.NotFound(w, "no route for "+r.Method+" "+r.URL.Path)
}

// MethodNotAllowed is installed as the router's MethodNotAllowed handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httperr.JSON(w, http.StatusMethodNotAllowed, httperr.Body{Error: "method not allowed"})
}
