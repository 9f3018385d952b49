// internal/app/features/userinfo/handler.go
package userinfo

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dalemusser/campuslink/internal/app/features/shared/httperr"
	userstore "github.com/dalemusser/campuslink/internal/app/store/users"
	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/auth"
	"github.com/dalemusser/campuslink/internal/app/system/htmlsanitize"
	"github.com/dalemusser/campuslink/internal/app/system/timeouts"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's own profile.
type Handler struct {
	Users *userstore.Store
	Log   *zap.Logger
}

// NewHandler creates a new userinfo handler.
func NewHandler(users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Log: logger}
}

type userInfoResponse struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *models.User `json:"user,omitempty"`
}

type profileRequest struct {
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url"`
	Headline    string `json:"headline"`
}

// ServeUserInfo returns JSON with the caller's authentication status and,
// once they have saved a profile, the profile itself.
//
// Response format:
//
//	{ "isAuthenticated": bool, "user": { "id": "...", "display_name": "...", ... } }
func (h *Handler) ServeUserInfo(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.CurrentUserID(r)
	if !ok {
		httperr.JSON(w, http.StatusOK, userInfoResponse{})
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "user info")
	defer cancel()

	u, err := h.Users.Get(ctx, me)
	if err != nil && !apperr.IsNotFound(err) {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, userInfoResponse{IsAuthenticated: true, User: u})
}

// ServeUpdateProfile handles PUT /api/user: creates or replaces the caller's
// profile. Names and photos already copied into threads and connections
// keep their old values.
func (h *Handler) ServeUpdateProfile(w http.ResponseWriter, r *http.Request) {
	me, ok := auth.CurrentUserID(r)
	if !ok {
		httperr.Unauthorized(w)
		return
	}

	var req profileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 8<<10)).Decode(&req); err != nil {
		httperr.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "update profile")
	defer cancel()

	u, err := h.Users.Save(ctx, models.User{
		ID:          me,
		DisplayName: htmlsanitize.PlainText(req.DisplayName),
		PhotoURL:    strings.TrimSpace(req.PhotoURL),
		Headline:    strings.TrimSpace(htmlsanitize.PlainText(req.Headline)),
	})
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, userInfoResponse{IsAuthenticated: true, User: u})
}
