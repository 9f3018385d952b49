// internal/app/features/chats/handler.go
package chats

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/campuslink/internal/app/features/shared/httperr"
	conversationstore "github.com/dalemusser/campuslink/internal/app/store/conversations"
	messagestore "github.com/dalemusser/campuslink/internal/app/store/messages"
	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/auth"
	"github.com/dalemusser/campuslink/internal/app/system/paging"
	"github.com/dalemusser/campuslink/internal/app/system/ratelimit"
	"github.com/dalemusser/campuslink/internal/app/system/timeouts"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes bounds a send-message request body.
const maxBodyBytes = 16 << 10

// Handler serves chat threads and their messages.
type Handler struct {
	Threads  *conversationstore.Store
	Messages *messagestore.Store
	// SendLimit throttles sends per user; nil means unlimited.
	SendLimit *ratelimit.Limiter
	Log       *zap.Logger
}

// NewHandler creates a chats handler.
func NewHandler(threads *conversationstore.Store, messages *messagestore.Store, sendLimit *ratelimit.Limiter, logger *zap.Logger) *Handler {
	return &Handler{
		Threads:   threads,
		Messages:  messages,
		SendLimit: sendLimit,
		Log:       logger,
	}
}

type threadResponse struct {
	Thread models.Conversation    `json:"thread"`
	Other  models.ParticipantInfo `json:"other"`
}

type sendRequest struct {
	Text string `json:"text"`
}

type markReadResponse struct {
	Marked int `json:"marked"`
}

// ServeEnsure handles POST /{userId}: returns the caller's thread with
// userId, creating it on first use.
func (h *Handler) ServeEnsure(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	other := chi.URLParam(r, "userId")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "ensure thread")
	defer cancel()

	thread, err := h.Threads.Ensure(ctx, me, other)
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	info, err := conversationstore.OtherParticipant(*thread, me)
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, threadResponse{Thread: *thread, Other: info})
}

// ServeHistory handles GET /{threadId}/messages?before=&limit=: one page of
// history, newest first.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	threadID := chi.URLParam(r, "threadId")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "message history")
	defer cancel()

	if err := h.requireParticipant(ctx, threadID, me); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	page, err := h.Messages.Page(ctx, threadID, query.Get(r, "before"), paging.ParseLimit(r))
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, page)
}

// ServeSend handles POST /{threadId}/messages with body {"text": "..."}.
func (h *Handler) ServeSend(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	threadID := chi.URLParam(r, "threadId")

	if !h.SendLimit.Allow(me) {
		httperr.TooManyRequests(w)
		return
	}

	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		httperr.BadRequest(w, "invalid JSON body")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "send message")
	defer cancel()

	if err := h.requireParticipant(ctx, threadID, me); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	msg, err := h.Messages.Send(ctx, threadID, me, req.Text)
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusCreated, msg)
}

// ServeMarkRead handles POST /{threadId}/read.
func (h *Handler) ServeMarkRead(w http.ResponseWriter, r *http.Request) {
	me, _ := auth.CurrentUserID(r)
	threadID := chi.URLParam(r, "threadId")

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "mark thread read")
	defer cancel()

	if err := h.requireParticipant(ctx, threadID, me); err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	n, err := h.Messages.MarkRead(ctx, threadID, me)
	if err != nil {
		httperr.Write(w, r, h.Log, err)
		return
	}
	httperr.JSON(w, http.StatusOK, markReadResponse{Marked: n})
}

// requireParticipant hides threads the caller is not part of behind a
// not-found error.
func (h *Handler) requireParticipant(ctx context.Context, threadID, userID string) error {
	thread, err := h.Threads.Get(ctx, threadID)
	if err != nil {
		return err
	}
	if conversationstore.ParticipantIndex(*thread, userID) < 0 {
		return apperr.NotFound("thread", threadID)
	}
	return nil
}
