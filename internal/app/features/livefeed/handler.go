// internal/app/features/livefeed/handler.go
package livefeed

import (
	"context"
	"net/http"

	connectionstore "github.com/dalemusser/campuslink/internal/app/store/connections"
	conversationstore "github.com/dalemusser/campuslink/internal/app/store/conversations"
	messagestore "github.com/dalemusser/campuslink/internal/app/store/messages"
	notificationstore "github.com/dalemusser/campuslink/internal/app/store/notifications"
	"github.com/dalemusser/campuslink/internal/app/store/queries/unreadqueries"
	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/auth"
	"github.com/dalemusser/campuslink/internal/app/system/ratelimit"
	"github.com/dalemusser/campuslink/internal/app/system/timeouts"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Topics a client may subscribe to.
const (
	TopicThreads       = "threads"
	TopicHistory       = "history"
	TopicNotifications = "notifications"
	TopicBadges        = "badges"
	TopicConnections   = "connections"
)

// Handler upgrades signed-in clients to a websocket and pushes live query
// snapshots to them.
type Handler struct {
	Threads  *conversationstore.Store
	Messages *messagestore.Store
	Notes    *notificationstore.Store
	Badges   *unreadqueries.Aggregator
	Conns    *connectionstore.Store
	Log      *zap.Logger

	upgrader websocket.Upgrader
}

// NewHandler creates a live feed handler. With allowAnyOrigin false only
// same-origin upgrades are accepted.
func NewHandler(
	threads *conversationstore.Store,
	messages *messagestore.Store,
	notes *notificationstore.Store,
	badges *unreadqueries.Aggregator,
	conns *connectionstore.Store,
	allowAnyOrigin bool,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		Threads:  threads,
		Messages: messages,
		Notes:    notes,
		Badges:   badges,
		Conns:    conns,
		Log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if allowAnyOrigin {
		h.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return h
}

// ServeWS handles GET /live.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.CurrentUserID(r)
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.Log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(h, conn, userID)
	h.Log.Debug("live client connected", zap.String("user_id", userID), zap.String("ip", ratelimit.ClientIP(r)))
	c.serve()
	h.Log.Debug("live client disconnected", zap.String("user_id", userID))
}

// open starts the feed for a subscribe request and forwards its values to c.
// It returns an error, without starting anything, when the request is
// invalid or names a thread the user is not part of.
func (h *Handler) open(ctx context.Context, c *client, req envelope) error {
	switch req.Topic {
	case TopicThreads:
		go forward(ctx, c, req, h.Threads.List(ctx, c.userID))
	case TopicHistory:
		if req.ThreadID == "" {
			return apperr.Invalid("threadId", apperr.ErrMissingField)
		}
		if err := h.requireParticipant(ctx, req.ThreadID, c.userID); err != nil {
			return err
		}
		go forward(ctx, c, req, h.Messages.History(ctx, req.ThreadID))
	case TopicNotifications:
		cat := notificationstore.CategoryAll
		if req.Category != "" {
			parsed, ok := notificationstore.ParseCategory(req.Category)
			if !ok {
				return apperr.Invalid("category", apperr.ErrMissingField)
			}
			cat = parsed
		}
		go forward(ctx, c, req, h.Notes.List(ctx, c.userID, cat))
	case TopicBadges:
		go forward(ctx, c, req, h.Badges.BadgeCounts(ctx, c.userID))
	case TopicConnections:
		go forward(ctx, c, req, h.Conns.Connections(ctx, c.userID))
	default:
		return apperr.Invalid("topic", apperr.ErrMissingField)
	}
	return nil
}

func (h *Handler) requireParticipant(parent context.Context, threadID, userID string) error {
	ctx, cancel := context.WithTimeout(parent, timeouts.Short())
	defer cancel()

	thread, err := h.Threads.Get(ctx, threadID)
	if err != nil {
		return err
	}
	if conversationstore.ParticipantIndex(*thread, userID) < 0 {
		return apperr.NotFound("thread", threadID)
	}
	return nil
}
