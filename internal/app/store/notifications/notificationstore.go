package notificationstore

import (
	"context"
	"errors"

	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/dalemusser/campuslink/internal/app/system/live"
	"github.com/dalemusser/campuslink/internal/app/system/metrics"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collection holds notifications for every user.
const Collection = "notifications"

type Store struct {
	docs docstore.Store
	log  *zap.Logger
}

func New(docs docstore.Store, logger *zap.Logger) *Store {
	return &Store{docs: docs, log: logger}
}

// EmitOp builds the write that creates a notification, for callers that
// include it in their own batch.
func (s *Store) EmitOp(userID string, typ models.NotificationType, payload map[string]string) docstore.Write {
	n := models.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Type:    typ,
		Payload: payload,
	}
	return docstore.PutOp(Collection, n.ID, n, docstore.ServerTimestamp("timestamp"))
}

// Emit creates an unread notification for userID and returns its id. Any
// type is accepted.
func (s *Store) Emit(ctx context.Context, userID string, typ models.NotificationType, payload map[string]string) (string, error) {
	if userID == "" {
		return "", apperr.Invalid("user_id", apperr.ErrMissingField)
	}
	if typ == "" {
		return "", apperr.Invalid("type", apperr.ErrMissingField)
	}
	op := s.EmitOp(userID, typ, payload)
	if err := s.docs.Batch(ctx, op); err != nil {
		return "", apperr.Store("notifications.emit", err)
	}
	metrics.NotificationsEmitted.WithLabelValues(string(typ)).Inc()
	return op.ID, nil
}

// Get loads one notification.
func (s *Store) Get(ctx context.Context, id string) (*models.Notification, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("notification", id)
	}
	if err != nil {
		return nil, apperr.Store("notifications.get", err)
	}
	var n models.Notification
	if err := docstore.Decode(doc, &n); err != nil {
		return nil, apperr.Store("notifications.get", err)
	}
	return &n, nil
}

func unreadQuery(userID string) docstore.Query {
	return docstore.From(Collection).
		Where("user_id", docstore.Eq, userID).
		Where("read", docstore.Eq, false)
}

// UnreadCount is a live count of userID's unread notifications.
func (s *Store) UnreadCount(ctx context.Context, userID string) *live.Feed[int] {
	return live.Map(s.docs.Subscribe(ctx, unreadQuery(userID)), func(docs []docstore.Document) int {
		return len(docs)
	})
}

// List is a live, newest-first list of userID's notifications in category.
func (s *Store) List(ctx context.Context, userID string, category Category) *live.Feed[[]models.Notification] {
	q := docstore.From(Collection).
		Where("user_id", docstore.Eq, userID).
		OrderBy("timestamp", docstore.Desc)
	all := docstore.Watch[models.Notification](ctx, s.docs, q, s.log)
	if category == CategoryAll || category == "" {
		return all
	}
	return live.Map(all, func(ns []models.Notification) []models.Notification {
		out := make([]models.Notification, 0, len(ns))
		for _, n := range ns {
			if category.Matches(n) {
				out = append(out, n)
			}
		}
		return out
	})
}

// MarkRead marks one notification read.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	err := s.docs.Update(ctx, Collection, id, docstore.Set("read", true))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.NotFound("notification", id)
	}
	return apperr.Store("notifications.markRead", err)
}

// MarkAllRead marks every unread notification of userID read in one atomic
// batch and returns how many changed.
func (s *Store) MarkAllRead(ctx context.Context, userID string) (int, error) {
	docs, err := s.docs.Query(ctx, unreadQuery(userID))
	if err != nil {
		return 0, apperr.Store("notifications.markAllRead", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	writes := make([]docstore.Write, 0, len(docs))
	for _, d := range docs {
		writes = append(writes, docstore.UpdateOp(Collection, docID(d), docstore.Set("read", true)))
	}
	if err := s.docs.Batch(ctx, writes...); err != nil {
		return 0, apperr.Store("notifications.markAllRead", err)
	}
	return len(writes), nil
}

// ClearAll deletes every notification of userID in one atomic batch and
// returns how many were removed.
func (s *Store) ClearAll(ctx context.Context, userID string) (int, error) {
	docs, err := s.docs.Query(ctx, docstore.From(Collection).Where("user_id", docstore.Eq, userID))
	if err != nil {
		return 0, apperr.Store("notifications.clearAll", err)
	}
	if len(docs) == 0 {
		return 0, nil
	}
	writes := make([]docstore.Write, 0, len(docs))
	for _, d := range docs {
		writes = append(writes, docstore.DeleteOp(Collection, docID(d)))
	}
	if err := s.docs.Batch(ctx, writes...); err != nil {
		return 0, apperr.Store("notifications.clearAll", err)
	}
	return len(writes), nil
}

// Delete removes one of userID's notifications. A notification addressed
// to someone else reads as not found.
func (s *Store) Delete(ctx context.Context, userID, id string) error {
	n, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return apperr.NotFound("notification", id)
	}
	return apperr.Store("notifications.delete", s.docs.Delete(ctx, Collection, id))
}

func docID(d docstore.Document) string {
	id, _ := d["_id"].(string)
	return id
}
