package messagestore

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	conversationstore "github.com/dalemusser/campuslink/internal/app/store/conversations"
	userstore "github.com/dalemusser/campuslink/internal/app/store/users"
	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/dalemusser/campuslink/internal/app/system/htmlsanitize"
	"github.com/dalemusser/campuslink/internal/app/system/live"
	"github.com/dalemusser/campuslink/internal/app/system/metrics"
	"github.com/dalemusser/campuslink/internal/app/system/paging"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Collection holds every message of every thread.
const Collection = "messages"

// previewRunes bounds the message preview carried in notifications.
const previewRunes = 80

// Fanout builds notification writes that ride along in a batch.
type Fanout interface {
	EmitOp(userID string, typ models.NotificationType, payload map[string]string) docstore.Write
}

type Store struct {
	docs    docstore.Store
	threads *conversationstore.Store
	users   *userstore.Store
	fanout  Fanout
	log     *zap.Logger
}

func New(docs docstore.Store, threads *conversationstore.Store, users *userstore.Store, logger *zap.Logger) *Store {
	return &Store{docs: docs, threads: threads, users: users, log: logger}
}

// WithFanout makes Send notify the recipient.
func (s *Store) WithFanout(f Fanout) *Store {
	s.fanout = f
	return s
}

// Page is one page of older history, newest first.
type Page struct {
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
	// Next is the cursor for the following (older) page, "" when exhausted.
	Next string `json:"next,omitempty"`
}

// CleanText strips markup and surrounding whitespace from a message body.
func CleanText(text string) string {
	return strings.TrimSpace(htmlsanitize.PlainText(text))
}

// Send appends a message from sender to the thread and, in the same batch,
// updates the thread summary and bumps the recipient's unread counter.
// Nothing is written when the text is empty after cleaning.
func (s *Store) Send(ctx context.Context, threadID, senderID, text string) (*models.Message, error) {
	body := CleanText(text)
	if body == "" {
		return nil, apperr.Invalid("text", apperr.ErrEmptyMessage)
	}

	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return nil, err
	}
	other, err := conversationstore.OtherParticipant(*thread, senderID)
	if err != nil {
		if conversationstore.ParticipantIndex(*thread, senderID) < 0 {
			return nil, apperr.Invalid("sender_id", apperr.ErrNotParticipant)
		}
		return nil, err
	}

	senderName := conversationstore.UnknownName
	if idx := conversationstore.ParticipantIndex(*thread, senderID); idx < len(thread.ParticipantNames) && thread.ParticipantNames[idx] != "" {
		senderName = thread.ParticipantNames[idx]
	}
	if u, err := s.users.Get(ctx, senderID); err == nil && u.DisplayName != "" {
		senderName = u.DisplayName
	}

	msg := models.Message{
		ID:         primitive.NewObjectID().Hex(),
		ThreadID:   threadID,
		SenderID:   senderID,
		SenderName: senderName,
		Text:       body,
	}
	writes := []docstore.Write{
		docstore.PutOp(Collection, msg.ID, msg, docstore.ServerTimestamp("timestamp")),
		docstore.UpdateOp(conversationstore.Collection, threadID,
			docstore.Set("last_message", body),
			docstore.ServerTimestamp("last_message_time"),
			docstore.Set("last_message_sender", senderID),
			docstore.Increment("unread_counts."+other.ID, 1)),
	}
	if s.fanout != nil {
		writes = append(writes, s.fanout.EmitOp(other.ID, models.NotifyMessage, map[string]string{
			models.PayloadSenderID:   senderID,
			models.PayloadSenderName: senderName,
			models.PayloadThreadID:   threadID,
			models.PayloadPreview:    preview(body),
		}))
	}

	if err := s.docs.Batch(ctx, writes...); err != nil {
		return nil, apperr.Store("messages.send", err)
	}
	metrics.MessagesSent.Inc()
	if s.fanout != nil {
		metrics.NotificationsEmitted.WithLabelValues(string(models.NotifyMessage)).Inc()
	}
	return s.Get(ctx, msg.ID)
}

// Get loads one message.
func (s *Store) Get(ctx context.Context, id string) (*models.Message, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("message", id)
	}
	if err != nil {
		return nil, apperr.Store("messages.get", err)
	}
	var m models.Message
	if err := docstore.Decode(doc, &m); err != nil {
		return nil, apperr.Store("messages.get", err)
	}
	return &m, nil
}

// History is a live list of the thread's messages, oldest first.
func (s *Store) History(ctx context.Context, threadID string) *live.Feed[[]models.Message] {
	q := docstore.From(Collection).
		Where("thread_id", docstore.Eq, threadID).
		OrderBy("timestamp", docstore.Asc)
	return docstore.Watch[models.Message](ctx, s.docs, q, s.log)
}

// MarkRead marks every unread message in the thread not sent by reader as
// read. Each message is marked in its own batch together with a decrement of
// the reader's unread counter, conditional on the message still being unread,
// so concurrent sends and overlapping MarkRead calls keep the counter exact.
// A failed batch is logged and skipped; calling MarkRead again picks it up.
// It returns the number of messages marked.
func (s *Store) MarkRead(ctx context.Context, threadID, reader string) (int, error) {
	thread, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return 0, err
	}
	if conversationstore.ParticipantIndex(*thread, reader) < 0 {
		return 0, apperr.Invalid("reader", apperr.ErrNotParticipant)
	}

	docs, err := s.docs.Query(ctx, docstore.From(Collection).
		Where("thread_id", docstore.Eq, threadID).
		Where("read", docstore.Eq, false).
		Where("sender_id", docstore.Ne, reader).
		OrderBy("timestamp", docstore.Asc))
	if err != nil {
		return 0, apperr.Store("messages.markRead", err)
	}

	applied, failed := 0, 0
	for _, d := range docs {
		id, _ := d["_id"].(string)
		err := s.docs.Batch(ctx,
			docstore.UpdateOp(Collection, id,
				docstore.Set("read", true),
				docstore.ServerTimestamp("read_time")).
				If("read", docstore.Eq, false),
			docstore.UpdateOp(conversationstore.Collection, threadID,
				docstore.Increment("unread_counts."+reader, -1)))
		switch {
		case err == nil:
			applied++
		case errors.Is(err, docstore.ErrConditionFailed):
			// Marked by a concurrent call.
		default:
			failed++
			s.log.Warn("mark message read failed",
				zap.String("thread_id", threadID),
				zap.String("message_id", id),
				zap.Error(err))
		}
	}
	metrics.MessagesMarkedRead.WithLabelValues("applied").Add(float64(applied))
	metrics.MessagesMarkedRead.WithLabelValues("failed").Add(float64(failed))
	return applied, nil
}

// Page returns up to limit messages older than the before cursor, newest
// first. An empty before starts at the newest message. Messages sharing a
// timestamp are ordered by id, so a page boundary inside one millisecond
// neither skips nor repeats messages.
func (s *Store) Page(ctx context.Context, threadID, before string, limit int) (*Page, error) {
	if _, err := s.threads.Get(ctx, threadID); err != nil {
		return nil, err
	}
	limit = paging.Limit(limit)
	want := paging.LimitPlusOne(limit)

	base := docstore.From(Collection).Where("thread_id", docstore.Eq, threadID)
	var docs []docstore.Document
	if before == "" {
		var err error
		docs, err = s.docs.Query(ctx, base.OrderBy("timestamp", docstore.Desc).OrderBy("_id", docstore.Desc).Take(want))
		if err != nil {
			return nil, apperr.Store("messages.page", err)
		}
	} else {
		c, ok := paging.DecodeTimeCursor(before)
		if !ok {
			return nil, apperr.Invalid("before", errors.New("malformed cursor"))
		}
		same, err := s.docs.Query(ctx, base.
			Where("timestamp", docstore.Eq, c.At).
			Where("_id", docstore.Lt, c.ID.Hex()).
			OrderBy("_id", docstore.Desc).
			Take(want))
		if err != nil {
			return nil, apperr.Store("messages.page", err)
		}
		docs = same
		if len(docs) < want {
			older, err := s.docs.Query(ctx, base.
				Where("timestamp", docstore.Lt, c.At).
				OrderBy("timestamp", docstore.Desc).
				OrderBy("_id", docstore.Desc).
				Take(want-len(docs)))
			if err != nil {
				return nil, apperr.Store("messages.page", err)
			}
			docs = append(docs, older...)
		}
	}

	msgs, err := docstore.DecodeAll[models.Message](docs)
	if err != nil {
		return nil, apperr.Store("messages.page", err)
	}

	page := &Page{Messages: msgs}
	page.HasMore = paging.Trim(&page.Messages, limit)
	if page.HasMore {
		last := page.Messages[len(page.Messages)-1]
		page.Next = paging.EncodeTimeCursor(last.Timestamp, last.ID)
	}
	return page, nil
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	r := []rune(text)
	return string(r[:previewRunes]) + "…"
}
