package conversationstore

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/campuslink/internal/app/store/users"
	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/dalemusser/campuslink/internal/app/system/live"
	"github.com/dalemusser/campuslink/internal/app/system/pairkey"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"go.uber.org/zap"
)

// Collection holds one document per chat thread.
const Collection = "chats"

// UnknownName stands in for a participant whose name snapshot is missing.
const UnknownName = "Unknown User"

type Store struct {
	docs  docstore.Store
	users *userstore.Store
	log   *zap.Logger
}

func New(docs docstore.Store, users *userstore.Store, logger *zap.Logger) *Store {
	return &Store{docs: docs, users: users, log: logger}
}

// ThreadID returns the id of the thread between a and b.
func ThreadID(a, b string) string {
	return pairkey.Pair(a, b)
}

// Ensure returns the thread between a and b, creating it if absent with
// display snapshots of both users, an empty last message and zero unread
// counts. An existing thread is returned untouched.
func (s *Store) Ensure(ctx context.Context, a, b string) (*models.Conversation, error) {
	if a == b {
		return nil, apperr.Invalid("participants", apperr.ErrMalformedThread)
	}
	if err := pairkey.Check(a, b); err != nil {
		return nil, apperr.Invalid("participants", err)
	}
	id := ThreadID(a, b)

	existing, err := s.Get(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	ua, err := s.users.Get(ctx, a)
	if err != nil {
		return nil, err
	}
	ub, err := s.users.Get(ctx, b)
	if err != nil {
		return nil, err
	}

	conv := models.Conversation{
		ID:                id,
		Participants:      []string{a, b},
		ParticipantNames:  []string{ua.DisplayName, ub.DisplayName},
		ParticipantPhotos: []string{ua.PhotoURL, ub.PhotoURL},
		UnreadCounts:      map[string]int{a: 0, b: 0},
	}
	err = s.docs.Put(ctx, Collection, id, conv,
		docstore.ServerTimestamp("created_at"),
		docstore.ServerTimestamp("last_message_time"))
	if err != nil {
		return nil, apperr.Store("conversations.ensure", err)
	}
	s.log.Debug("thread created", zap.String("thread_id", id))
	return s.Get(ctx, id)
}

// Get loads a thread.
func (s *Store) Get(ctx context.Context, id string) (*models.Conversation, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("thread", id)
	}
	if err != nil {
		return nil, apperr.Store("conversations.get", err)
	}
	var c models.Conversation
	if err := docstore.Decode(doc, &c); err != nil {
		return nil, apperr.Store("conversations.get", err)
	}
	return &c, nil
}

// List is a live list of user's threads, most recently active first.
func (s *Store) List(ctx context.Context, user string) *live.Feed[[]models.Conversation] {
	q := docstore.From(Collection).
		Where("participants", docstore.ArrayContains, user).
		OrderBy("last_message_time", docstore.Desc)
	return docstore.Watch[models.Conversation](ctx, s.docs, q, s.log)
}

// OtherParticipant returns the participant in c who is not self. The thread
// must have exactly two distinct participants, one of them self.
func OtherParticipant(c models.Conversation, self string) (models.ParticipantInfo, error) {
	if len(c.Participants) != 2 || c.Participants[0] == c.Participants[1] {
		return models.ParticipantInfo{}, apperr.Invalid("participants", apperr.ErrMalformedThread)
	}
	var idx int
	switch self {
	case c.Participants[0]:
		idx = 1
	case c.Participants[1]:
		idx = 0
	default:
		return models.ParticipantInfo{}, apperr.Invalid("participants", apperr.ErrMalformedThread)
	}

	info := models.ParticipantInfo{ID: c.Participants[idx], Name: UnknownName}
	if idx < len(c.ParticipantNames) && c.ParticipantNames[idx] != "" {
		info.Name = c.ParticipantNames[idx]
	}
	if idx < len(c.ParticipantPhotos) {
		info.PhotoURL = c.ParticipantPhotos[idx]
	}
	return info, nil
}

// ParticipantIndex returns self's position in c.Participants, or -1.
func ParticipantIndex(c models.Conversation, self string) int {
	for i, p := range c.Participants {
		if p == self {
			return i
		}
	}
	return -1
}
