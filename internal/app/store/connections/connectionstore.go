package connectionstore

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/campuslink/internal/app/store/users"
	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/dalemusser/campuslink/internal/app/system/live"
	"github.com/dalemusser/campuslink/internal/app/system/metrics"
	"github.com/dalemusser/campuslink/internal/app/system/pairkey"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"go.uber.org/zap"
)

const (
	// RequestsCollection holds directed connection requests.
	RequestsCollection = "connection_requests"
	// Collection holds symmetric connections.
	Collection = "connections"
)

// Status is the relationship between two users as seen from the first.
type Status string

const (
	StatusNone            Status = "none"
	StatusPendingOutgoing Status = "pending_outgoing"
	StatusPendingIncoming Status = "pending_incoming"
	StatusConnected       Status = "connected"
)

// Fanout builds notification writes that ride along in a batch.
type Fanout interface {
	EmitOp(userID string, typ models.NotificationType, payload map[string]string) docstore.Write
}

type Store struct {
	docs   docstore.Store
	users  *userstore.Store
	fanout Fanout
	log    *zap.Logger
}

func New(docs docstore.Store, users *userstore.Store, logger *zap.Logger) *Store {
	return &Store{docs: docs, users: users, log: logger}
}

// WithFanout makes Request and Accept notify the other user.
func (s *Store) WithFanout(f Fanout) *Store {
	s.fanout = f
	return s
}

// Request records a pending request from -> to. Repeating it overwrites the
// previous request (and resets a declined one to pending).
func (s *Store) Request(ctx context.Context, from, to string) error {
	if from == to {
		return apperr.Invalid("to", apperr.ErrSelfConnection)
	}
	if err := pairkey.Check(from, to); err != nil {
		return apperr.Invalid("user_id", err)
	}
	sender, err := s.users.Get(ctx, from)
	if err != nil {
		return err
	}
	receiver, err := s.users.Get(ctx, to)
	if err != nil {
		return err
	}

	req := models.ConnectionRequest{
		ID:            pairkey.Directed(from, to),
		SenderID:      sender.ID,
		SenderName:    sender.DisplayName,
		SenderPhoto:   sender.PhotoURL,
		ReceiverID:    receiver.ID,
		ReceiverName:  receiver.DisplayName,
		ReceiverPhoto: receiver.PhotoURL,
		Status:        models.RequestPending,
	}
	writes := []docstore.Write{
		docstore.PutOp(RequestsCollection, req.ID, req, docstore.ServerTimestamp("sent_at")),
	}
	if s.fanout != nil {
		writes = append(writes, s.fanout.EmitOp(to, models.NotifyConnectionRequest, senderPayload(*sender)))
	}

	if err := s.docs.Batch(ctx, writes...); err != nil {
		return apperr.Store("connections.request", err)
	}
	if s.fanout != nil {
		metrics.NotificationsEmitted.WithLabelValues(string(models.NotifyConnectionRequest)).Inc()
	}
	return nil
}

// Status reports how a relates to b.
func (s *Store) Status(ctx context.Context, a, b string) (Status, error) {
	if err := s.users.Require(ctx, a, b); err != nil {
		return StatusNone, err
	}

	conn, err := s.getConnection(ctx, pairkey.Pair(a, b))
	switch {
	case err == nil:
		if conn.Status == models.ConnectionAccepted {
			return StatusConnected, nil
		}
	case !apperr.IsNotFound(err):
		return StatusNone, err
	}

	out, err := s.getRequest(ctx, pairkey.Directed(a, b))
	switch {
	case err == nil:
		if out.Status == models.RequestPending {
			return StatusPendingOutgoing, nil
		}
	case !apperr.IsNotFound(err):
		return StatusNone, err
	}

	in, err := s.getRequest(ctx, pairkey.Directed(b, a))
	switch {
	case err == nil:
		if in.Status == models.RequestPending {
			return StatusPendingIncoming, nil
		}
	case !apperr.IsNotFound(err):
		return StatusNone, err
	}

	return StatusNone, nil
}

// Accept is called by the receiver (to) of a pending request from -> to. In
// one atomic batch it marks the request accepted, writes the connection and,
// if a reverse request is also pending, accepts that too. Accepting an
// already accepted request whose connection is live is a no-op.
func (s *Store) Accept(ctx context.Context, from, to string) error {
	if err := s.users.Require(ctx, from, to); err != nil {
		return err
	}
	req, err := s.getRequest(ctx, pairkey.Directed(from, to))
	if err != nil {
		return err
	}

	connID := pairkey.Pair(from, to)
	switch req.Status {
	case models.RequestPending:
		// accept below
	case models.RequestAccepted:
		conn, err := s.getConnection(ctx, connID)
		if err == nil && conn.Status == models.ConnectionAccepted {
			return nil
		}
		if err != nil && !apperr.IsNotFound(err) {
			return err
		}
		return apperr.Invalid("request", apperr.ErrNotPending)
	default:
		return apperr.Invalid("request", apperr.ErrNotPending)
	}

	receiver, err := s.users.Get(ctx, to)
	if err != nil {
		return err
	}
	sender, err := s.users.Get(ctx, from)
	if err != nil {
		return err
	}

	conn := models.Connection{
		ID:    connID,
		Users: []string{from, to},
		UserNames: map[string]string{
			from: sender.DisplayName,
			to:   receiver.DisplayName,
		},
		UserPhotos: map[string]string{
			from: sender.PhotoURL,
			to:   receiver.PhotoURL,
		},
		Status: models.ConnectionAccepted,
	}

	writes := []docstore.Write{
		docstore.UpdateOp(RequestsCollection, req.ID,
			docstore.Set("status", models.RequestAccepted),
			docstore.ServerTimestamp("accepted_at")),
		docstore.PutOp(Collection, connID, conn, docstore.ServerTimestamp("connected_at")),
	}

	reverse, err := s.getRequest(ctx, pairkey.Directed(to, from))
	switch {
	case err == nil && reverse.Status == models.RequestPending:
		writes = append(writes, docstore.UpdateOp(RequestsCollection, reverse.ID,
			docstore.Set("status", models.RequestAccepted),
			docstore.ServerTimestamp("accepted_at")))
	case err != nil && !apperr.IsNotFound(err):
		return err
	}

	if s.fanout != nil {
		writes = append(writes, s.fanout.EmitOp(from, models.NotifyConnectionAccepted, senderPayload(*receiver)))
	}

	if err := s.docs.Batch(ctx, writes...); err != nil {
		return apperr.Store("connections.accept", err)
	}
	if s.fanout != nil {
		metrics.NotificationsEmitted.WithLabelValues(string(models.NotifyConnectionAccepted)).Inc()
	}
	s.log.Info("connection accepted", zap.String("connection_id", connID))
	return nil
}

// Decline marks a pending request from -> to declined.
func (s *Store) Decline(ctx context.Context, from, to string) error {
	if err := s.users.Require(ctx, from, to); err != nil {
		return err
	}
	req, err := s.getRequest(ctx, pairkey.Directed(from, to))
	if err != nil {
		return err
	}
	if req.Status != models.RequestPending {
		return apperr.Invalid("request", apperr.ErrNotPending)
	}
	err = s.docs.Update(ctx, RequestsCollection, req.ID,
		docstore.Set("status", models.RequestDeclined),
		docstore.ServerTimestamp("declined_at"))
	return apperr.Store("connections.decline", err)
}

// Remove marks a connection removed. The record stays for history.
func (s *Store) Remove(ctx context.Context, connectionID string) error {
	err := s.docs.Update(ctx, Collection, connectionID,
		docstore.Set("status", models.ConnectionRemoved),
		docstore.ServerTimestamp("removed_at"))
	if errors.Is(err, docstore.ErrNotFound) {
		return apperr.NotFound("connection", connectionID)
	}
	return apperr.Store("connections.remove", err)
}

// Connections is a live list of user's accepted connections, most recent
// first.
func (s *Store) Connections(ctx context.Context, user string) *live.Feed[[]models.Connection] {
	q := docstore.From(Collection).
		Where("users", docstore.ArrayContains, user).
		Where("status", docstore.Eq, models.ConnectionAccepted).
		OrderBy("connected_at", docstore.Desc)
	return docstore.Watch[models.Connection](ctx, s.docs, q, s.log)
}

// IncomingRequests returns the pending requests addressed to user, newest
// first.
func (s *Store) IncomingRequests(ctx context.Context, user string) ([]models.ConnectionRequest, error) {
	docs, err := s.docs.Query(ctx, docstore.From(RequestsCollection).
		Where("receiver_id", docstore.Eq, user).
		Where("status", docstore.Eq, models.RequestPending).
		OrderBy("sent_at", docstore.Desc))
	if err != nil {
		return nil, apperr.Store("connections.incoming", err)
	}
	reqs, err := docstore.DecodeAll[models.ConnectionRequest](docs)
	if err != nil {
		return nil, apperr.Store("connections.incoming", err)
	}
	return reqs, nil
}

// GetConnection loads a connection record.
func (s *Store) GetConnection(ctx context.Context, id string) (*models.Connection, error) {
	return s.getConnection(ctx, id)
}

func (s *Store) getConnection(ctx context.Context, id string) (*models.Connection, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("connection", id)
	}
	if err != nil {
		return nil, apperr.Store("connections.get", err)
	}
	var c models.Connection
	if err := docstore.Decode(doc, &c); err != nil {
		return nil, apperr.Store("connections.get", err)
	}
	return &c, nil
}

func (s *Store) getRequest(ctx context.Context, id string) (*models.ConnectionRequest, error) {
	doc, err := s.docs.Get(ctx, RequestsCollection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("connection request", id)
	}
	if err != nil {
		return nil, apperr.Store("connections.getRequest", err)
	}
	var r models.ConnectionRequest
	if err := docstore.Decode(doc, &r); err != nil {
		return nil, apperr.Store("connections.getRequest", err)
	}
	return &r, nil
}

func senderPayload(u models.User) map[string]string {
	return map[string]string{
		models.PayloadSenderID:    u.ID,
		models.PayloadSenderName:  u.DisplayName,
		models.PayloadSenderPhoto: u.PhotoURL,
	}
}
