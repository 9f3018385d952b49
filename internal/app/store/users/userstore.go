package userstore

import (
	"context"
	"errors"

	"github.com/dalemusser/campuslink/internal/app/system/apperr"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/dalemusser/campuslink/internal/app/system/normalize"
	"github.com/dalemusser/campuslink/internal/app/system/pairkey"
	"github.com/dalemusser/campuslink/internal/domain/models"
)

// Collection holds user profiles.
const Collection = "users"

type Store struct {
	docs docstore.Store
}

func New(docs docstore.Store) *Store {
	return &Store{docs: docs}
}

// Get loads a user, returning *apperr.NotFoundError if absent.
func (s *Store) Get(ctx context.Context, id string) (*models.User, error) {
	doc, err := s.docs.Get(ctx, Collection, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, apperr.NotFound("user", id)
	}
	if err != nil {
		return nil, apperr.Store("users.get", err)
	}
	var u models.User
	if err := docstore.Decode(doc, &u); err != nil {
		return nil, apperr.Store("users.get", err)
	}
	return &u, nil
}

// Require checks that every id is well formed and refers to an existing
// user.
func (s *Store) Require(ctx context.Context, ids ...string) error {
	if err := pairkey.Check(ids...); err != nil {
		return apperr.Invalid("user_id", err)
	}
	for _, id := range ids {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Save creates or replaces a profile. CreatedAt is kept from the existing
// record when there is one.
func (s *Store) Save(ctx context.Context, u models.User) (*models.User, error) {
	u.ID = normalize.ID(u.ID)
	if u.ID == "" {
		return nil, apperr.Invalid("id", apperr.ErrMissingField)
	}
	if err := pairkey.Check(u.ID); err != nil {
		return nil, apperr.Invalid("id", err)
	}
	u.DisplayName = normalize.Name(u.DisplayName)
	if u.DisplayName == "" {
		return nil, apperr.Invalid("display_name", apperr.ErrMissingField)
	}

	ops := []docstore.FieldOp{docstore.ServerTimestamp("updated_at")}
	existing, err := s.Get(ctx, u.ID)
	switch {
	case err == nil:
		u.CreatedAt = existing.CreatedAt
	case apperr.IsNotFound(err):
		ops = append(ops, docstore.ServerTimestamp("created_at"))
	default:
		return nil, err
	}

	if err := s.docs.Put(ctx, Collection, u.ID, u, ops...); err != nil {
		return nil, apperr.Store("users.save", err)
	}
	return s.Get(ctx, u.ID)
}

// Snapshot returns the display info for id.
func (s *Store) Snapshot(ctx context.Context, id string) (models.ParticipantInfo, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return models.ParticipantInfo{}, err
	}
	return u.Info(), nil
}

// Delete removes a profile. Threads and connections that reference the user
// keep their snapshots.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, Collection, id); err != nil {
		return apperr.Store("users.delete", err)
	}
	return nil
}
