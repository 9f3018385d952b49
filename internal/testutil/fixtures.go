package testutil

import (
	"context"
	"net/http"
	"testing"

	userstore "github.com/dalemusser/campuslink/internal/app/store/users"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/dalemusser/campuslink/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	docs  docstore.Store
	users *userstore.Store
	t     *testing.T
}

// NewFixtures creates a Fixtures instance over docs.
func NewFixtures(t *testing.T, docs docstore.Store) *Fixtures {
	t.Helper()
	return &Fixtures{docs: docs, users: userstore.New(docs), t: t}
}

// Docs returns the underlying store for direct access in tests.
func (f *Fixtures) Docs() docstore.Store {
	return f.docs
}

// CreateUser saves a user profile with the given id and display name.
func (f *Fixtures) CreateUser(ctx context.Context, id, name string) models.User {
	f.t.Helper()

	u, err := f.users.Save(ctx, models.User{
		ID:          id,
		DisplayName: name,
		PhotoURL:    "https://img.example/" + id + ".png",
	})
	if err != nil {
		f.t.Fatalf("failed to create test user %s: %v", id, err)
	}
	return *u
}

// CreateUsers saves one user per id, named after the id.
func (f *Fixtures) CreateUsers(ctx context.Context, ids ...string) []models.User {
	f.t.Helper()

	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.CreateUser(ctx, id, "User "+id))
	}
	return out
}
