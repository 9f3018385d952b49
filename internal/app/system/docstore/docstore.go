// Package docstore defines the document-store contract the social core is
// written against: keyed documents in named collections, field-level
// updates, filtered and ordered queries, push subscriptions and atomic
// multi-document batches.
//
// Two implementations live in sub-packages: memstore (in-process, used by
// tests and the "memory" backend) and mongostore (MongoDB).
package docstore

import (
	"context"
	"errors"

	"github.com/dalemusser/campuslink/internal/app/system/live"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrNotFound is returned by Get and Update when the document is absent.
var ErrNotFound = errors.New("docstore: document not found")

// ErrConditionFailed is returned by Batch when a conditional update finds
// its document but the document does not match the condition.
var ErrConditionFailed = errors.New("docstore: condition not met")

// Document is a stored document. The "_id" key holds the document id.
type Document = bson.M

// Store is implemented by every backend.
type Store interface {
	// Get returns the document or ErrNotFound.
	Get(ctx context.Context, coll, id string) (Document, error)
	// Put creates or replaces the document. fields is a struct with bson
	// tags or a map; ops (typically ServerTimestamp) are applied on top.
	Put(ctx context.Context, coll, id string, fields any, ops ...FieldOp) error
	// Update applies field operations to an existing document.
	Update(ctx context.Context, coll, id string, ops ...FieldOp) error
	// Delete removes the document. Deleting an absent document is not an error.
	Delete(ctx context.Context, coll, id string) error
	// Query returns the documents matching q in q's order.
	Query(ctx context.Context, q Query) ([]Document, error)
	// Subscribe returns a feed of q's result set, refreshed whenever the
	// collection changes.
	Subscribe(ctx context.Context, q Query) *live.Feed[[]Document]
	// Batch applies all writes or none.
	Batch(ctx context.Context, writes ...Write) error
}

// WriteKind selects what a Write does.
type WriteKind int

const (
	WritePut WriteKind = iota
	WriteUpdate
	WriteDelete
)

func (k WriteKind) String() string {
	switch k {
	case WritePut:
		return "put"
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	}
	return "unknown"
}

// Write is one operation inside a Batch. Match, only allowed on updates,
// makes the write conditional: the document must satisfy every predicate.
type Write struct {
	Kind       WriteKind
	Collection string
	ID         string
	Fields     any
	Ops        []FieldOp
	Match      []Predicate
}

// If returns w with an added condition.
func (w Write) If(field string, op Operator, value any) Write {
	w.Match = append(append([]Predicate(nil), w.Match...), Predicate{Field: field, Op: op, Value: value})
	return w
}

// PutOp builds a create-or-replace write.
func PutOp(coll, id string, fields any, ops ...FieldOp) Write {
	return Write{Kind: WritePut, Collection: coll, ID: id, Fields: fields, Ops: ops}
}

// UpdateOp builds a field-update write.
func UpdateOp(coll, id string, ops ...FieldOp) Write {
	return Write{Kind: WriteUpdate, Collection: coll, ID: id, Ops: ops}
}

// DeleteOp builds a delete write.
func DeleteOp(coll, id string) Write {
	return Write{Kind: WriteDelete, Collection: coll, ID: id}
}
