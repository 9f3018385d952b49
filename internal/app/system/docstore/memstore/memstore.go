// Package memstore is an in-process docstore.Store.
//
// It implements the full contract (field ops, ordered queries, push
// subscriptions, all-or-nothing batches) and adds fault injection so
// callers can test partial-failure paths.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dalemusser/campuslink/internal/app/system/changebus"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/dalemusser/campuslink/internal/app/system/live"
	"go.uber.org/zap"
)

type entry struct {
	doc docstore.Document
	seq uint64
}

// FaultFunc is consulted before every write, including each write inside a
// batch. A non-nil error fails that write (and its whole batch).
type FaultFunc func(w docstore.Write) error

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	colls map[string]map[string]*entry
	seq   uint64
	fault FaultFunc

	clock *docstore.Clock
	bus   *changebus.Local
	log   *zap.Logger
}

var _ docstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the clock used for server timestamps.
func WithClock(c *docstore.Clock) Option { return func(s *Store) { s.clock = c } }

// WithLogger sets the logger used for subscription errors.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		colls: make(map[string]map[string]*entry),
		clock: docstore.NewClock(),
		bus:   changebus.NewLocal(),
		log:   zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// InjectFault installs fn as the write hook. Pass nil to clear it.
func (s *Store) InjectFault(fn FaultFunc) {
	s.mu.Lock()
	s.fault = fn
	s.mu.Unlock()
}

// Get returns a copy of the stored document.
func (s *Store) Get(ctx context.Context, coll, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.colls[coll][id]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return clone(e.doc)
}

// Put creates or replaces a document.
func (s *Store) Put(ctx context.Context, coll, id string, fields any, ops ...docstore.FieldOp) error {
	return s.Batch(ctx, docstore.PutOp(coll, id, fields, ops...))
}

// Update applies field ops to an existing document.
func (s *Store) Update(ctx context.Context, coll, id string, ops ...docstore.FieldOp) error {
	return s.Batch(ctx, docstore.UpdateOp(coll, id, ops...))
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, coll, id string) error {
	return s.Batch(ctx, docstore.DeleteOp(coll, id))
}

// Batch stages every write against a private overlay and commits only if
// all of them succeed.
func (s *Store) Batch(ctx context.Context, writes ...docstore.Write) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(writes) == 0 {
		return nil
	}

	s.mu.Lock()
	staged := make(map[string]map[string]*entry)
	lookup := func(coll, id string) (*entry, bool) {
		if m, ok := staged[coll]; ok {
			if e, ok := m[id]; ok {
				return e, e != nil
			}
		}
		e, ok := s.colls[coll][id]
		return e, ok
	}
	stage := func(coll, id string, e *entry) {
		if staged[coll] == nil {
			staged[coll] = make(map[string]*entry)
		}
		staged[coll][id] = e
	}

	seq := s.seq
	for _, w := range writes {
		if s.fault != nil {
			if err := s.fault(w); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		if w.Collection == "" || w.ID == "" {
			s.mu.Unlock()
			return fmt.Errorf("memstore: %s needs a collection and id", w.Kind)
		}
		if len(w.Match) > 0 && w.Kind != docstore.WriteUpdate {
			s.mu.Unlock()
			return fmt.Errorf("memstore: conditions are only supported on updates")
		}

		switch w.Kind {
		case docstore.WritePut:
			doc, err := docstore.Normalize(w.Fields)
			if err != nil {
				s.mu.Unlock()
				return err
			}
			doc["_id"] = w.ID
			if err := docstore.ApplyOps(doc, s.clock, w.Ops...); err != nil {
				s.mu.Unlock()
				return err
			}
			e := &entry{doc: doc}
			if prev, ok := lookup(w.Collection, w.ID); ok {
				e.seq = prev.seq
			} else {
				seq++
				e.seq = seq
			}
			stage(w.Collection, w.ID, e)

		case docstore.WriteUpdate:
			prev, ok := lookup(w.Collection, w.ID)
			if !ok {
				s.mu.Unlock()
				return fmt.Errorf("%w: %s/%s", docstore.ErrNotFound, w.Collection, w.ID)
			}
			if len(w.Match) > 0 {
				match, err := normalizeFilters(w.Match)
				if err != nil {
					s.mu.Unlock()
					return err
				}
				if !matchesAll(prev.doc, match) {
					s.mu.Unlock()
					return fmt.Errorf("%w: %s/%s", docstore.ErrConditionFailed, w.Collection, w.ID)
				}
			}
			doc, err := clone(prev.doc)
			if err != nil {
				s.mu.Unlock()
				return err
			}
			if err := docstore.ApplyOps(doc, s.clock, w.Ops...); err != nil {
				s.mu.Unlock()
				return err
			}
			doc["_id"] = w.ID
			stage(w.Collection, w.ID, &entry{doc: doc, seq: prev.seq})

		case docstore.WriteDelete:
			stage(w.Collection, w.ID, nil)

		default:
			s.mu.Unlock()
			return fmt.Errorf("memstore: unknown write kind %d", w.Kind)
		}
	}

	for coll, m := range staged {
		dst := s.colls[coll]
		if dst == nil {
			dst = make(map[string]*entry)
			s.colls[coll] = dst
		}
		for id, e := range m {
			if e == nil {
				delete(dst, id)
				continue
			}
			dst[id] = e
		}
	}
	s.seq = seq
	s.mu.Unlock()

	for coll := range staged {
		_ = s.bus.Publish(ctx, coll)
	}
	return nil
}

// Query evaluates q against the current contents.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filters, err := normalizeFilters(q.Filters)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	var hits []*entry
	for _, e := range s.colls[q.Collection] {
		if matchesAll(e.doc, filters) {
			hits = append(hits, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool { return hits[i].seq < hits[j].seq })
	sort.SliceStable(hits, func(i, j int) bool { return less(hits[i].doc, hits[j].doc, q.Orders) })

	if q.Limit > 0 && len(hits) > q.Limit {
		hits = hits[:q.Limit]
	}

	out := make([]docstore.Document, 0, len(hits))
	for _, e := range hits {
		d, err := clone(e.doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// Subscribe re-runs q after every committed write to its collection.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query) *live.Feed[[]docstore.Document] {
	subCtx, cancel := context.WithCancel(ctx)
	signals := s.bus.Subscribe(subCtx, q.Collection)

	feed := live.Watch(subCtx, signals, func(ctx context.Context) ([]docstore.Document, error) {
		return s.Query(ctx, q)
	}, func(err error) {
		s.log.Warn("memstore subscription query failed", zap.String("collection", q.Collection), zap.Error(err))
	})

	go func() {
		<-feed.Done()
		cancel()
	}()
	return feed
}

// Count returns the number of documents in coll.
func (s *Store) Count(coll string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colls[coll])
}

// Subscribers returns the number of open subscriptions on coll.
func (s *Store) Subscribers(coll string) int {
	return s.bus.Subscribers(coll)
}

func clone(doc docstore.Document) (docstore.Document, error) {
	return docstore.Normalize(doc)
}
