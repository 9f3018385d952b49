// Package mongostore implements docstore.Store on MongoDB.
//
// Batches run as multi-document transactions. Subscriptions refresh on a
// change bus when one is configured, otherwise on collection change
// streams, falling back to polling when the deployment has no change
// streams (standalone servers).
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/campuslink/internal/app/system/changebus"
	"github.com/dalemusser/campuslink/internal/app/system/docstore"
	"github.com/dalemusser/campuslink/internal/app/system/live"
	"github.com/dalemusser/campuslink/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// DefaultPollInterval is used when neither a bus nor change streams are
// available.
const DefaultPollInterval = 2 * time.Second

// Store is a docstore.Store over one Mongo database. Server timestamps
// come from the database server, so every instance stamps from one clock.
type Store struct {
	db     *mongo.Database
	bus    changebus.Bus
	poll   time.Duration
	strict bool
	log    *zap.Logger
}

var _ docstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithBus publishes every committed write to bus and uses it to refresh
// subscriptions.
func WithBus(b changebus.Bus) Option { return func(s *Store) { s.bus = b } }

// WithPollInterval sets the polling fallback interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.poll = d
		}
	}
}

// WithStrictBatches makes Batch fail with txn.ErrNotSupported instead of
// running writes one by one on deployments without transactions.
func WithStrictBatches(strict bool) Option { return func(s *Store) { s.strict = strict } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(s *Store) { s.log = l } }

// New returns a Store over db.
func New(db *mongo.Database, opts ...Option) *Store {
	s := &Store{
		db:     db,
		poll:   DefaultPollInterval,
		strict: true,
		log:    zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get fetches one document by id.
func (s *Store) Get(ctx context.Context, coll, id string) (docstore.Document, error) {
	var doc docstore.Document
	err := s.db.Collection(coll).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Put replaces (or inserts) the document.
func (s *Store) Put(ctx context.Context, coll, id string, fields any, ops ...docstore.FieldOp) error {
	if err := s.put(ctx, coll, id, fields, ops); err != nil {
		return err
	}
	s.publish(ctx, coll)
	return nil
}

// Update applies field ops to an existing document.
func (s *Store) Update(ctx context.Context, coll, id string, ops ...docstore.FieldOp) error {
	if err := s.update(ctx, coll, id, ops, nil); err != nil {
		return err
	}
	s.publish(ctx, coll)
	return nil
}

// Delete removes the document if present.
func (s *Store) Delete(ctx context.Context, coll, id string) error {
	if _, err := s.db.Collection(coll).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return err
	}
	s.publish(ctx, coll)
	return nil
}

// Batch applies writes in one transaction.
func (s *Store) Batch(ctx context.Context, writes ...docstore.Write) error {
	if len(writes) == 0 {
		return nil
	}
	err := txn.RunOrFallback(ctx, s.db.Client(), s.strict, s.log, func(tctx context.Context) error {
		for _, w := range writes {
			var err error
			if len(w.Match) > 0 && w.Kind != docstore.WriteUpdate {
				return fmt.Errorf("mongostore: conditions are only supported on updates")
			}
			switch w.Kind {
			case docstore.WritePut:
				err = s.put(tctx, w.Collection, w.ID, w.Fields, w.Ops)
			case docstore.WriteUpdate:
				err = s.update(tctx, w.Collection, w.ID, w.Ops, w.Match)
			case docstore.WriteDelete:
				_, err = s.db.Collection(w.Collection).DeleteOne(tctx, bson.M{"_id": w.ID})
			default:
				err = fmt.Errorf("mongostore: unknown write kind %d", w.Kind)
			}
			if err != nil {
				return fmt.Errorf("%s %s/%s: %w", w.Kind, w.Collection, w.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(writes))
	for _, w := range writes {
		if !seen[w.Collection] {
			seen[w.Collection] = true
			s.publish(ctx, w.Collection)
		}
	}
	return nil
}

// Query runs q as a Find.
func (s *Store) Query(ctx context.Context, q docstore.Query) ([]docstore.Document, error) {
	filter, err := buildFilter(q.Filters)
	if err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(buildSort(q.Orders))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cur, err := s.db.Collection(q.Collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	docs := []docstore.Document{}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Subscribe re-runs q whenever the collection changes.
func (s *Store) Subscribe(ctx context.Context, q docstore.Query) *live.Feed[[]docstore.Document] {
	subCtx, cancel := context.WithCancel(ctx)
	signals := s.signals(subCtx, q.Collection)

	feed := live.Watch(subCtx, signals, func(ctx context.Context) ([]docstore.Document, error) {
		return s.Query(ctx, q)
	}, func(err error) {
		s.log.Warn("mongostore subscription query failed", zap.String("collection", q.Collection), zap.Error(err))
	})

	go func() {
		<-feed.Done()
		cancel()
	}()
	return feed
}

func (s *Store) put(ctx context.Context, coll, id string, fields any, ops []docstore.FieldOp) error {
	doc, err := docstore.Normalize(fields)
	if err != nil {
		return err
	}
	doc["_id"] = id
	pipeline, err := buildPut(doc, ops)
	if err != nil {
		return err
	}
	_, err = s.db.Collection(coll).UpdateOne(ctx, bson.M{"_id": id}, pipeline, options.Update().SetUpsert(true))
	return err
}

func (s *Store) update(ctx context.Context, coll, id string, ops []docstore.FieldOp, match []docstore.Predicate) error {
	upd, err := buildUpdate(ops)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": id}
	if len(match) > 0 {
		cond, err := buildFilter(match)
		if err != nil {
			return err
		}
		filter = bson.M{"$and": bson.A{bson.M{"_id": id}, cond}}
	}
	res, err := s.db.Collection(coll).UpdateOne(ctx, filter, upd)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if len(match) > 0 {
		n, err := s.db.Collection(coll).CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n > 0 {
			return docstore.ErrConditionFailed
		}
	}
	return docstore.ErrNotFound
}

func (s *Store) publish(ctx context.Context, coll string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, coll); err != nil {
		s.log.Warn("change bus publish failed", zap.String("collection", coll), zap.Error(err))
	}
}

// signals produces change notifications for coll until ctx ends.
func (s *Store) signals(ctx context.Context, coll string) <-chan struct{} {
	if s.bus != nil {
		return s.bus.Subscribe(ctx, coll)
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)

		cs, err := s.db.Collection(coll).Watch(ctx, mongo.Pipeline{})
		if err == nil {
			for cs.Next(ctx) {
				changebus.Notify(out)
			}
			err = cs.Err()
			_ = cs.Close(context.Background())
			if ctx.Err() != nil {
				return
			}
		}
		s.log.Info("change stream unavailable; polling",
			zap.String("collection", coll),
			zap.Duration("interval", s.poll),
			zap.Error(err))

		ticker := time.NewTicker(s.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				changebus.Notify(out)
			}
		}
	}()
	return out
}
