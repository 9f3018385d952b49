package changebus

import (
	"context"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const changedPayload = "changed"

// Redis is a Bus backed by Redis pub/sub. Each collection maps to the
// channel prefix+collection.
type Redis struct {
	rdb    *redis.Client
	prefix string
	log    *zap.Logger
}

// NewRedis wraps an existing client. prefix namespaces the channels
// (e.g. "campuslink:changes:").
func NewRedis(rdb *redis.Client, prefix string, logger *zap.Logger) *Redis {
	return &Redis{rdb: rdb, prefix: prefix, log: logger}
}

// Channel returns the Redis channel name used for coll.
func (b *Redis) Channel(coll string) string { return b.prefix + coll }

// Publish sends a change signal for coll.
func (b *Redis) Publish(ctx context.Context, coll string) error {
	return b.rdb.Publish(ctx, b.Channel(coll), changedPayload).Err()
}

// Subscribe listens on coll's channel until ctx ends.
func (b *Redis) Subscribe(ctx context.Context, coll string) <-chan struct{} {
	out := make(chan struct{}, 1)
	pubsub := b.rdb.Subscribe(ctx, b.Channel(coll))

	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					b.log.Warn("redis change subscription closed", zap.String("collection", coll))
					return
				}
				Notify(out)
			}
		}
	}()

	return out
}

// Close closes the underlying client.
func (b *Redis) Close() error {
	return b.rdb.Close()
}
