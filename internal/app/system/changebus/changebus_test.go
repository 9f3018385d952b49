package changebus_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/dalemusser/campuslink/internal/app/system/changebus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case _, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before signal")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

func TestLocal_PublishSubscribe(t *testing.T) {
	bus := changebus.NewLocal()
	ctx, cancel := context.WithCancel(context.Background())

	chats := bus.Subscribe(ctx, "chats")
	msgs := bus.Subscribe(ctx, "messages")

	_ = bus.Publish(ctx, "chats")
	_ = bus.Publish(ctx, "chats")
	waitSignal(t, chats)

	select {
	case <-msgs:
		t.Fatal("messages subscriber should not see chats signal")
	default:
	}

	cancel()
	deadline := time.Now().Add(2 * time.Second)
	for bus.Subscribers("chats") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber not removed after cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := <-chats; ok {
		t.Error("expected channel closed after cancel")
	}
}

func TestRedis_PublishSubscribe(t *testing.T) {
	addr := os.Getenv("CAMPUSLINK_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CAMPUSLINK_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not reachable: %v", err)
	}

	bus := changebus.NewRedis(rdb, "campuslink:test:", zap.NewNop())
	defer bus.Close()

	ch := bus.Subscribe(ctx, "notifications")
	// Give the subscription a moment to register with the server.
	time.Sleep(100 * time.Millisecond)
	if err := bus.Publish(ctx, "notifications"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	waitSignal(t, ch)
}
