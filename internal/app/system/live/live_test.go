package live_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/campuslink/internal/app/system/live"
)

func poke(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func next[T any](t *testing.T, f *live.Feed[T]) T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	v, ok := f.Next(ctx)
	if !ok {
		t.Fatal("timed out waiting for feed value")
	}
	return v
}

func TestWatch_InitialLoadAndReload(t *testing.T) {
	var state atomic.Int64
	state.Store(1)
	sig := make(chan struct{}, 1)

	f := live.Watch(context.Background(), sig, func(context.Context) (int64, error) {
		return state.Load(), nil
	}, nil)
	defer f.Close()

	if got := next(t, f); got != 1 {
		t.Fatalf("initial value: got %d, want 1", got)
	}

	state.Store(2)
	poke(sig)
	if got := next(t, f); got != 2 {
		t.Fatalf("after signal: got %d, want 2", got)
	}
}

func TestWatch_LastValueWins(t *testing.T) {
	var state atomic.Int64
	sig := make(chan struct{}, 1)

	f := live.Watch(context.Background(), sig, func(context.Context) (int64, error) {
		return state.Load(), nil
	}, nil)
	defer f.Close()

	_ = next(t, f)

	// Publish a burst without consuming; the consumer should converge on the
	// final value and never observe values going backwards.
	for i := int64(1); i <= 20; i++ {
		state.Store(i)
		poke(sig)
	}

	var last int64
	deadline := time.Now().Add(2 * time.Second)
	for last != 20 {
		if time.Now().After(deadline) {
			t.Fatalf("feed never reached final value, last=%d", last)
		}
		got := next(t, f)
		if got < last {
			t.Fatalf("value went backwards: %d after %d", got, last)
		}
		last = got
		if last != 20 {
			poke(sig)
		}
	}
}

func TestWatch_NoDeliveryAfterClose(t *testing.T) {
	var loads atomic.Int64
	sig := make(chan struct{}, 1)

	f := live.Watch(context.Background(), sig, func(context.Context) (int64, error) {
		return loads.Add(1), nil
	}, nil)

	_ = next(t, f)
	f.Close()

	before := loads.Load()
	poke(sig)
	time.Sleep(20 * time.Millisecond)

	if _, ok := <-f.Updates(); ok {
		t.Fatal("expected closed channel after Close")
	}
	if after := loads.Load(); after != before {
		t.Errorf("load ran after Close: %d -> %d", before, after)
	}

	// Close is idempotent.
	f.Close()
}

func TestWatch_ContextCancelEndsFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := live.Watch(ctx, nil, func(context.Context) (int, error) { return 1, nil }, nil)
	_ = next(t, f)

	cancel()
	select {
	case <-f.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("feed did not stop after context cancel")
	}
}

func TestWatch_LoadErrorKeepsRunning(t *testing.T) {
	var (
		mu     sync.Mutex
		errs   []error
		calls  atomic.Int64
		failed = errors.New("store unavailable")
	)
	sig := make(chan struct{}, 1)

	f := live.Watch(context.Background(), sig, func(context.Context) (int64, error) {
		if calls.Add(1) == 1 {
			return 0, failed
		}
		return 7, nil
	}, func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	defer f.Close()

	poke(sig)
	if got := next(t, f); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || !errors.Is(errs[0], failed) {
		t.Errorf("expected one reported error, got %v", errs)
	}
}

func TestMap(t *testing.T) {
	var state atomic.Int64
	state.Store(3)
	sig := make(chan struct{}, 1)

	src := live.Watch(context.Background(), sig, func(context.Context) (int64, error) {
		return state.Load(), nil
	}, nil)
	doubled := live.Map(src, func(v int64) int64 { return v * 2 })

	if got := next(t, doubled); got != 6 {
		t.Fatalf("got %d, want 6", got)
	}

	doubled.Close()
	select {
	case <-src.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("closing Map did not close its source")
	}
}

func TestCombine_WaitsForBothThenRecomputes(t *testing.T) {
	var a, b atomic.Int64
	a.Store(2)
	b.Store(5)
	sigA := make(chan struct{}, 1)
	sigB := make(chan struct{}, 1)

	fa := live.Watch(context.Background(), sigA, func(context.Context) (int64, error) { return a.Load(), nil }, nil)
	fb := live.Watch(context.Background(), sigB, func(context.Context) (int64, error) { return b.Load(), nil }, nil)
	sum := live.Combine(fa, fb, func(x, y int64) int64 { return x + y })
	defer sum.Close()

	if got := next(t, sum); got != 7 {
		t.Fatalf("got %d, want 7", got)
	}

	b.Store(10)
	poke(sigB)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if got := next(t, sum); got == 12 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("combined feed never reflected update")
		}
	}
}
