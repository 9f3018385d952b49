// Package changebus carries "collection changed" signals between writers and
// live subscriptions.
//
// Signals carry no payload: a subscriber only learns that its collection
// changed and re-runs its query. Local delivers within one process; Redis
// fans signals out across instances over Redis pub/sub.
package changebus

import (
	"context"
	"sync"
)

// Bus publishes and subscribes to per-collection change signals.
type Bus interface {
	// Publish announces that coll changed.
	Publish(ctx context.Context, coll string) error
	// Subscribe returns a channel that receives a signal after changes to
	// coll. Bursts coalesce into one pending signal. The channel is closed
	// when ctx ends.
	Subscribe(ctx context.Context, coll string) <-chan struct{}
	Close() error
}

// Notify performs a non-blocking send, leaving an already pending signal in
// place.
func Notify(ch chan<- struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Local is an in-process Bus.
type Local struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

// NewLocal returns an empty in-process bus.
func NewLocal() *Local {
	return &Local{subs: make(map[string]map[chan struct{}]struct{})}
}

// Publish signals every current subscriber of coll.
func (b *Local) Publish(_ context.Context, coll string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[coll] {
		Notify(ch)
	}
	return nil
}

// Subscribe registers a subscriber until ctx ends.
func (b *Local) Subscribe(ctx context.Context, coll string) <-chan struct{} {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	set, ok := b.subs[coll]
	if !ok {
		set = make(map[chan struct{}]struct{})
		b.subs[coll] = set
	}
	set[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs[coll], ch)
		if len(b.subs[coll]) == 0 {
			delete(b.subs, coll)
		}
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Subscribers returns the number of live subscriptions on coll.
func (b *Local) Subscribers(coll string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[coll])
}

// Close is a no-op; subscriptions end with their contexts.
func (b *Local) Close() error { return nil }
