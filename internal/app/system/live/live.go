// Package live implements push-updated query results.
//
// A Feed delivers successive values of some observed state over a channel.
// It is lazy (nothing runs before the first change signal or initial load),
// unbounded (it runs until closed or its context ends), restartable (close
// it and open a new one), and last-value-wins: if the consumer is slow, only
// the newest value is kept for delivery.
//
// Close is synchronous. Once it returns no further value is delivered and
// the Updates channel is closed.
package live

import (
	"context"
	"sync"
)

// Feed is a stream of values of T.
type Feed[T any] struct {
	ch     chan T
	exited chan struct{}
	cancel context.CancelFunc
	once   sync.Once
}

func newFeed[T any](parent context.Context) (*Feed[T], context.Context) {
	ctx, cancel := context.WithCancel(parent)
	return &Feed[T]{
		ch:     make(chan T),
		exited: make(chan struct{}),
		cancel: cancel,
	}, ctx
}

func (f *Feed[T]) finish() {
	close(f.ch)
	close(f.exited)
}

// Updates returns the channel values are delivered on. It is closed when the
// feed ends.
func (f *Feed[T]) Updates() <-chan T { return f.ch }

// Done is closed once the feed has stopped and will deliver nothing more.
func (f *Feed[T]) Done() <-chan struct{} { return f.exited }

// Close stops the feed and waits for its goroutine to exit. It is safe to
// call more than once.
func (f *Feed[T]) Close() {
	f.once.Do(f.cancel)
	<-f.exited
}

// Next waits for the next value. ok is false if ctx ends or the feed closes
// first.
func (f *Feed[T]) Next(ctx context.Context) (v T, ok bool) {
	select {
	case v, ok = <-f.ch:
		return v, ok
	case <-ctx.Done():
		return v, false
	}
}

// LoadFunc computes the current value of the observed state.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Watch returns a feed that calls load once immediately and again every time
// a signal arrives. Signals received while a value is waiting for the
// consumer replace that value. Load errors are reported to onErr (which may
// be nil) and the feed keeps running; a closed signals channel stops reloads
// but not delivery of the pending value.
func Watch[T any](parent context.Context, signals <-chan struct{}, load LoadFunc[T], onErr func(error)) *Feed[T] {
	f, ctx := newFeed[T](parent)

	go func() {
		defer f.finish()

		var pending T
		has, stale := false, true
		for {
			if stale {
				stale = false
				v, err := load(ctx)
				switch {
				case ctx.Err() != nil:
					return
				case err != nil:
					if onErr != nil {
						onErr(err)
					}
				default:
					pending, has = v, true
				}
			}

			var out chan<- T
			if has {
				out = f.ch
			}
			select {
			case <-ctx.Done():
				return
			case _, ok := <-signals:
				if !ok {
					signals = nil
					continue
				}
				stale = true
			case out <- pending:
				has = false
			}
		}
	}()

	return f
}

// Map returns a feed of fn applied to each value of src. Closing the result
// closes src.
func Map[S, T any](src *Feed[S], fn func(S) T) *Feed[T] {
	f, ctx := newFeed[T](context.Background())

	go func() {
		defer f.finish()
		defer src.Close()

		in := src.Updates()
		var pending T
		has := false
		for {
			var out chan<- T
			if has {
				out = f.ch
			}
			select {
			case <-ctx.Done():
				return
			case v, ok := <-in:
				if !ok {
					return
				}
				pending, has = fn(v), true
			case out <- pending:
				has = false
			}
		}
	}()

	return f
}

// Combine returns a feed that recomputes fn whenever either source produces
// a value, once both have produced at least one. Closing the result closes
// both sources; the result ends when either source ends.
func Combine[A, B, T any](a *Feed[A], b *Feed[B], fn func(A, B) T) *Feed[T] {
	f, ctx := newFeed[T](context.Background())

	go func() {
		defer f.finish()
		defer b.Close()
		defer a.Close()

		var (
			av           A
			bv           B
			haveA, haveB bool
			pending      T
			has          bool
		)
		ach, bch := a.Updates(), b.Updates()
		for {
			var out chan<- T
			if has {
				out = f.ch
			}
			select {
			case <-ctx.Done():
				return
			case v, ok := <-ach:
				if !ok {
					return
				}
				av, haveA = v, true
			case v, ok := <-bch:
				if !ok {
					return
				}
				bv, haveB = v, true
			case out <- pending:
				has = false
				continue
			}
			if haveA && haveB {
				pending, has = fn(av, bv), true
			}
		}
	}()

	return f
}
