package isolate

import (
	"context"
	"fmt"
	"sync"
)

// Deferred is a value that becomes available later, or a failure to
// produce one. It settles exactly once. A Deferred resolved with another
// Deferred adopts that Deferred's outcome when awaited.
type Deferred struct {
	done  chan struct{}
	once  sync.Once
	value any
	err   error
}

func newDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolve returns a Deferred settled with value. If value is itself a
// *Deferred it is returned unchanged.
func Resolve(value any) *Deferred {
	if d, ok := value.(*Deferred); ok && d != nil {
		return d
	}

	d := newDeferred()
	d.settle(value, nil)

	return d
}

// Reject returns a Deferred settled with err.
func Reject(err error) *Deferred {
	d := newDeferred()
	d.settle(nil, err)

	return d
}

// Go runs fn on a new goroutine and returns a Deferred settled with its
// result. A panic in fn rejects the Deferred with [ErrEvaluate].
func Go(fn func() (any, error)) *Deferred {
	d := newDeferred()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				d.settle(nil, ErrEvaluate.Wrap(fmt.Errorf("panic: %v", r)))
			}
		}()

		d.settle(fn())
	}()

	return d
}

func (d *Deferred) settle(value any, err error) {
	d.once.Do(func() {
		d.value, d.err = value, err
		close(d.done)
	})
}

// Done returns a channel closed once the Deferred settles.
func (d *Deferred) Done() <-chan struct{} { return d.done }

// Settled reports whether the Deferred has settled.
func (d *Deferred) Settled() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// Await blocks until the Deferred settles and returns its outcome. A value
// that is itself a *Deferred is awaited in turn. If ctx ends first, Await
// returns an [ErrAwait] error wrapping the context's error; the Deferred
// itself is unaffected.
func (d *Deferred) Await(ctx context.Context) (any, error) {
	for {
		select {
		case <-d.done:
		case <-ctx.Done():
			return nil, ErrAwait.Wrap(ctx.Err())
		}

		next, ok := d.value.(*Deferred)
		if !ok || d.err != nil || next == nil {
			return d.value, d.err
		}

		d = next
	}
}

// Then returns a Deferred settled by onValue or onError once d settles. A
// nil handler passes the outcome through unchanged.
func (d *Deferred) Then(
	onValue func(any) (any, error),
	onError func(error) (any, error),
) *Deferred {
	return Go(func() (any, error) {
		value, err := d.Await(context.Background())

		switch {
		case err != nil && onError != nil:
			return onError(err)
		case err != nil:
			return nil, err
		case onValue != nil:
			return onValue(value)
		default:
			return value, nil
		}
	})
}
