// Package mailbox provides a single-slot, take/put mailbox: a
// concurrency-safe box that always holds exactly one value, borrowed by
// Take and returned (possibly replaced) by Put. It is the idiom the
// negotiation loop uses to guard the monotonically-growing have set
// across rounds. The fetch driver runs its rounds on one goroutine; the
// box stays safe when shared between goroutines — the same shape as a
// channel of capacity 1 used as a mutex-with-a-value, rather than a
// plain sync.Mutex-guarded field, so that a round that never returns
// its borrow simply blocks the next Take instead of corrupting state.
package mailbox

// Box holds exactly one value of type T at a time.
type Box[T any] struct {
	slot chan T
}

// New creates a Box pre-filled with initial.
func New[T any](initial T) *Box[T] {
	b := &Box[T]{slot: make(chan T, 1)}
	b.slot <- initial
	return b
}

// Take removes and returns the current value, blocking until one is
// available. Every successful Take must be balanced by a Put, or the
// box is left empty and all further Takes block forever.
func (b *Box[T]) Take() T {
	return <-b.slot
}

// Put returns a (possibly new) value to the box, unblocking the next
// pending Take.
func (b *Box[T]) Put(v T) {
	b.slot <- v
}

// Update takes the current value, applies fn, and puts the result back,
// returning it. This is the common case: borrow, grow, return.
func (b *Box[T]) Update(fn func(T) T) T {
	v := fn(b.Take())
	b.Put(v)
	return v
}

// Peek reads the current value without removing it, by taking and
// immediately putting it back. Safe to call concurrently with other
// Peek/Update callers, but the returned snapshot may be stale the
// instant it is returned.
func (b *Box[T]) Peek() T {
	v := b.Take()
	b.Put(v)
	return v
}
