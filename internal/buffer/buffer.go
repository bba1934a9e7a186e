// Package buffer implements the FIFOs and single-slot delay holder
// described in spec.md §4.3: the record output buffer, the bypass
// buffer, and the window-hash delay buffer.
package buffer

import (
	"container/list"

	"github.com/jeffreyurban/uniqseq/internal/hashutil"
)

// Records is a double-ended FIFO of arrived tracked records awaiting
// emission or skip resolution.
type Records[T any] struct {
	items *list.List
}

// NewRecords returns an empty record FIFO.
func NewRecords[T any]() *Records[T] {
	return &Records[T]{items: list.New()}
}

// PushBack appends a record to the tail.
func (r *Records[T]) PushBack(v T) {
	r.items.PushBack(v)
}

// PopFront removes and returns the head record. Panics if empty; callers
// must check Len first, per spec.md §7's "no partial-failure mode" —
// popping an empty buffer is an invariant violation, not a runtime error.
func (r *Records[T]) PopFront() T {
	e := r.items.Front()
	if e == nil {
		panic("buffer: PopFront on empty buffer")
	}

	r.items.Remove(e)

	return e.Value.(T)
}

// DropFront removes the first n records without returning them, used to
// skip the records belonging to a confirmed duplicate.
func (r *Records[T]) DropFront(n int) {
	for i := 0; i < n; i++ {
		e := r.items.Front()
		if e == nil {
			panic("buffer: DropFront beyond buffer length")
		}

		r.items.Remove(e)
	}
}

// Len returns the number of buffered records.
func (r *Records[T]) Len() int { return r.items.Len() }

// Front returns the head record without removing it, and whether the
// buffer was non-empty.
func (r *Records[T]) Front() (T, bool) {
	e := r.items.Front()
	if e == nil {
		var zero T

		return zero, false
	}

	return e.Value.(T), true
}

// Delay is a single-slot holder for the most recently computed window
// hash. Its sole purpose is spec.md invariant 5: a window hash only
// becomes eligible for matching once the window that produced it has
// fully departed the active window, which this one-step delay makes
// automatic (spec.md §4.5 step E).
type Delay struct {
	hash     hashutil.WindowHash
	occupied bool
}

// Admit moves the buffer's current content into dst (via push, which the
// caller supplies as a closure over the history) if occupied, then stores
// hash as the new content. Returns whether a prior value was admitted.
func (d *Delay) Admit(hash hashutil.WindowHash, push func(hashutil.WindowHash)) bool {
	admitted := false

	if d.occupied {
		push(d.hash)

		admitted = true
	}

	d.hash = hash
	d.occupied = true

	return admitted
}
