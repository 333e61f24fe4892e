package cache

import "sync/atomic"

type outcome[T any] struct {
	value T
	ok    bool
	kind  Outcome
}

// result is a single-assignment cell. Only the first resolve is kept;
// later ones report false and are dropped.
type result[T any] struct {
	done atomic.Bool
	ch   chan outcome[T]
}

func newResult[T any]() *result[T] {
	return &result[T]{ch: make(chan outcome[T], 1)}
}

func (r *result[T]) resolve(v T, ok bool, kind Outcome) bool {
	if !r.done.CompareAndSwap(false, true) {
		return false
	}
	r.ch <- outcome[T]{value: v, ok: ok, kind: kind}
	return true
}
