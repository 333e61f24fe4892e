// Package cache provides Refresher, a value cache that answers within a
// fixed time budget while a possibly slow upstream read refreshes it in
// the background.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/speedwagon-io/hostmon/internal/lib/logger/sl"
)

const DefaultTimeout = 100 * time.Millisecond

// Action produces a fresh value from the upstream source.
type Action[T any] func(ctx context.Context) (T, error)

type Outcome string

const (
	OutcomeFresh Outcome = "fresh"
	OutcomeStale Outcome = "stale"
	OutcomeEmpty Outcome = "empty"
)

// Observer receives refresh and retrieve events. Implementations must be
// safe for concurrent use.
type Observer interface {
	ObserveRefresh(source string, duration time.Duration, err error)
	ObserveRetrieve(source string, outcome Outcome)
}

type Refresher[T any] struct {
	name     string
	action   Action[T]
	timeout  time.Duration
	log      *slog.Logger
	observer Observer
	onUpdate func(T)

	mu        sync.RWMutex
	value     T
	ok        bool
	updatedAt time.Time
}

type Option[T any] func(*Refresher[T])

func WithTimeout[T any](d time.Duration) Option[T] {
	return func(r *Refresher[T]) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithLogger[T any](log *slog.Logger) Option[T] {
	return func(r *Refresher[T]) {
		r.log = log
	}
}

func WithObserver[T any](o Observer) Option[T] {
	return func(r *Refresher[T]) {
		r.observer = o
	}
}

// WithInitial seeds the cache so the first retrieve has a value even if
// the priming refresh is slow.
func WithInitial[T any](v T) Option[T] {
	return func(r *Refresher[T]) {
		r.value = v
		r.ok = true
	}
}

// WithOnUpdate registers fn to run after every successful refresh.
func WithOnUpdate[T any](fn func(T)) Option[T] {
	return func(r *Refresher[T]) {
		r.onUpdate = fn
	}
}

// New builds a Refresher and starts one background refresh to prime the
// cache. It does not wait for that refresh.
func New[T any](name string, action Action[T], opts ...Option[T]) *Refresher[T] {
	r := &Refresher[T]{
		name:    name,
		action:  action,
		timeout: DefaultTimeout,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(slog.String("source", name))

	go r.refresh(context.Background())

	return r
}

func (r *Refresher[T]) Name() string {
	return r.name
}

// Value returns the cached value without triggering a refresh.
func (r *Refresher[T]) Value() (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value, r.ok
}

func (r *Refresher[T]) HasValue() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ok
}

// UpdatedAt is the time of the last successful refresh. It is zero for a
// value that only came from WithInitial.
func (r *Refresher[T]) UpdatedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.updatedAt
}

// Refresh runs one upstream read and stores its value. It blocks until
// the read completes.
func (r *Refresher[T]) Refresh(ctx context.Context) error {
	_, err := r.refresh(ctx)
	return err
}

// Retrieve starts a refresh and waits for it at most the configured
// timeout. If the refresh is late the cached value is returned and the
// refresh keeps running; its value lands in the cache when it completes.
// The bool is false when no value has ever been cached.
func (r *Refresher[T]) Retrieve(ctx context.Context) (T, bool) {
	res := newResult[T]()

	timer := time.AfterFunc(r.timeout, func() {
		v, ok := r.Value()
		res.resolve(v, ok, staleOutcome(ok))
	})
	defer timer.Stop()

	// The upstream read is detached from ctx: it always runs to completion.
	go func() {
		v, err := r.refresh(context.WithoutCancel(ctx))
		if err != nil {
			cached, ok := r.Value()
			res.resolve(cached, ok, staleOutcome(ok))
			return
		}
		res.resolve(v, true, OutcomeFresh)
	}()

	var out outcome[T]
	select {
	case out = <-res.ch:
	case <-ctx.Done():
		v, ok := r.Value()
		res.resolve(v, ok, staleOutcome(ok))
		out = <-res.ch
	}

	if r.observer != nil {
		r.observer.ObserveRetrieve(r.name, out.kind)
	}
	return out.value, out.ok
}

func staleOutcome(ok bool) Outcome {
	if ok {
		return OutcomeStale
	}
	return OutcomeEmpty
}

func (r *Refresher[T]) refresh(ctx context.Context) (v T, err error) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("refresh panicked: %v", p)
		}
		if r.observer != nil {
			r.observer.ObserveRefresh(r.name, time.Since(start), err)
		}
		if err != nil {
			r.log.Warn("refresh failed", sl.Err(err))
		}
	}()

	v, err = r.action(ctx)
	if err != nil {
		return v, err
	}

	r.store(v)
	return v, nil
}

func (r *Refresher[T]) store(v T) {
	r.mu.Lock()
	r.value = v
	r.ok = true
	r.updatedAt = time.Now()
	r.mu.Unlock()

	if r.onUpdate != nil {
		r.onUpdate(v)
	}
}
