package stream

import (
	"sync"
)

// Map derives a hot Subject by applying fn to every upstream value.
func Map[A, R any](src Observable[A], fn func(A) R) *Subject[R] {
	out := NewSubject[R]()
	src.Subscribe(func(a A) {
		out.Publish(fn(a))
	})
	return out
}

// CombineLatest2 emits fn(a, b) whenever either side emits, once both have emitted at least once.
// The recompute and the downstream publish happen under one lock, so subscribers never observe
// a tuple mixing two different upstream emissions.
func CombineLatest2[A, B, R any](a Observable[A], b Observable[B], fn func(A, B) R) *Subject[R] {
	out := NewSubject[R]()
	var (
		mu         sync.Mutex
		lastA      A
		lastB      B
		hasA, hasB bool
	)
	emit := func() {
		if hasA && hasB {
			out.Publish(fn(lastA, lastB))
		}
	}
	a.Subscribe(func(v A) {
		mu.Lock()
		defer mu.Unlock()
		lastA, hasA = v, true
		emit()
	})
	b.Subscribe(func(v B) {
		mu.Lock()
		defer mu.Unlock()
		lastB, hasB = v, true
		emit()
	})
	return out
}

// SwitchMap subscribes to project(a) for the latest upstream value only. The previous inner
// subscription is cancelled before the new one is made, and anything the old branch still
// delivers afterwards is discarded. The staleness check and the downstream publish happen under
// emitMu, and a switch bumps the generation under the same lock, so an old branch can never
// publish after the new branch's first value.
func SwitchMap[A, R any](src Observable[A], project func(A) Observable[R]) *Subject[R] {
	out := NewSubject[R]()
	var (
		emitMu sync.Mutex
		mu     sync.Mutex
		gen    uint64
		inner  Subscription
	)
	src.Subscribe(func(a A) {
		emitMu.Lock()
		mu.Lock()
		gen++
		current := gen
		prev := inner
		inner = nil
		mu.Unlock()
		emitMu.Unlock()

		if prev != nil {
			prev.Unsubscribe()
		}

		sub := project(a).Subscribe(func(r R) {
			emitMu.Lock()
			defer emitMu.Unlock()
			mu.Lock()
			stale := current != gen
			mu.Unlock()
			if stale {
				return
			}
			out.Publish(r)
		})

		mu.Lock()
		if current == gen {
			inner = sub
			mu.Unlock()
			return
		}
		mu.Unlock()
		sub.Unsubscribe()
	})
	return out
}

// ShareReplay connects to src once, on the first subscription, and fans that single execution
// out to every subscriber, replaying the last value. The upstream stays connected afterwards.
func ShareReplay[T any](src Observable[T]) Observable[T] {
	return &shared[T]{src: src, subject: NewSubject[T]()}
}

type shared[T any] struct {
	once    sync.Once
	src     Observable[T]
	subject *Subject[T]
}

func (s *shared[T]) Subscribe(fn func(T)) Subscription {
	sub := s.subject.Subscribe(fn)
	s.once.Do(func() {
		s.src.Subscribe(s.subject.Publish)
	})
	return sub
}

// DistinctUntilChanged drops values equal to the previous one.
func DistinctUntilChanged[T comparable](src Observable[T]) *Subject[T] {
	out := NewSubject[T]()
	var (
		mu   sync.Mutex
		last T
		has  bool
	)
	src.Subscribe(func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if has && last == v {
			return
		}
		last, has = v, true
		out.Publish(v)
	})
	return out
}

// Trigger is a replayable signal used to force work outside of a timer.
type Trigger struct {
	subject *Subject[uint64]
	mu      sync.Mutex
	count   uint64
}

func NewTrigger() *Trigger {
	return &Trigger{subject: NewBehaviorSubject[uint64](0)}
}

// Trigger emits a new token to every subscriber.
func (t *Trigger) Trigger() {
	t.mu.Lock()
	t.count++
	n := t.count
	t.mu.Unlock()
	t.subject.Publish(n)
}

func (t *Trigger) Subscribe(fn func(uint64)) Subscription {
	return t.subject.Subscribe(fn)
}
