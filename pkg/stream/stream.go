// Package stream provides the small push-based primitives the countdown pipeline is built from.
//
// Every derived value is a hot Subject that replays its latest value, so a late subscriber
// sees the current state immediately. Emissions on a single Subject are serialized; callbacks
// must not publish back into the Subject they are subscribed to.
//
// Usage:
//
//	height := stream.NewSubject[int64]()
//	next := stream.NewBehaviorSubject[int64](100)
//	left := stream.CombineLatest2[int64, int64, int64](height, next, func(h, n int64) int64 { return n - h })
//	sub := left.Subscribe(func(v int64) { fmt.Println(v) })
//	defer sub.Unsubscribe()
//	height.Publish(90) // prints 10
package stream

import (
	"context"
	"sync"
)

// Observable is anything that can be subscribed to.
type Observable[T any] interface {
	Subscribe(fn func(T)) Subscription
}

type Subscription interface {
	Unsubscribe()
}

// SubscriptionFunc adapts a plain function to a Subscription.
type SubscriptionFunc func()

func (f SubscriptionFunc) Unsubscribe() { f() }

type subscriber[T any] struct {
	fn     func(T)
	closed bool
}

// Subject is a hot multicast source that replays the latest value.
type Subject[T any] struct {
	mu      sync.Mutex
	emitMu  sync.Mutex
	subs    map[uint64]*subscriber[T]
	nextID  uint64
	latest  T
	hasLast bool
}

func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{subs: make(map[uint64]*subscriber[T])}
}

// NewBehaviorSubject starts with an initial value so subscribers never wait for the first emission.
func NewBehaviorSubject[T any](initial T) *Subject[T] {
	s := NewSubject[T]()
	s.latest = initial
	s.hasLast = true
	return s
}

// Publish stores v as the latest value and delivers it to every current subscriber.
func (s *Subject[T]) Publish(v T) {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	s.latest = v
	s.hasLast = true
	subs := make([]*subscriber[T], 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		s.deliver(sub, v)
	}
}

func (s *Subject[T]) deliver(sub *subscriber[T], v T) {
	s.mu.Lock()
	closed := sub.closed
	s.mu.Unlock()
	if !closed {
		sub.fn(v)
	}
}

// Value returns the latest value and whether one was published yet.
func (s *Subject[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.hasLast
}

func (s *Subject[T]) Subscribe(fn func(T)) Subscription {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	sub := &subscriber[T]{fn: fn}
	s.subs[id] = sub
	latest, has := s.latest, s.hasLast
	s.mu.Unlock()

	if has {
		fn(latest)
	}

	var once sync.Once
	return SubscriptionFunc(func() {
		once.Do(func() {
			s.mu.Lock()
			sub.closed = true
			delete(s.subs, id)
			s.mu.Unlock()
		})
	})
}

// Subscribers reports how many subscriptions are active.
func (s *Subject[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// FromFunc builds a cold Observable: every subscription starts its own run in a goroutine.
// Unsubscribing cancels ctx and drops anything emitted afterwards.
func FromFunc[T any](run func(ctx context.Context, emit func(T))) Observable[T] {
	return coldFunc[T](run)
}

type coldFunc[T any] func(ctx context.Context, emit func(T))

func (c coldFunc[T]) Subscribe(fn func(T)) Subscription {
	ctx, cancel := context.WithCancel(context.Background())
	var mu sync.Mutex
	emit := func(v T) {
		mu.Lock()
		defer mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		fn(v)
	}
	go c(ctx, emit)
	return SubscriptionFunc(func() {
		mu.Lock()
		cancel()
		mu.Unlock()
	})
}
