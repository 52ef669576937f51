package churn

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nodersteam/churn-countdown/pkg/storage"
	"github.com/nodersteam/churn-countdown/pkg/stream"
)

// Type is the rotation being counted down to.
type Type string

const (
	Pools Type = "pools"
	Nodes Type = "nodes"

	DefaultType = Nodes
)

func (t Type) Valid() bool {
	return t == Pools || t == Nodes
}

func (t Type) Toggle() Type {
	if t == Pools {
		return Nodes
	}
	return Pools
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown churn type %q (want %q or %q)", s, Pools, Nodes)
	}
	return t, nil
}

// Selector holds the user's churn type. It is the only writer of the persisted selection.
type Selector struct {
	store storage.Store

	mu      sync.Mutex
	current *stream.Subject[Type]
}

// NewSelector reads the persisted type, falling back to Nodes for missing or unknown values.
func NewSelector(ctx context.Context, store storage.Store) *Selector {
	initial := DefaultType
	raw, ok, err := store.Get(ctx, storage.KeyChurnType)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("Could not read persisted churn type")
	case ok && Type(raw).Valid():
		initial = Type(raw)
	case ok:
		log.Warn().Str("value", raw).Msg("Ignoring invalid persisted churn type")
	}
	return &Selector{store: store, current: stream.NewBehaviorSubject(initial)}
}

func (s *Selector) Current() Type {
	t, _ := s.current.Value()
	return t
}

func (s *Selector) Types() stream.Observable[Type] {
	return s.current
}

// Toggle flips between Pools and Nodes, persists and publishes the new type.
func (s *Selector) Toggle(ctx context.Context) (Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.Current().Toggle()
	return next, s.set(ctx, next)
}

func (s *Selector) Set(ctx context.Context, t Type) error {
	if !t.Valid() {
		return fmt.Errorf("unknown churn type %q", t)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(ctx, t)
}

func (s *Selector) set(ctx context.Context, t Type) error {
	if err := s.store.Set(ctx, storage.KeyChurnType, string(t)); err != nil {
		return fmt.Errorf("persist churn type: %w", err)
	}
	s.current.Publish(t)
	return nil
}
