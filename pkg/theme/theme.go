// Package theme keeps the persisted dark/light preference.
package theme

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/nodersteam/churn-countdown/pkg/storage"
)

type Theme string

const (
	Dark  Theme = "dark"
	Light Theme = "light"

	Default = Dark
)

func (t Theme) Valid() bool {
	return t == Dark || t == Light
}

func Parse(s string) (Theme, error) {
	t := Theme(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown theme %q (want %q or %q)", s, Dark, Light)
	}
	return t, nil
}

// Load returns the persisted theme. Missing, unreadable and unknown values give Default.
func Load(ctx context.Context, store storage.Store) Theme {
	raw, ok, err := store.Get(ctx, storage.KeyTheme)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read persisted theme")
		return Default
	}
	if !ok {
		return Default
	}
	if t := Theme(raw); t.Valid() {
		return t
	}
	log.Warn().Str("value", raw).Msg("Ignoring invalid persisted theme")
	return Default
}

func Update(ctx context.Context, store storage.Store, t Theme) error {
	if !t.Valid() {
		return fmt.Errorf("unknown theme %q", t)
	}
	if err := store.Set(ctx, storage.KeyTheme, string(t)); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	return nil
}
