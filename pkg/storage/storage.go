// Package storage persists the handful of settings that survive a restart: the selected theme,
// the selected churn type and the learned block time. Each key has a single writer.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	KeyTheme     = "tcc-theme"
	KeyChurnType = "tcc-churn-type"
	KeyBlockTime = "tcc-block-time"
)

const (
	BackendBolt   = "bolt"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Store is a string key/value store.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend   string
	Path      string
	RedisAddr string
	RedisPsw  string
}

// Open returns the backend named in opts.
func Open(opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case BackendBolt, "":
		return OpenBolt(opts.Path)
	case BackendRedis:
		return NewRedisFromAddr(opts.RedisAddr, opts.RedisPsw), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}
