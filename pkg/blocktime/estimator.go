// Package blocktime learns the average block duration from the live block feed.
package blocktime

import (
	"context"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/remote"
	"github.com/nodersteam/churn-countdown/pkg/storage"
	"github.com/nodersteam/churn-countdown/pkg/stream"
)

const DefaultWindow = 600

// Estimator is the only writer of the series and of the persisted block time.
type Estimator struct {
	store storage.Store

	mu       sync.Mutex
	series   *Series
	previous model.BlockEvent
	fallback int64

	estimate *stream.Subject[int64]
	deltas   *stream.Subject[[]int64]
}

// NewEstimator loads the persisted block time (or the default) and emits it as the first estimate.
func NewEstimator(ctx context.Context, store storage.Store, window int) *Estimator {
	fallback := loadPersisted(ctx, store)
	return &Estimator{
		store:    store,
		series:   NewSeries(window),
		previous: model.SeedBlockEvent,
		fallback: fallback,
		estimate: stream.NewBehaviorSubject(fallback),
		deltas:   stream.NewBehaviorSubject([]int64{}),
	}
}

func loadPersisted(ctx context.Context, store storage.Store) int64 {
	raw, ok, err := store.Get(ctx, storage.KeyBlockTime)
	if err != nil {
		log.Warn().Err(err).Msg("Could not read persisted block time, using default")
		return DefaultBlockTimeMs
	}
	if !ok {
		return DefaultBlockTimeMs
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		log.Warn().Str("value", raw).Msg("Ignoring invalid persisted block time")
		return DefaultBlockTimeMs
	}
	return Clamp(v)
}

// Estimate emits the current block time in milliseconds.
func (e *Estimator) Estimate() stream.Observable[int64] {
	return e.estimate
}

// Deltas emits a copy of the series every time it changes.
func (e *Estimator) Deltas() stream.Observable[[]int64] {
	return e.deltas
}

func (e *Estimator) Current() int64 {
	v, _ := e.estimate.Value()
	return v
}

// Attach feeds the estimator from a block event stream.
func (e *Estimator) Attach(ctx context.Context, events stream.Observable[remote.Value[model.BlockEvent]]) stream.Subscription {
	return events.Subscribe(func(v remote.Value[model.BlockEvent]) {
		v.Handle(
			func() {},
			func(err error) { log.Debug().Err(err).Msg("Skipping malformed block for block time") },
			func(be model.BlockEvent) { e.Observe(ctx, be) },
		)
	})
}

// Observe pairs be with the previous block. A pair with the seed or a non-positive delta is
// skipped; otherwise the delta is recorded and the estimate recomputed.
func (e *Estimator) Observe(ctx context.Context, be model.BlockEvent) {
	e.mu.Lock()
	prev := e.previous
	if be.Height <= prev.Height && !prev.IsSeed() {
		e.mu.Unlock()
		return
	}
	e.previous = be
	if prev.IsSeed() || be.IsSeed() {
		e.mu.Unlock()
		return
	}
	if !e.series.Append(be.Timestamp - prev.Timestamp) {
		e.mu.Unlock()
		return
	}
	deltas := e.series.Values()
	estimate := Estimate(e.series, e.fallback)
	e.mu.Unlock()

	if err := e.store.Set(ctx, storage.KeyBlockTime, strconv.FormatInt(estimate, 10)); err != nil {
		log.Warn().Err(err).Msg("Could not persist block time")
	}
	log.Debug().Int64("block_time_ms", estimate).Int("samples", len(deltas)).Msg("Block time updated")

	e.deltas.Publish(deltas)
	e.estimate.Publish(estimate)
}
