package churn

import (
	"errors"
	"fmt"

	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/remote"
	"github.com/nodersteam/churn-countdown/pkg/stream"
)

// Config keys for each churn type in the two config sources.
var (
	mimirKeys = map[Type]string{
		Nodes: "CHURNINTERVAL",
		Pools: "POOLCYCLE",
	}
	constantKeys = map[Type]string{
		Nodes: "ChurnInterval",
		Pools: "PoolCycle",
	}
)

// Resolver turns the mimir (primary) and constants (fallback) sources into one interval per
// churn type. When neither source has a value the interval degrades to 0.
type Resolver struct {
	nodes  *stream.Subject[int64]
	pools  *stream.Subject[int64]
	errors *stream.Subject[error]
}

func NewResolver(mimir stream.Observable[remote.Value[model.Mimir]], constants stream.Observable[remote.Value[model.Constants]]) *Resolver {
	return &Resolver{
		nodes: stream.CombineLatest2(mimir, constants, func(m remote.Value[model.Mimir], c remote.Value[model.Constants]) int64 {
			return ResolveInterval(Nodes, m, c)
		}),
		pools: stream.CombineLatest2(mimir, constants, func(m remote.Value[model.Mimir], c remote.Value[model.Constants]) int64 {
			return ResolveInterval(Pools, m, c)
		}),
		errors: stream.CombineLatest2(mimir, constants, configError),
	}
}

func (r *Resolver) NodesInterval() stream.Observable[int64] { return r.nodes }

func (r *Resolver) PoolsInterval() stream.Observable[int64] { return r.pools }

// Interval follows the selected churn type, dropping the other branch on every switch.
func (r *Resolver) Interval(types stream.Observable[Type]) *stream.Subject[int64] {
	return stream.SwitchMap(types, func(t Type) stream.Observable[int64] {
		if t == Pools {
			return r.PoolsInterval()
		}
		return r.NodesInterval()
	})
}

// Errors emits the combined failure of the config sources, nil when neither has failed.
func (r *Resolver) Errors() stream.Observable[error] { return r.errors }

// ResolveInterval reads the interval for t from mimir, then constants, then gives 0.
func ResolveInterval(t Type, mimir remote.Value[model.Mimir], constants remote.Value[model.Constants]) int64 {
	if v, ok := lookupMimir(mimir, mimirKeys[t]); ok {
		return v
	}
	if v, ok := lookupConstants(constants, constantKeys[t]); ok {
		return v
	}
	return 0
}

func lookupMimir(v remote.Value[model.Mimir], key string) (int64, bool) {
	m, err := v.Get()
	if err != nil {
		return 0, false
	}
	n, ok := m[key]
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

func lookupConstants(v remote.Value[model.Constants], key string) (int64, bool) {
	c, err := v.Get()
	if err != nil {
		return 0, false
	}
	i, ok := c.Int64Values[key]
	if !ok || i < 0 {
		return 0, false
	}
	return i, true
}

func configError(m remote.Value[model.Mimir], c remote.Value[model.Constants]) error {
	var errs []error
	if m.IsFailure() {
		errs = append(errs, fmt.Errorf("mimir: %w", m.Err()))
	}
	if c.IsFailure() {
		errs = append(errs, fmt.Errorf("constants: %w", c.Err()))
	}
	return errors.Join(errs...)
}
