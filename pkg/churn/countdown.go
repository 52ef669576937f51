package churn

import (
	"math"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/remote"
	"github.com/nodersteam/churn-countdown/pkg/stream"
)

var hundred = decimal.NewFromInt(100)

// Countdown derives the presentation values from the live block height, the next churn
// height, the churn interval and the block time estimate. None of its outputs ever carry an
// error: anything unresolved degrades to zero.
type Countdown struct {
	blockHeight  stream.Observable[remote.Value[int64]]
	nextHeight   *stream.Subject[remote.Value[int64]]
	interval     stream.Observable[int64]
	blocksLeft   *stream.Subject[int64]
	percentLeft  *stream.Subject[float64]
	timeLeft     *stream.Subject[model.HumanTime]
	intervalTime *stream.Subject[model.HumanTime]
	netErrors    *stream.Subject[error]
}

type CountdownInputs struct {
	Types       stream.Observable[Type]
	Interval    stream.Observable[int64]
	Network     stream.Observable[remote.Value[model.NetworkHeights]]
	BlockHeight stream.Observable[remote.Value[int64]]
	BlockTime   stream.Observable[int64]
}

func NewCountdown(in CountdownInputs) *Countdown {
	network := holdLastSuccess(in.Network)
	nodesNext := stream.Map[remote.Value[model.NetworkHeights], remote.Value[int64]](network, func(v remote.Value[model.NetworkHeights]) remote.Value[int64] {
		return remote.Map(v, func(n model.NetworkHeights) int64 { return n.NextChurnHeight })
	})

	poolsNext := poolNextHeight(network, in.BlockHeight)

	nextHeight := stream.SwitchMap(in.Types, func(t Type) stream.Observable[remote.Value[int64]] {
		if t == Pools {
			return poolsNext
		}
		return nodesNext
	})

	blocksLeft := stream.CombineLatest2[remote.Value[int64], remote.Value[int64], int64](in.BlockHeight, nextHeight, BlocksLeft)

	c := &Countdown{
		blockHeight: in.BlockHeight,
		nextHeight:  nextHeight,
		interval:    in.Interval,
		blocksLeft:  blocksLeft,
		percentLeft: stream.CombineLatest2[int64, int64, float64](blocksLeft, in.Interval, PercentLeft),
		timeLeft: stream.CombineLatest2[int64, int64, model.HumanTime](blocksLeft, in.BlockTime, func(blocks, blockTimeMs int64) model.HumanTime {
			return TimeLeft(blocks, blockTimeMs)
		}),
		intervalTime: stream.CombineLatest2[int64, int64, model.HumanTime](in.Interval, in.BlockTime, IntervalTime),
		netErrors: stream.Map(in.Network, func(v remote.Value[model.NetworkHeights]) error {
			return v.Err()
		}),
	}
	return c
}

func (c *Countdown) BlockHeight() stream.Observable[remote.Value[int64]]   { return c.blockHeight }
func (c *Countdown) NextHeight() stream.Observable[remote.Value[int64]]    { return c.nextHeight }
func (c *Countdown) ChurnInterval() stream.Observable[int64]               { return c.interval }
func (c *Countdown) BlocksLeft() stream.Observable[int64]                  { return c.blocksLeft }
func (c *Countdown) PercentLeft() stream.Observable[float64]               { return c.percentLeft }
func (c *Countdown) TimeLeft() stream.Observable[model.HumanTime]          { return c.timeLeft }
func (c *Countdown) ChurnIntervalTime() stream.Observable[model.HumanTime] { return c.intervalTime }
func (c *Countdown) NetworkErrors() stream.Observable[error]               { return c.netErrors }

// BlocksLeft is next-current once both heights are known. Right after a churn the next height
// can briefly lag behind the chain, so negative results are clamped to 0.
func BlocksLeft(current, next remote.Value[int64]) int64 {
	cur, err := current.Get()
	if err != nil {
		return 0
	}
	nxt, err := next.Get()
	if err != nil {
		return 0
	}
	if left := nxt - cur; left > 0 {
		return left
	}
	return 0
}

// PercentLeft is blocksLeft/interval as a percentage, 0 when either is 0.
func PercentLeft(blocksLeft, interval int64) float64 {
	if blocksLeft <= 0 || interval <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(blocksLeft).Div(decimal.NewFromInt(interval)).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return pct.Round(2).InexactFloat64()
}

// TimeLeft is blocks*blockTimeMs as a HumanTime. Products past the range of time.Duration
// saturate instead of wrapping around to zero.
func TimeLeft(blocks, blockTimeMs int64) model.HumanTime {
	if blocks <= 0 || blockTimeMs <= 0 {
		return model.InitialHumanTime
	}
	if maxBlocks := int64(math.MaxInt64/time.Millisecond) / blockTimeMs; blocks > maxBlocks {
		blocks = maxBlocks
	}
	return model.NewHumanTime(time.Duration(blocks*blockTimeMs) * time.Millisecond)
}

// IntervalTime is the duration of a whole churn interval; seconds are dropped.
func IntervalTime(interval, blockTimeMs int64) model.HumanTime {
	h := TimeLeft(interval, blockTimeMs)
	h.Seconds = 0
	return h
}

// holdLastSuccess keeps showing the last good value while a refetch is pending.
func holdLastSuccess[T any](src stream.Observable[remote.Value[T]]) *stream.Subject[remote.Value[T]] {
	out := stream.NewSubject[remote.Value[T]]()
	var (
		mu          sync.Mutex
		haveSuccess bool
	)
	src.Subscribe(func(v remote.Value[T]) {
		mu.Lock()
		defer mu.Unlock()
		if v.IsPending() && haveSuccess {
			return
		}
		if v.IsSuccess() {
			haveSuccess = true
		}
		out.Publish(v)
	})
	return out
}

// poolNextHeight estimates the height of the next pool cycle from the polled activation
// countdown. Each fresh countdown is anchored to the block height current when it arrived (or the
// first one seen after it), so next = anchor + countdown, which equals
// current + countdown - blocks seen since the poll. The anchor is kept in one shared state, fed
// for the whole process lifetime, so it does not depend on when the pools branch is selected.
func poolNextHeight(network stream.Observable[remote.Value[model.NetworkHeights]], height stream.Observable[remote.Value[int64]]) *stream.Subject[remote.Value[int64]] {
	out := stream.NewBehaviorSubject(remote.Pending[int64]())
	st := &poolAnchor{}

	network.Subscribe(func(v remote.Value[model.NetworkHeights]) {
		st.mu.Lock()
		defer st.mu.Unlock()
		st.network = v
		if n, err := v.Get(); err == nil {
			st.countdown = n.PoolActivationCountdown
			st.anchor, st.anchored = st.current, st.hasHeight
		}
		out.Publish(st.value())
	})
	height.Subscribe(func(v remote.Value[int64]) {
		st.mu.Lock()
		defer st.mu.Unlock()
		h, err := v.Get()
		if err != nil {
			return
		}
		st.current, st.hasHeight = h, true
		if st.network.IsSuccess() && !st.anchored {
			st.anchor, st.anchored = h, true
			out.Publish(st.value())
		}
	})
	return out
}

type poolAnchor struct {
	mu        sync.Mutex
	network   remote.Value[model.NetworkHeights]
	countdown int64
	anchor    int64
	anchored  bool
	current   int64
	hasHeight bool
}

func (st *poolAnchor) value() remote.Value[int64] {
	return remote.Match(st.network,
		remote.Pending[int64],
		remote.Failure[int64],
		func(model.NetworkHeights) remote.Value[int64] {
			if !st.anchored {
				return remote.Pending[int64]()
			}
			return remote.Success(st.anchor + st.countdown)
		},
	)
}
