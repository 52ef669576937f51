package blocktime

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/remote"
	"github.com/nodersteam/churn-countdown/pkg/storage"
	"github.com/nodersteam/churn-countdown/pkg/stream"
)

func block(height int64, ts int64) model.BlockEvent {
	return model.BlockEvent{
		Height:    height,
		Time:      time.UnixMilli(ts).UTC().Format(time.RFC3339Nano),
		Timestamp: ts,
	}
}

type EstimatorTestSuite struct {
	suite.Suite
	ctx   context.Context
	store storage.Store
}

func (suite *EstimatorTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = storage.NewMemory()
}

func (suite *EstimatorTestSuite) TestDefaultWhenNothingPersisted() {
	e := NewEstimator(suite.ctx, suite.store, DefaultWindow)
	suite.Require().Equal(int64(5850), e.Current())
}

func (suite *EstimatorTestSuite) TestPersistedValueIsInitialEstimate() {
	suite.Require().NoError(suite.store.Set(suite.ctx, storage.KeyBlockTime, "5900"))
	e := NewEstimator(suite.ctx, suite.store, DefaultWindow)
	suite.Require().Equal(int64(5900), e.Current())
}

func (suite *EstimatorTestSuite) TestInvalidPersistedValueFallsBack() {
	suite.Require().NoError(suite.store.Set(suite.ctx, storage.KeyBlockTime, "fast"))
	e := NewEstimator(suite.ctx, suite.store, DefaultWindow)
	suite.Require().Equal(DefaultBlockTimeMs, e.Current())
}

func (suite *EstimatorTestSuite) TestPersistedValueIsClamped() {
	suite.Require().NoError(suite.store.Set(suite.ctx, storage.KeyBlockTime, "9000"))
	suite.Require().Equal(MaxBlockTimeMs, NewEstimator(suite.ctx, suite.store, DefaultWindow).Current())

	suite.Require().NoError(suite.store.Set(suite.ctx, storage.KeyBlockTime, "1200"))
	suite.Require().Equal(MinBlockTimeMs, NewEstimator(suite.ctx, suite.store, DefaultWindow).Current())
}

func (suite *EstimatorTestSuite) TestSeriesDrivesEstimateAndPersists() {
	e := NewEstimator(suite.ctx, suite.store, DefaultWindow)

	var got []int64
	e.Estimate().Subscribe(func(v int64) { got = append(got, v) })

	e.Observe(suite.ctx, block(100, 1_000_000))
	e.Observe(suite.ctx, block(101, 1_005_600))
	e.Observe(suite.ctx, block(102, 1_011_300))
	e.Observe(suite.ctx, block(103, 1_017_200))

	// initial fallback, then 5600, mean(5600,5700)=5650 -> 5700, mean(5600,5700,5900)=5733 -> 5700
	suite.Require().Equal([]int64{5850, 5600, 5700, 5700}, got)

	raw, ok, err := suite.store.Get(suite.ctx, storage.KeyBlockTime)
	suite.Require().NoError(err)
	suite.Require().True(ok)
	suite.Require().Equal("5700", raw)

	reloaded := NewEstimator(suite.ctx, suite.store, DefaultWindow)
	suite.Require().Equal(int64(5700), reloaded.Current())
}

func (suite *EstimatorTestSuite) TestSkipsSeedAndNonIncreasingBlocks() {
	e := NewEstimator(suite.ctx, suite.store, DefaultWindow)
	var deltas []int64
	e.Deltas().Subscribe(func(v []int64) { deltas = v })

	e.Observe(suite.ctx, model.SeedBlockEvent)
	e.Observe(suite.ctx, block(10, 2_000_000))
	e.Observe(suite.ctx, block(10, 2_000_000)) // duplicate
	e.Observe(suite.ctx, block(9, 1_990_000))  // regression
	suite.Require().Empty(deltas)

	e.Observe(suite.ctx, block(11, 2_006_000))
	suite.Require().Equal([]int64{6000}, deltas)
}

func (suite *EstimatorTestSuite) TestAttachIgnoresFailures() {
	e := NewEstimator(suite.ctx, suite.store, DefaultWindow)
	events := stream.NewSubject[remote.Value[model.BlockEvent]]()
	sub := e.Attach(suite.ctx, events)
	defer sub.Unsubscribe()

	events.Publish(remote.Success(block(1, 3_000_000)))
	events.Publish(remote.Failure[model.BlockEvent](errors.New("bad header")))
	events.Publish(remote.Pending[model.BlockEvent]())
	events.Publish(remote.Success(block(2, 3_005_500)))

	suite.Require().Equal(int64(5500), e.Current())
}

func (suite *EstimatorTestSuite) TestEstimateAlwaysWithinBounds() {
	e := NewEstimator(suite.ctx, suite.store, 50)
	r := rand.New(rand.NewSource(7))
	ts := int64(1_700_000_000_000)
	for h := int64(1); h <= 500; h++ {
		ts += 1 + r.Int63n(20_000)
		e.Observe(suite.ctx, block(h, ts))
		v := e.Current()
		suite.Require().GreaterOrEqual(v, MinBlockTimeMs)
		suite.Require().LessOrEqual(v, MaxBlockTimeMs)
	}
}

func TestEstimatorSuite(t *testing.T) {
	suite.Run(t, new(EstimatorTestSuite))
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name   string
		deltas []int64
		want   int64
	}{
		{"empty uses fallback", nil, 5850},
		{"documented example", []int64{5600, 5700, 5900}, 5700},
		{"rounds half up", []int64{5650}, 5700},
		{"clamps low", []int64{1000, 2000}, 5500},
		{"clamps high", []int64{9000}, 6000},
		{"inside bounds", []int64{5800, 5900}, 5900},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSeries(0)
			for _, d := range tt.deltas {
				s.Append(d)
			}
			require.Equal(t, tt.want, Estimate(s, DefaultBlockTimeMs))
		})
	}
}

func TestSeriesWindow(t *testing.T) {
	s := NewSeries(3)
	require.False(t, s.Append(0))
	require.False(t, s.Append(-5))
	for _, d := range []int64{1, 2, 3, 4} {
		require.True(t, s.Append(d))
	}
	require.Equal(t, []int64{2, 3, 4}, s.Values())
	require.Equal(t, int64(3), s.Mean())

	unbounded := NewSeries(0)
	for i := int64(1); i <= 1000; i++ {
		unbounded.Append(i)
	}
	require.Equal(t, 1000, unbounded.Len())
}
