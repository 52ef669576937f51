package churn

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/remote"
	"github.com/nodersteam/churn-countdown/pkg/stream"
)

func constants(churn, pool int64) model.Constants {
	return model.Constants{Int64Values: map[string]int64{"ChurnInterval": churn, "PoolCycle": pool}}
}

func TestResolveIntervalFallsBackToConstants(t *testing.T) {
	mimir := remote.Success(model.Mimir{"POOLCYCLE": json.Number("43200")})
	c := remote.Success(constants(51840, 7200))

	require.Equal(t, int64(51840), ResolveInterval(Nodes, mimir, c))
	require.Equal(t, int64(43200), ResolveInterval(Pools, mimir, c))
}

func TestResolveIntervalPrefersMimir(t *testing.T) {
	mimir := remote.Success(model.Mimir{"CHURNINTERVAL": json.Number("43200")})
	require.Equal(t, int64(43200), ResolveInterval(Nodes, mimir, remote.Success(constants(51840, 7200))))
	require.Equal(t, int64(43200), ResolveInterval(Nodes, mimir, remote.Pending[model.Constants]()))
}

func TestResolveIntervalDegradesToZero(t *testing.T) {
	failed := remote.Failure[model.Mimir](errors.New("boom"))
	require.Equal(t, int64(0), ResolveInterval(Nodes, failed, remote.Pending[model.Constants]()))
	require.Equal(t, int64(0), ResolveInterval(Pools, remote.Success(model.Mimir{}), remote.Success(model.Constants{})))
	require.Equal(t, int64(0), ResolveInterval(Nodes, remote.Success(model.Mimir{"CHURNINTERVAL": json.Number("soon")}), remote.Pending[model.Constants]()))
}

func TestResolverFollowsChurnType(t *testing.T) {
	mimir := stream.NewBehaviorSubject(remote.Pending[model.Mimir]())
	consts := stream.NewBehaviorSubject(remote.Pending[model.Constants]())
	r := NewResolver(mimir, consts)

	types := stream.NewBehaviorSubject(Nodes)
	interval := r.Interval(types)

	var got []int64
	interval.Subscribe(func(v int64) { got = append(got, v) })

	consts.Publish(remote.Success(constants(51840, 7200)))
	mimir.Publish(remote.Success(model.Mimir{"POOLCYCLE": json.Number("43200")}))
	types.Publish(Pools)

	require.Equal(t, []int64{0, 51840, 51840, 43200}, got)
}

func TestResolverErrors(t *testing.T) {
	mimir := stream.NewBehaviorSubject(remote.Pending[model.Mimir]())
	consts := stream.NewBehaviorSubject(remote.Pending[model.Constants]())
	r := NewResolver(mimir, consts)

	var last error
	r.Errors().Subscribe(func(err error) { last = err })
	require.NoError(t, last)

	mimir.Publish(remote.Failure[model.Mimir](errors.New("HTTP 503")))
	require.ErrorContains(t, last, "mimir: HTTP 503")

	consts.Publish(remote.Failure[model.Constants](errors.New("timeout")))
	require.ErrorContains(t, last, "constants: timeout")
	require.ErrorContains(t, last, "mimir: HTTP 503")

	mimir.Publish(remote.Success(model.Mimir{}))
	consts.Publish(remote.Success(constants(1, 1)))
	require.NoError(t, last)
}
