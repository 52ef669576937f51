package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type recorder[T any] struct {
	mu     sync.Mutex
	values []T
}

func (r *recorder[T]) add(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) all() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

type StreamTestSuite struct {
	suite.Suite
}

func (suite *StreamTestSuite) TestSubjectReplaysLatest() {
	s := NewSubject[int]()
	s.Publish(1)
	s.Publish(2)

	rec := &recorder[int]{}
	sub := s.Subscribe(rec.add)
	suite.Require().Equal([]int{2}, rec.all())

	s.Publish(3)
	sub.Unsubscribe()
	s.Publish(4)
	suite.Require().Equal([]int{2, 3}, rec.all())
	suite.Require().Equal(0, s.Subscribers())
}

func (suite *StreamTestSuite) TestSubjectWithoutValueDoesNotReplay() {
	s := NewSubject[string]()
	rec := &recorder[string]{}
	s.Subscribe(rec.add)
	suite.Require().Empty(rec.all())

	_, ok := s.Value()
	suite.Require().False(ok)
}

func (suite *StreamTestSuite) TestMap() {
	s := NewBehaviorSubject(2)
	doubled := Map[int, int](s, func(v int) int { return v * 2 })

	rec := &recorder[int]{}
	doubled.Subscribe(rec.add)
	s.Publish(5)
	suite.Require().Equal([]int{4, 10}, rec.all())
}

func (suite *StreamTestSuite) TestCombineLatestWaitsForBothSides() {
	a := NewSubject[int]()
	b := NewSubject[int]()
	sum := CombineLatest2[int, int, int](a, b, func(x, y int) int { return x + y })

	rec := &recorder[int]{}
	sum.Subscribe(rec.add)

	a.Publish(1)
	suite.Require().Empty(rec.all())
	b.Publish(10)
	a.Publish(2)
	b.Publish(20)
	suite.Require().Equal([]int{11, 12, 22}, rec.all())
}

func (suite *StreamTestSuite) TestSwitchMapCancelsPreviousBranch() {
	left := NewBehaviorSubject("left-0")
	right := NewBehaviorSubject("right-0")
	selector := NewBehaviorSubject(true)

	out := SwitchMap[bool, string](selector, func(useLeft bool) Observable[string] {
		if useLeft {
			return left
		}
		return right
	})

	rec := &recorder[string]{}
	out.Subscribe(rec.add)

	left.Publish("left-1")
	selector.Publish(false)
	left.Publish("left-2")
	right.Publish("right-1")

	suite.Require().Equal([]string{"left-0", "left-1", "right-0", "right-1"}, rec.all())
	suite.Require().Equal(0, left.Subscribers())
	suite.Require().Equal(1, right.Subscribers())
}

func (suite *StreamTestSuite) TestSwitchMapWaitsForInFlightBranchValue() {
	left := NewBehaviorSubject("left-0")
	right := NewBehaviorSubject("right-0")
	selector := NewBehaviorSubject(true)
	out := SwitchMap[bool, string](selector, func(useLeft bool) Observable[string] {
		if useLeft {
			return left
		}
		return right
	})

	entered := make(chan struct{})
	release := make(chan struct{})
	out.Subscribe(func(v string) {
		if v == "left-1" {
			close(entered)
			<-release
		}
	})

	go left.Publish("left-1")
	<-entered

	switched := make(chan struct{})
	go func() {
		selector.Publish(false)
		close(switched)
	}()

	select {
	case <-switched:
		suite.FailNow("switch completed while the old branch was still publishing")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-switched:
	case <-time.After(time.Second):
		suite.FailNow("switch did not complete")
	}

	v, ok := out.Value()
	suite.Require().True(ok)
	suite.Require().Equal("right-0", v)
	suite.Require().Equal(0, left.Subscribers())
}

func (suite *StreamTestSuite) TestSwitchMapCancelsColdBranchContext() {
	cancelled := make(chan struct{})
	selector := NewBehaviorSubject(1)

	out := SwitchMap[int, int](selector, func(n int) Observable[int] {
		return FromFunc(func(ctx context.Context, emit func(int)) {
			emit(n)
			<-ctx.Done()
			if n == 1 {
				close(cancelled)
			}
		})
	})

	rec := &recorder[int]{}
	out.Subscribe(rec.add)

	suite.Require().Eventually(func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)
	selector.Publish(2)

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		suite.FailNow("first branch was not cancelled")
	}
	suite.Require().Eventually(func() bool { return len(rec.all()) == 2 }, time.Second, 5*time.Millisecond)
	suite.Require().Equal([]int{1, 2}, rec.all())
}

func (suite *StreamTestSuite) TestShareReplayConnectsOnce() {
	var mu sync.Mutex
	runs := 0
	src := FromFunc(func(ctx context.Context, emit func(int)) {
		mu.Lock()
		runs++
		mu.Unlock()
		emit(42)
	})
	shared := ShareReplay(src)

	first := &recorder[int]{}
	shared.Subscribe(first.add)
	suite.Require().Eventually(func() bool { return len(first.all()) == 1 }, time.Second, 5*time.Millisecond)

	second := &recorder[int]{}
	shared.Subscribe(second.add)
	suite.Require().Equal([]int{42}, second.all())

	mu.Lock()
	defer mu.Unlock()
	suite.Require().Equal(1, runs)
}

func (suite *StreamTestSuite) TestDistinctUntilChanged() {
	s := NewSubject[int]()
	d := DistinctUntilChanged[int](s)
	rec := &recorder[int]{}
	d.Subscribe(rec.add)

	for _, v := range []int{1, 1, 2, 2, 1} {
		s.Publish(v)
	}
	suite.Require().Equal([]int{1, 2, 1}, rec.all())
}

func (suite *StreamTestSuite) TestTrigger() {
	tr := NewTrigger()
	rec := &recorder[uint64]{}
	tr.Subscribe(rec.add)
	tr.Trigger()
	tr.Trigger()
	suite.Require().Equal([]uint64{0, 1, 2}, rec.all())
}

func TestStreamSuite(t *testing.T) {
	suite.Run(t, new(StreamTestSuite))
}

func TestFromFuncDropsAfterUnsubscribe(t *testing.T) {
	release := make(chan struct{})
	done := make(chan struct{})
	src := FromFunc(func(ctx context.Context, emit func(int)) {
		defer close(done)
		emit(1)
		<-release
		emit(2)
	})

	rec := &recorder[int]{}
	sub := src.Subscribe(rec.add)
	require.Eventually(t, func() bool { return len(rec.all()) == 1 }, time.Second, 5*time.Millisecond)

	sub.Unsubscribe()
	close(release)
	<-done
	require.Equal(t, []int{1}, rec.all())
}
