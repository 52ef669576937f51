package app

import (
	"context"
	"sync"
	"time"

	"github.com/nodersteam/churn-countdown/pkg/churn"
	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/remote"
	"github.com/nodersteam/churn-countdown/pkg/stream"
)

// snapshotter folds the individual outputs into one ChurnProgress. A single block moves several
// outputs at once, so changes are coalesced for snapshotDebounce before publishing. The debounce
// loop starts with the first subscriber and is shared by all of them until stop is closed.
type snapshotter struct {
	mu      sync.Mutex
	current model.ChurnProgress
	changed chan struct{}
	stop    chan struct{}
	once    sync.Once
	out     stream.Observable[model.ChurnProgress]
}

func newSnapshotter(o Outputs) *snapshotter {
	s := &snapshotter{
		changed: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	s.out = stream.ShareReplay(stream.FromFunc(s.run))

	watch(s, o.ChurnType, func(p *model.ChurnProgress, t churn.Type) { p.ChurnType = string(t) })
	watch(s, o.BlockHeight, func(p *model.ChurnProgress, v remote.Value[int64]) { p.BlockHeight = v.GetOrElse(0) })
	watch(s, o.BlocksLeft, func(p *model.ChurnProgress, v int64) { p.BlocksLeft = v })
	watch(s, o.PercentLeft, func(p *model.ChurnProgress, v float64) { p.PercentLeft = v })
	watch(s, o.TimeLeft, func(p *model.ChurnProgress, v model.HumanTime) { p.TimeLeft = v })
	watch(s, o.ChurnIntervalTime, func(p *model.ChurnProgress, v model.HumanTime) { p.ChurnIntervalTime = v })
	watch(s, o.ChurnInterval, func(p *model.ChurnProgress, v int64) { p.ChurnInterval = v })
	watch(s, o.BlockTime, func(p *model.ChurnProgress, v int64) { p.BlockTimeMs = v })
	watch(s, o.Status, func(p *model.ChurnProgress, v model.ConnectionStatus) { p.Status = v })
	watch(s, o.ConfigErrors, func(p *model.ChurnProgress, err error) { p.ConfigError = errString(err) })
	watch(s, o.NetworkErrors, func(p *model.ChurnProgress, err error) { p.NetworkError = errString(err) })

	return s
}

func watch[T any](s *snapshotter, src stream.Observable[T], apply func(*model.ChurnProgress, T)) {
	if src == nil {
		return
	}
	src.Subscribe(func(v T) {
		s.mu.Lock()
		apply(&s.current, v)
		s.mu.Unlock()
		select {
		case s.changed <- struct{}{}:
		default:
		}
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (s *snapshotter) snapshot() model.ChurnProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.current
	p.GeneratedAt = time.Now().UTC()
	return p
}

func (s *snapshotter) close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *snapshotter) run(ctx context.Context, emit func(model.ChurnProgress)) {
	timer := time.NewTimer(snapshotDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-s.changed:
			if fire == nil {
				timer.Reset(snapshotDebounce)
				fire = timer.C
			}
		case <-fire:
			fire = nil
			emit(s.snapshot())
		}
	}
}
