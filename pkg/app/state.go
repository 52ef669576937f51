// Package app wires the countdown pipeline together. A State owns every component; nothing in
// the pipeline is a package-level singleton.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"

	"github.com/nodersteam/churn-countdown/pkg/blocktime"
	"github.com/nodersteam/churn-countdown/pkg/churn"
	"github.com/nodersteam/churn-countdown/pkg/consumer"
	"github.com/nodersteam/churn-countdown/pkg/metrics"
	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/netcheck"
	"github.com/nodersteam/churn-countdown/pkg/remote"
	"github.com/nodersteam/churn-countdown/pkg/repository"
	"github.com/nodersteam/churn-countdown/pkg/storage"
	"github.com/nodersteam/churn-countdown/pkg/stream"
	"github.com/nodersteam/churn-countdown/rest"
	"github.com/nodersteam/churn-countdown/rpc"
)

const (
	cacheQueueSize   = 64
	snapshotDebounce = 100 * time.Millisecond
)

var ErrMissingStore = errors.New("a storage backend is required")

// Config carries the resolved settings the pipeline needs.
type Config struct {
	MidgardURL   string
	ThornodeURL  string
	WebsocketURL string
	ClientID     string

	PollInterval      time.Duration
	Debounce          time.Duration
	RequestsPerSecond int

	RetryDelay    time.Duration
	ProbeInterval time.Duration
	ProbeTimeout  time.Duration

	BlockTimeWindow int

	MetricsAddr string
}

// Options holds the collaborators built outside of the pipeline. Store is required.
type Options struct {
	Store        storage.Store
	Redis        *redis.Client
	Metrics      *metrics.Metrics
	HTTPClient   *http.Client
	Dialer       *websocket.Dialer
	Connectivity rpc.Connectivity
}

// Outputs are the observables a presentation layer renders.
type Outputs struct {
	BlockHeight       stream.Observable[remote.Value[int64]]
	BlocksLeft        stream.Observable[int64]
	PercentLeft       stream.Observable[float64]
	TimeLeft          stream.Observable[model.HumanTime]
	ChurnIntervalTime stream.Observable[model.HumanTime]
	ChurnInterval     stream.Observable[int64]
	BlockTime         stream.Observable[int64]
	Status            stream.Observable[model.ConnectionStatus]
	ChurnType         stream.Observable[churn.Type]
	ConfigErrors      stream.Observable[error]
	NetworkErrors     stream.Observable[error]
}

type State struct {
	cfg     Config
	store   storage.Store
	metrics *metrics.Metrics

	Selector  *churn.Selector
	Trigger   *stream.Trigger
	Mimir     *rest.Poller[model.Mimir]
	Constants *rest.Poller[model.Constants]
	Network   *rest.Poller[model.NetworkHeights]
	Feed      *rpc.BlockFeed
	Estimator *blocktime.Estimator
	Resolver  *churn.Resolver
	Countdown *churn.Countdown

	probe       *netcheck.Probe
	blockHeight *stream.Subject[remote.Value[int64]]
	outputs     Outputs
	snapshots   *snapshotter

	cache      *repository.Cache
	blocksCh   chan model.BlockEvent
	progressCh chan *model.ChurnProgress
}

// New builds the whole pipeline. Nothing talks to the network until Run.
func New(ctx context.Context, cfg Config, opts Options) (*State, error) {
	if opts.Store == nil {
		return nil, ErrMissingStore
	}

	s := &State{
		cfg:     cfg,
		store:   opts.Store,
		metrics: opts.Metrics,
		Trigger: stream.NewTrigger(),
	}

	connectivity := opts.Connectivity
	if connectivity == nil {
		addr, err := netcheck.AddressFromURL(cfg.WebsocketURL)
		if err != nil {
			return nil, fmt.Errorf("websocket url: %w", err)
		}
		s.probe = netcheck.NewProbe(addr, cfg.ProbeInterval, cfg.ProbeTimeout)
		connectivity = s.probe
	}

	pollerOpts := rest.PollerOptions{
		Client:   opts.HTTPClient,
		Headers:  map[string]string{rest.ClientIDHeader: cfg.ClientID},
		Debounce: cfg.Debounce,
		Limiter:  newLimiter(cfg.RequestsPerSecond),
	}
	feedOpts := rpc.FeedOptions{
		Header:       http.Header{},
		RetryDelay:   cfg.RetryDelay,
		Connectivity: connectivity,
		Dialer:       opts.Dialer,
	}
	if cfg.ClientID != "" {
		feedOpts.Header.Set(rest.ClientIDHeader, cfg.ClientID)
	}
	if opts.Metrics != nil {
		pollerOpts.Observer = opts.Metrics
		feedOpts.Observer = opts.Metrics
	}

	s.Mimir = rest.NewPoller[model.Mimir]("mimir", rest.EndpointURL(cfg.ThornodeURL, "mimir"), rest.DecodeMimir, pollerOpts)
	s.Constants = rest.NewPoller[model.Constants]("constants", rest.EndpointURL(cfg.MidgardURL, "constants"), rest.DecodeConstants, pollerOpts)
	s.Network = rest.NewPoller[model.NetworkHeights]("network", rest.EndpointURL(cfg.MidgardURL, "network"), rest.DecodeNetwork, pollerOpts)
	s.Mimir.Watch(s.Trigger)
	s.Constants.Watch(s.Trigger)
	s.Network.Watch(s.Trigger)

	s.Feed = rpc.NewBlockFeed(cfg.WebsocketURL, feedOpts)
	s.blockHeight = stream.NewBehaviorSubject(remote.Pending[int64]())
	s.Feed.Events().Subscribe(func(v remote.Value[model.BlockEvent]) {
		s.blockHeight.Publish(remote.Map(v, func(be model.BlockEvent) int64 { return be.Height }))
	})

	s.Selector = churn.NewSelector(ctx, s.store)
	types := stream.DistinctUntilChanged[churn.Type](s.Selector.Types())
	s.Estimator = blocktime.NewEstimator(ctx, s.store, cfg.BlockTimeWindow)
	s.Estimator.Attach(ctx, s.Feed.Events())

	s.Resolver = churn.NewResolver(s.Mimir.Values(), s.Constants.Values())
	interval := s.Resolver.Interval(types)
	s.Countdown = churn.NewCountdown(churn.CountdownInputs{
		Types:       types,
		Interval:    interval,
		Network:     s.Network.Values(),
		BlockHeight: s.blockHeight,
		BlockTime:   s.Estimator.Estimate(),
	})

	s.outputs = Outputs{
		BlockHeight:       s.blockHeight,
		BlocksLeft:        s.Countdown.BlocksLeft(),
		PercentLeft:       s.Countdown.PercentLeft(),
		TimeLeft:          s.Countdown.TimeLeft(),
		ChurnIntervalTime: s.Countdown.ChurnIntervalTime(),
		ChurnInterval:     interval,
		BlockTime:         s.Estimator.Estimate(),
		Status:            s.Feed.Status(),
		ChurnType:         types,
		ConfigErrors:      s.Resolver.Errors(),
		NetworkErrors:     s.Countdown.NetworkErrors(),
	}
	s.snapshots = newSnapshotter(s.outputs)

	if opts.Redis != nil {
		s.cache = repository.NewCache(opts.Redis)
		s.blocksCh = make(chan model.BlockEvent, cacheQueueSize)
		s.progressCh = make(chan *model.ChurnProgress, cacheQueueSize)
	}

	return s, nil
}

type poller interface {
	Name() string
	Schedule(s *gocron.Scheduler, every time.Duration) error
	Run(ctx context.Context) error
}

func newLimiter(rps int) ratelimit.Limiter {
	if rps <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(rps)
}

func (s *State) Outputs() Outputs {
	return s.outputs
}

// Snapshots emits the combined view, coalescing bursts of changes caused by a single block.
func (s *State) Snapshots() stream.Observable[model.ChurnProgress] {
	return s.snapshots.out
}

// Refresh forces every poller to refetch.
func (s *State) Refresh() {
	s.Trigger.Trigger()
}

// Run starts every background component and blocks until ctx is done or one of them fails.
func (s *State) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	scheduler := gocron.NewScheduler(time.UTC)
	interval := s.cfg.PollInterval
	if interval <= 0 {
		interval = rest.DefaultPollInterval
	}
	pollers := []poller{s.Mimir, s.Constants, s.Network}
	for _, p := range pollers {
		if err := p.Schedule(scheduler, interval); err != nil {
			return fmt.Errorf("schedule %s poller: %w", p.Name(), err)
		}
	}

	for _, p := range pollers {
		g.Go(func() error { return p.Run(ctx) })
	}

	g.Go(func() error { return s.Feed.Run(ctx) })
	if s.probe != nil {
		g.Go(func() error { return s.probe.Run(ctx) })
	}

	if s.metrics != nil {
		s.snapshots.out.Subscribe(s.metrics.ObserveProgress)
		if s.cfg.MetricsAddr != "" {
			g.Go(func() error { return s.metrics.Serve(ctx, s.cfg.MetricsAddr) })
		}
	}

	if s.cache != nil {
		s.startCache(ctx, g)
	}

	scheduler.StartAsync()
	defer scheduler.Stop()
	log.Info().
		Str("midgard", s.cfg.MidgardURL).
		Str("thornode", s.cfg.ThornodeURL).
		Str("websocket", s.cfg.WebsocketURL).
		Str("churn_type", string(s.Selector.Current())).
		Msg("Churn countdown started")

	return g.Wait()
}

func (s *State) startCache(ctx context.Context, g *errgroup.Group) {
	c := consumer.NewCacheConsumer(s.cache, s.cache, s.blocksCh, s.progressCh)
	g.Go(func() error { return c.RunBlocks(ctx) })
	g.Go(func() error { return c.RunProgress(ctx) })

	s.Feed.Events().Subscribe(func(v remote.Value[model.BlockEvent]) {
		if be, err := v.Get(); err == nil {
			enqueue(s.blocksCh, be, "block")
		}
	})
	s.snapshots.out.Subscribe(func(p model.ChurnProgress) {
		enqueue(s.progressCh, &p, "churn progress")
	})
}

// enqueue never blocks a stream callback; a slow redis loses items instead.
func enqueue[T any](ch chan T, v T, what string) {
	select {
	case ch <- v:
	default:
		log.Warn().Msgf("Cache queue full, dropping %s", what)
	}
}

// Close stops the snapshot loop and releases the store.
func (s *State) Close() error {
	s.snapshots.close()
	return s.store.Close()
}
