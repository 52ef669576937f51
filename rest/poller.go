package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog/log"
	"go.uber.org/ratelimit"

	"github.com/nodersteam/churn-countdown/pkg/remote"
	"github.com/nodersteam/churn-countdown/pkg/stream"
)

const (
	DefaultPollInterval = 5 * time.Minute
	DefaultDebounce     = 300 * time.Millisecond
	DefaultTimeout      = 30 * time.Second
)

// FetchObserver is notified about every finished fetch.
type FetchObserver interface {
	ObserveFetch(source string, err error, start time.Time)
}

type PollerOptions struct {
	Client   *http.Client
	Headers  map[string]string
	Debounce time.Duration
	Limiter  ratelimit.Limiter
	Observer FetchObserver
}

// Poller fetches and decodes one JSON endpoint whenever it is kicked, coalescing kicks that
// arrive within the debounce window. Results are published as remote values and the latest one
// is replayed to new subscribers; subscribing never causes a fetch.
type Poller[T any] struct {
	name     string
	url      string
	decode   Decoder[T]
	client   *http.Client
	headers  map[string]string
	debounce time.Duration
	limiter  ratelimit.Limiter
	observer FetchObserver

	kicks  chan struct{}
	values *stream.Subject[remote.Value[T]]
}

func NewPoller[T any](name, url string, decode Decoder[T], opts PollerOptions) *Poller[T] {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewUnlimited()
	}
	return &Poller[T]{
		name:     name,
		url:      url,
		decode:   decode,
		client:   opts.Client,
		headers:  opts.Headers,
		debounce: opts.Debounce,
		limiter:  opts.Limiter,
		observer: opts.Observer,
		kicks:    make(chan struct{}, 1),
		values:   stream.NewBehaviorSubject(remote.Pending[T]()),
	}
}

func (p *Poller[T]) Name() string { return p.name }

func (p *Poller[T]) Values() stream.Observable[remote.Value[T]] {
	return p.values
}

// Latest returns the value most recently published.
func (p *Poller[T]) Latest() remote.Value[T] {
	v, _ := p.values.Value()
	return v
}

// Kick requests a fetch. It never blocks; kicks that pile up before Run picks them up collapse into one.
func (p *Poller[T]) Kick() {
	select {
	case p.kicks <- struct{}{}:
	default:
	}
}

// Watch kicks the poller every time trigger fires.
func (p *Poller[T]) Watch(trigger stream.Observable[uint64]) stream.Subscription {
	return trigger.Subscribe(func(uint64) { p.Kick() })
}

// Schedule registers a recurring kick. gocron runs the first one as soon as the scheduler starts.
func (p *Poller[T]) Schedule(s *gocron.Scheduler, every time.Duration) error {
	_, err := s.Every(every).Tag(p.name).Do(p.Kick)
	return err
}

// Run debounces kicks and fetches until ctx is done.
func (p *Poller[T]) Run(ctx context.Context) error {
	timer := time.NewTimer(p.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.kicks:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(p.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			p.Fetch(ctx)
		}
	}
}

// Fetch runs one cycle synchronously: pending, then success or failure.
func (p *Poller[T]) Fetch(ctx context.Context) remote.Value[T] {
	p.values.Publish(remote.Pending[T]())

	p.limiter.Take()
	start := time.Now()
	result := p.fetch(ctx)
	if p.observer != nil {
		p.observer.ObserveFetch(p.name, result.Err(), start)
	}
	if result.IsFailure() {
		log.Warn().Err(result.Err()).Str("source", p.name).Msg("Fetch failed")
	} else {
		log.Debug().Str("source", p.name).Dur("took", time.Since(start)).Msg("Fetched")
	}

	p.values.Publish(result)
	return result
}

func (p *Poller[T]) fetch(ctx context.Context) remote.Value[T] {
	body, err := Get(ctx, p.client, p.url, p.headers)
	if err != nil {
		return remote.Failure[T](err)
	}
	decoded, err := p.decode(body)
	if err != nil {
		return remote.Failure[T](err)
	}
	return remote.Success(decoded)
}
