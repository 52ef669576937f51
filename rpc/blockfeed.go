package rpc

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/remote"
	"github.com/nodersteam/churn-countdown/pkg/stream"
)

const (
	DefaultRetryDelay = 1 * time.Second
	writeWait         = 5 * time.Second
)

// Connectivity reports whether the host is online and lets callers wait for it to come back.
type Connectivity interface {
	Online() bool
	WaitOnline(ctx context.Context) error
}

// FeedObserver is told about connection status changes and received blocks.
type FeedObserver interface {
	ObserveStatus(status model.ConnectionStatus)
	ObserveBlock(event model.BlockEvent)
}

type alwaysOnline struct{}

func (alwaysOnline) Online() bool                       { return true }
func (alwaysOnline) WaitOnline(ctx context.Context) error { return ctx.Err() }

type FeedOptions struct {
	Header       http.Header
	RetryDelay   time.Duration
	Connectivity Connectivity
	Dialer       *websocket.Dialer
	Observer     FeedObserver
}

// BlockFeed keeps one websocket subscription to new blocks alive for the life of the process.
type BlockFeed struct {
	url          string
	header       http.Header
	dialer       *websocket.Dialer
	retry        backoff.BackOff
	connectivity Connectivity
	observer     FeedObserver

	mu         sync.Mutex
	lastHeight int64

	events *stream.Subject[remote.Value[model.BlockEvent]]
	status *stream.Subject[model.ConnectionStatus]
}

func NewBlockFeed(url string, opts FeedOptions) *BlockFeed {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = DefaultRetryDelay
	}
	if opts.Connectivity == nil {
		opts.Connectivity = alwaysOnline{}
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	return &BlockFeed{
		url:          url,
		header:       opts.Header,
		dialer:       opts.Dialer,
		retry:        backoff.NewConstantBackOff(opts.RetryDelay),
		connectivity: opts.Connectivity,
		observer:     opts.Observer,
		events:       stream.NewSubject[remote.Value[model.BlockEvent]](),
		status:       stream.NewBehaviorSubject(model.StatusConnecting),
	}
}

// Events replays the most recent block to late subscribers.
func (f *BlockFeed) Events() stream.Observable[remote.Value[model.BlockEvent]] {
	return f.events
}

func (f *BlockFeed) Status() stream.Observable[model.ConnectionStatus] {
	return f.status
}

func (f *BlockFeed) setStatus(s model.ConnectionStatus) {
	if cur, ok := f.status.Value(); ok && cur == s {
		return
	}
	f.status.Publish(s)
	if f.observer != nil {
		f.observer.ObserveStatus(s)
	}
}

// Run connects, and reconnects after every failure, until ctx is done.
func (f *BlockFeed) Run(ctx context.Context) error {
	for {
		f.setStatus(model.StatusConnecting)
		err := f.session(ctx)
		f.setStatus(model.StatusClosed)
		if ctx.Err() != nil {
			return nil
		}
		log.Warn().Err(err).Str("url", f.url).Msg("Block feed disconnected")

		if err := f.waitForRetry(ctx); err != nil {
			return nil
		}
	}
}

func (f *BlockFeed) waitForRetry(ctx context.Context) error {
	if !f.connectivity.Online() {
		log.Info().Msg("Offline, waiting for the network before reconnecting block feed")
		return f.connectivity.WaitOnline(ctx)
	}

	timer := time.NewTimer(f.retry.NextBackOff())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *BlockFeed) session(ctx context.Context) error {
	conn, _, err := f.dialer.DialContext(ctx, f.url, f.header)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.setStatus(model.StatusConnected)
	f.retry.Reset()

	sub, err := subscribeRequest()
	if err != nil {
		return err
	}
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}
	log.Info().Str("url", f.url).Str("query", NewBlockQuery).Msg("Subscribed to new blocks")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			teardown(conn)
		case <-done:
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		f.handle(msg)
	}
}

func teardown(conn *websocket.Conn) {
	unsub, err := unsubscribeRequest()
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(unsub); err != nil {
			log.Debug().Err(err).Msg("Could not send unsubscribe")
		}
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	conn.Close()
}

func (f *BlockFeed) handle(msg []byte) {
	value, ok := decodeMessage(msg)
	if !ok {
		return
	}

	if be, err := value.Get(); err == nil {
		f.mu.Lock()
		regress := be.Height < f.lastHeight
		if !regress {
			f.lastHeight = be.Height
		}
		f.mu.Unlock()
		if regress {
			log.Debug().Int64("height", be.Height).Msg("Dropping block below last seen height")
			return
		}
		if f.observer != nil {
			f.observer.ObserveBlock(be)
		}
	} else if !errors.Is(err, remote.ErrNoValue) {
		log.Warn().Err(err).Msg("Received malformed new block")
	}

	f.events.Publish(value)
}
