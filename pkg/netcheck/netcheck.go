// Package netcheck tells the block feed whether the host currently has network connectivity,
// and lets it wait for the offline to online transition instead of redialing in a loop.
package netcheck

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 3 * time.Second
)

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Probe reports connectivity by periodically opening a TCP connection to a fixed address.
type Probe struct {
	address  string
	interval time.Duration
	timeout  time.Duration
	dial     DialFunc

	mu       sync.Mutex
	online   bool
	onlineCh chan struct{}
}

// NewProbe starts out assuming the host is online until a check says otherwise.
func NewProbe(address string, interval, timeout time.Duration) *Probe {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &net.Dialer{}
	return &Probe{
		address:  address,
		interval: interval,
		timeout:  timeout,
		dial:     d.DialContext,
		online:   true,
		onlineCh: make(chan struct{}),
	}
}

// WithDialer swaps the dial function, mostly for tests.
func (p *Probe) WithDialer(dial DialFunc) *Probe {
	p.dial = dial
	return p
}

func (p *Probe) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// WaitOnline returns once the probe sees the host come back online, or ctx is done.
// It returns immediately if the host is already online.
func (p *Probe) WaitOnline(ctx context.Context) error {
	p.mu.Lock()
	if p.online {
		p.mu.Unlock()
		return nil
	}
	ch := p.onlineCh
	p.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Check dials once and records the result.
func (p *Probe) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dial(ctx, "tcp", p.address)
	if err == nil {
		conn.Close()
	}
	p.set(err == nil)
	return err == nil
}

func (p *Probe) set(online bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.online == online {
		return
	}
	p.online = online
	if online {
		log.Info().Str("address", p.address).Msg("Network is back online")
		close(p.onlineCh)
		p.onlineCh = make(chan struct{})
		return
	}
	log.Warn().Str("address", p.address).Msg("Network appears to be offline")
}

func (p *Probe) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	p.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// AddressFromURL turns ws://, wss://, http:// or https:// URLs into a dialable host:port.
func AddressFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "wss", "https":
			port = "443"
		case "ws", "http":
			port = "80"
		default:
			return "", fmt.Errorf("url %q has no port and unknown scheme %q", raw, u.Scheme)
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
