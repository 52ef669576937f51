package netcheck

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAddressFromURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"wss://rpc.ninerealms.com/websocket", "rpc.ninerealms.com:443", false},
		{"ws://localhost:27147/websocket", "localhost:27147", false},
		{"http://example.com", "example.com:80", false},
		{"ftp://example.com", "", true},
		{"/websocket", "", true},
	}
	for _, tt := range tests {
		got, err := AddressFromURL(tt.in)
		if tt.wantErr {
			require.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got)
	}
}

func TestProbeTransitions(t *testing.T) {
	var up atomic.Bool
	p := NewProbe("example:1", time.Hour, time.Second).WithDialer(func(ctx context.Context, network, address string) (net.Conn, error) {
		if !up.Load() {
			return nil, errors.New("network unreachable")
		}
		client, server := net.Pipe()
		server.Close()
		return client, nil
	})

	require.True(t, p.Online())
	require.False(t, p.Check(context.Background()))
	require.False(t, p.Online())

	waited := make(chan error, 1)
	go func() { waited <- p.WaitOnline(context.Background()) }()

	select {
	case <-waited:
		t.Fatal("WaitOnline returned while offline")
	case <-time.After(20 * time.Millisecond):
	}

	up.Store(true)
	require.True(t, p.Check(context.Background()))
	select {
	case err := <-waited:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("WaitOnline did not return after coming online")
	}

	// already online returns at once
	require.NoError(t, p.WaitOnline(context.Background()))
}

func TestWaitOnlineHonoursContext(t *testing.T) {
	p := NewProbe("example:1", time.Hour, time.Second).WithDialer(func(context.Context, string, string) (net.Conn, error) {
		return nil, errors.New("down")
	})
	p.Check(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, p.WaitOnline(ctx), context.DeadlineExceeded)
}
