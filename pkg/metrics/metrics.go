// Package metrics exports the countdown and the health of its upstreams as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/nodersteam/churn-countdown/pkg/model"
)

const namespace = "churn_countdown"

var statuses = []model.ConnectionStatus{model.StatusConnecting, model.StatusConnected, model.StatusClosed}

type Metrics struct {
	gatherer prometheus.Gatherer

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	feedStatus    *prometheus.GaugeVec
	blocksTotal   prometheus.Counter
	blockHeight   prometheus.Gauge
	blocksLeft    *prometheus.GaugeVec
	percentLeft   *prometheus.GaugeVec
	secondsLeft   *prometheus.GaugeVec
	interval      *prometheus.GaugeVec
	blockTime     prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "fetches_total",
			Help:      "Count of REST fetches by source and outcome.",
		}, []string{"source", "status"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "poller",
			Name:      "fetch_duration_seconds",
			Help:      "Duration of REST fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source", "status"}),
		feedStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "status",
			Help:      "1 for the current websocket status, 0 for the others.",
		}, []string{"status"}),
		blocksTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "blocks_total",
			Help:      "Count of new blocks received on the websocket.",
		}),
		blockHeight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "block_height",
			Help:      "Height of the last received block.",
		}),
		blocksLeft: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "blocks_left",
			Help:      "Blocks until the next churn of the selected type.",
		}, []string{"churn_type"}),
		percentLeft: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "percent_left",
			Help:      "Share of the churn interval still to go.",
		}, []string{"churn_type"}),
		secondsLeft: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seconds_left",
			Help:      "Estimated seconds until the next churn of the selected type.",
		}, []string{"churn_type"}),
		interval: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "interval_blocks",
			Help:      "Configured churn interval in blocks.",
		}, []string{"churn_type"}),
		blockTime: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "block_time_milliseconds",
			Help:      "Estimated average block time.",
		}),
	}
}

func (m *Metrics) ObserveFetch(source string, err error, start time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.fetchTotal.WithLabelValues(source, status).Inc()
	m.fetchDuration.WithLabelValues(source, status).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveStatus(status model.ConnectionStatus) {
	for _, s := range statuses {
		v := 0.0
		if s == status {
			v = 1
		}
		m.feedStatus.WithLabelValues(s.String()).Set(v)
	}
}

func (m *Metrics) ObserveBlock(event model.BlockEvent) {
	m.blocksTotal.Inc()
	m.blockHeight.Set(float64(event.Height))
}

// ObserveProgress exports a snapshot under its churn type label.
func (m *Metrics) ObserveProgress(p model.ChurnProgress) {
	left := time.Duration(p.BlocksLeft*p.BlockTimeMs) * time.Millisecond
	m.blocksLeft.WithLabelValues(p.ChurnType).Set(float64(p.BlocksLeft))
	m.percentLeft.WithLabelValues(p.ChurnType).Set(p.PercentLeft)
	m.secondsLeft.WithLabelValues(p.ChurnType).Set(left.Seconds())
	m.interval.WithLabelValues(p.ChurnType).Set(float64(p.ChurnInterval))
	m.blockTime.Set(float64(p.BlockTimeMs))
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
