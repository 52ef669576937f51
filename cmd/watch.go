package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/nodersteam/churn-countdown/config"
	"github.com/nodersteam/churn-countdown/pkg/app"
	"github.com/nodersteam/churn-countdown/pkg/metrics"
	"github.com/nodersteam/churn-countdown/pkg/model"
	"github.com/nodersteam/churn-countdown/pkg/storage"
	"github.com/nodersteam/churn-countdown/pkg/theme"
)

var watchConf = &config.WatchConfig{}

func init() {
	config.SetupLogFlags(&watchConf.Log, watchCmd)
	config.SetupStorageFlags(&watchConf.Storage, watchCmd)
	config.SetupRedisFlags(&watchConf.Redis, watchCmd)
	config.SetupWatchSpecificFlags(watchConf, watchCmd)

	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follows the chain and reports the countdown to the next churn.",
	Long: `Connects to the THORChain websocket for new blocks and polls Midgard and Thornode for the churn
	configuration. Every change of the countdown is logged, and optionally published to redis and exported
	as prometheus metrics. Send SIGHUP to refetch the REST endpoints, SIGUSR1 to toggle between nodes and pools.`,
	PreRunE: setupWatch,
	RunE:    watch,
}

func setupWatch(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, viperConf)

	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}

	if err := watchConf.Validate(); err != nil {
		return err
	}

	if err := setupLogger(watchConf.Log.Level, watchConf.Log.Path, watchConf.Log.Pretty); err != nil {
		return err
	}

	ignoredKeys := config.CheckSuperfluousWatchKeys(viperConf.AllKeys())
	if len(ignoredKeys) > 0 {
		config.Log.Warnf("Warning, the following invalid keys will be ignored: %v", ignoredKeys)
	}

	return nil
}

func appConfig(conf *config.WatchConfig) app.Config {
	return app.Config{
		MidgardURL:        conf.Endpoints.Midgard,
		ThornodeURL:       conf.Endpoints.Thornode,
		WebsocketURL:      conf.Endpoints.Websocket,
		ClientID:          conf.Endpoints.ClientID,
		PollInterval:      conf.Poll.Interval,
		Debounce:          conf.Poll.Debounce,
		RequestsPerSecond: conf.Poll.Rate,
		RetryDelay:        conf.Feed.RetryDelay,
		ProbeInterval:     conf.Feed.ProbeInterval,
		ProbeTimeout:      conf.Feed.ProbeTimeout,
		BlockTimeWindow:   conf.BlockTime.Window,
		MetricsAddr:       conf.Metrics.Addr,
	}
}

func watch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if watchConf.RedisNeeded() {
		rdb = newRedisClient(watchConf.Redis)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			config.Log.Warn("Redis is not reachable yet, every use will retry", err)
		}
	}

	store, err := watchStore(rdb)
	if err != nil {
		return err
	}

	var publisher *redis.Client
	if watchConf.Redis.Publish {
		publisher = rdb
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	state, err := app.New(ctx, appConfig(watchConf), app.Options{
		Store:   store,
		Redis:   publisher,
		Metrics: metrics.New(reg),
	})
	if err != nil {
		store.Close()
		return err
	}
	defer state.Close()

	config.Log.Infof("Display theme: %s", theme.Load(ctx, store))

	sub := state.Snapshots().Subscribe(render)
	defer sub.Unsubscribe()

	go handleSignals(ctx, state)

	return state.Run(ctx)
}

// watchStore shares the redis client with the publisher when settings live in redis too.
func watchStore(rdb *redis.Client) (storage.Store, error) {
	if rdb != nil && watchConf.Storage.Backend == storage.BackendRedis {
		return storage.NewRedis(rdb), nil
	}
	return openStore(watchConf.Storage, watchConf.Redis)
}

// handleSignals maps SIGHUP to a manual refresh and SIGUSR1 to a churn type toggle.
func handleSignals(ctx context.Context, state *app.State) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigs)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				config.Log.Info("Refreshing churn configuration")
				state.Refresh()
			case syscall.SIGUSR1:
				t, err := state.Selector.Toggle(ctx)
				if err != nil {
					config.Log.Error("Could not toggle churn type", err)
					continue
				}
				config.Log.Infof("Now counting down to the next %s churn", t)
			}
		}
	}
}

func render(p model.ChurnProgress) {
	ev := zlog.Info().
		Str("churn_type", p.ChurnType).
		Int64("block_height", p.BlockHeight).
		Int64("blocks_left", p.BlocksLeft).
		Float64("percent_left", p.PercentLeft).
		Stringer("time_left", p.TimeLeft).
		Stringer("interval_time", p.ChurnIntervalTime).
		Int64("block_time_ms", p.BlockTimeMs).
		Stringer("status", p.Status)
	if p.ConfigError != "" {
		ev = ev.Str("config_error", p.ConfigError)
	}
	if p.NetworkError != "" {
		ev = ev.Str("network_error", p.NetworkError)
	}
	ev.Msg("Churn countdown")
}
