package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nodersteam/churn-countdown/pkg/blocktime"
	"github.com/nodersteam/churn-countdown/pkg/netcheck"
	"github.com/nodersteam/churn-countdown/pkg/storage"
	"github.com/nodersteam/churn-countdown/rest"
	"github.com/nodersteam/churn-countdown/rpc"
	"github.com/nodersteam/churn-countdown/util"
)

// Production endpoints used when neither flags, config file nor environment name one.
const (
	DefaultMidgardURL   = "https://midgard.ninerealms.com/v2"
	DefaultThornodeURL  = "https://thornode.ninerealms.com/thorchain"
	DefaultWebsocketURL = "wss://rpc.ninerealms.com/websocket"
	DefaultClientID     = "churn-countdown"
)

const (
	homeDirName     = ".churn-countdown"
	stateFileName   = "state.db"
)

// These configs are used across multiple commands, and are not specific to a single command
type log struct {
	Level  string
	Path   string
	Pretty bool
}

type Storage struct {
	Backend string
	Path    string
}

type RedisConf struct {
	Addr    string `mapstructure:"addr"`
	Psw     string `mapstructure:"psw"`
	Publish bool   `mapstructure:"publish"`
}

type Endpoints struct {
	Midgard   string
	Thornode  string
	Websocket string
	ClientID  string `mapstructure:"client-id"`
}

type Poll struct {
	Interval time.Duration
	Debounce time.Duration
	Rate     int
}

type Feed struct {
	RetryDelay    time.Duration `mapstructure:"retry-delay"`
	ProbeInterval time.Duration `mapstructure:"probe-interval"`
	ProbeTimeout  time.Duration `mapstructure:"probe-timeout"`
}

type BlockTime struct {
	Window int
}

type Metrics struct {
	Addr string
}

func SetupLogFlags(logConf *log, cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&logConf.Level, "log.level", "info", "log level")
	cmd.PersistentFlags().BoolVar(&logConf.Pretty, "log.pretty", false, "pretty logs")
	cmd.PersistentFlags().StringVar(&logConf.Path, "log.path", "", "log path (default is stdout only)")
}

func SetupStorageFlags(storageConf *Storage, cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&storageConf.Backend, "storage.backend", storage.BackendBolt, "where settings are persisted (bolt, redis or memory)")
	cmd.PersistentFlags().StringVar(&storageConf.Path, "storage.path", "", "bolt database file (default is $HOME/.churn-countdown/state.db)")
}

func SetupRedisFlags(redisConf *RedisConf, cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&redisConf.Addr, "redis.addr", "", "redis address")
	cmd.PersistentFlags().StringVar(&redisConf.Psw, "redis.psw", "", "redis password")
	cmd.PersistentFlags().BoolVar(&redisConf.Publish, "redis.publish", false, "publish blocks and countdown snapshots to redis")
}

func SetupEndpointFlags(endpointsConf *Endpoints, cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&endpointsConf.Midgard, "endpoints.midgard", "", "midgard api url (env "+EnvMidgardURL+", default "+DefaultMidgardURL+")")
	cmd.PersistentFlags().StringVar(&endpointsConf.Thornode, "endpoints.thornode", "", "thornode api url (env "+EnvThornodeURL+", default "+DefaultThornodeURL+")")
	cmd.PersistentFlags().StringVar(&endpointsConf.Websocket, "endpoints.websocket", "", "tendermint websocket url (env "+EnvWebsocketURL+", default "+DefaultWebsocketURL+")")
	cmd.PersistentFlags().StringVar(&endpointsConf.ClientID, "endpoints.client-id", "", "value of the x-client-id header (env "+EnvClientID+", default "+DefaultClientID+")")
}

func SetupPollFlags(pollConf *Poll, cmd *cobra.Command) {
	cmd.PersistentFlags().DurationVar(&pollConf.Interval, "poll.interval", rest.DefaultPollInterval, "how often the REST endpoints are refetched")
	cmd.PersistentFlags().DurationVar(&pollConf.Debounce, "poll.debounce", rest.DefaultDebounce, "window in which refetch requests are coalesced")
	cmd.PersistentFlags().IntVar(&pollConf.Rate, "poll.rate", 5, "max REST requests per second (0 disables the limit)")
}

func SetupFeedFlags(feedConf *Feed, cmd *cobra.Command) {
	cmd.PersistentFlags().DurationVar(&feedConf.RetryDelay, "feed.retry-delay", rpc.DefaultRetryDelay, "delay before the websocket reconnects")
	cmd.PersistentFlags().DurationVar(&feedConf.ProbeInterval, "feed.probe-interval", netcheck.DefaultInterval, "how often connectivity is checked")
	cmd.PersistentFlags().DurationVar(&feedConf.ProbeTimeout, "feed.probe-timeout", netcheck.DefaultTimeout, "connectivity check dial timeout")
}

func SetupBlockTimeFlags(blockTimeConf *BlockTime, cmd *cobra.Command) {
	cmd.PersistentFlags().IntVar(&blockTimeConf.Window, "blocktime.window", blocktime.DefaultWindow, "block intervals kept for the average (0 keeps all)")
}

func SetupMetricsFlags(metricsConf *Metrics, cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&metricsConf.Addr, "metrics.addr", "", "serve prometheus metrics on this address (disabled when empty)")
}

// applyEndpointEnv fills endpoints left unset by flags and config file from the environment,
// then from the production defaults.
func applyEndpointEnv(conf Endpoints) Endpoints {
	conf.Midgard = firstSet(conf.Midgard, util.EnvOrDefault(EnvMidgardURL, DefaultMidgardURL))
	conf.Thornode = firstSet(conf.Thornode, util.EnvOrDefault(EnvThornodeURL, DefaultThornodeURL))
	conf.Websocket = firstSet(conf.Websocket, util.EnvOrDefault(EnvWebsocketURL, DefaultWebsocketURL))
	conf.ClientID = firstSet(conf.ClientID, util.EnvOrDefault(EnvClientID, DefaultClientID))
	return conf
}

func firstSet(values ...string) string {
	for _, v := range values {
		if !util.StrNotSet(v) {
			return v
		}
	}
	return ""
}

func validateEndpointsConf(conf Endpoints) (Endpoints, error) {
	conf = applyEndpointEnv(conf)
	if err := validateURL("endpoints.midgard", conf.Midgard, "http", "https"); err != nil {
		return conf, err
	}
	if err := validateURL("endpoints.thornode", conf.Thornode, "http", "https"); err != nil {
		return conf, err
	}
	if err := validateURL("endpoints.websocket", conf.Websocket, "ws", "wss"); err != nil {
		return conf, err
	}
	return conf, nil
}

func validateURL(name, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid url: %w", name, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s url, got %q", name, strings.Join(schemes, "/"), raw)
}

func validatePollConf(conf Poll) error {
	if conf.Interval <= 0 {
		return errors.New("poll.interval must be positive")
	}
	if conf.Debounce < 0 {
		return errors.New("poll.debounce must be a positive duration or 0")
	}
	if conf.Rate < 0 {
		return errors.New("poll.rate must be a positive number or 0")
	}
	return nil
}

func validateFeedConf(conf Feed) error {
	if conf.RetryDelay <= 0 {
		return errors.New("feed.retry-delay must be positive")
	}
	if conf.ProbeInterval <= 0 || conf.ProbeTimeout <= 0 {
		return errors.New("feed.probe-interval and feed.probe-timeout must be positive")
	}
	return nil
}

func validateStorageConf(conf Storage, redisConf RedisConf) (Storage, error) {
	conf.Backend = strings.ToLower(conf.Backend)
	switch conf.Backend {
	case storage.BackendBolt:
		if util.StrNotSet(conf.Path) {
			home, err := os.UserHomeDir()
			if err != nil {
				return conf, fmt.Errorf("storage.path not set and home dir unknown: %w", err)
			}
			conf.Path = filepath.Join(home, homeDirName, stateFileName)
		}
	case storage.BackendRedis:
		if util.StrNotSet(redisConf.Addr) {
			return conf, errors.New("redis.addr must be set when storage.backend is redis")
		}
	case storage.BackendMemory:
	default:
		return conf, fmt.Errorf("storage.backend must be one of %s, %s or %s", storage.BackendBolt, storage.BackendRedis, storage.BackendMemory)
	}
	return conf, nil
}

// Reads the Viper mapstructure tag to get the valid keys for a given config struct
func getValidConfigKeys(section any, baseName string) (keys []string) {
	v := reflect.ValueOf(section)
	typeOfS := v.Type()

	if baseName == "" {
		baseName = strings.ToLower(typeOfS.Name())
	}

	for i := 0; i < v.NumField(); i++ {
		field := typeOfS.Field(i)

		// embedded config sections are registered on their own
		if !strings.HasPrefix(field.Type.String(), "config.") {
			name := field.Tag.Get("mapstructure")
			if name == "" {
				name = field.Name
			}

			key := fmt.Sprintf("%v.%v", baseName, strings.ReplaceAll(strings.ToLower(name), " ", ""))
			keys = append(keys, key)
		}
	}
	return
}

func addConfigKeys(validKeys map[string]struct{}, section any, baseName string) {
	for _, key := range getValidConfigKeys(section, baseName) {
		validKeys[key] = struct{}{}
	}
}

func superfluousKeys(keys []string, validKeys map[string]struct{}) []string {
	ignoredKeys := make([]string, 0)
	for _, key := range keys {
		if _, ok := validKeys[key]; !ok {
			ignoredKeys = append(ignoredKeys, key)
		}
	}
	return ignoredKeys
}
