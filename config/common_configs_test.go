package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func (suite *ConfigTestSuite) SetupTest() {
	suite.T().Setenv(EnvMidgardURL, "")
	suite.T().Setenv(EnvThornodeURL, "")
	suite.T().Setenv(EnvWebsocketURL, "")
	suite.T().Setenv(EnvClientID, "")
}

func validWatchConfig() WatchConfig {
	return WatchConfig{
		Endpoints: Endpoints{
			Midgard:   "https://midgard.example/v2",
			Thornode:  "https://thornode.example/thorchain",
			Websocket: "wss://rpc.example/websocket",
		},
		Poll:      Poll{Interval: 5 * time.Minute, Debounce: 300 * time.Millisecond, Rate: 5},
		Feed:      Feed{RetryDelay: time.Second, ProbeInterval: 5 * time.Second, ProbeTimeout: 3 * time.Second},
		BlockTime: BlockTime{Window: 600},
		Storage:   Storage{Backend: "memory"},
	}
}

func (suite *ConfigTestSuite) TestValidateEndpointsConf() {
	conf, err := validateEndpointsConf(Endpoints{})
	suite.Require().NoError(err)
	suite.Require().Equal(DefaultMidgardURL, conf.Midgard)
	suite.Require().Equal(DefaultThornodeURL, conf.Thornode)
	suite.Require().Equal(DefaultWebsocketURL, conf.Websocket)
	suite.Require().Equal(DefaultClientID, conf.ClientID)

	_, err = validateEndpointsConf(Endpoints{Midgard: "midgard.example"})
	suite.Require().ErrorContains(err, "endpoints.midgard")

	_, err = validateEndpointsConf(Endpoints{Thornode: "ftp://thornode.example"})
	suite.Require().ErrorContains(err, "endpoints.thornode")

	_, err = validateEndpointsConf(Endpoints{Websocket: "https://rpc.example/websocket"})
	suite.Require().ErrorContains(err, "ws/wss")
}

func (suite *ConfigTestSuite) TestEndpointsFromEnvironment() {
	suite.T().Setenv(EnvMidgardURL, "https://env-midgard.example/v2")
	suite.T().Setenv(EnvThornodeURL, "https://env-thornode.example/thorchain")
	suite.T().Setenv(EnvWebsocketURL, "wss://env-rpc.example/websocket")
	suite.T().Setenv(EnvClientID, "my-dashboard")

	conf, err := validateEndpointsConf(Endpoints{Midgard: "https://flag-midgard.example/v2"})
	suite.Require().NoError(err)
	suite.Require().Equal("https://flag-midgard.example/v2", conf.Midgard)
	suite.Require().Equal("https://env-thornode.example/thorchain", conf.Thornode)
	suite.Require().Equal("wss://env-rpc.example/websocket", conf.Websocket)
	suite.Require().Equal("my-dashboard", conf.ClientID)
}

func (suite *ConfigTestSuite) TestValidatePollAndFeedConf() {
	suite.Require().Error(validatePollConf(Poll{}))
	suite.Require().Error(validatePollConf(Poll{Interval: time.Minute, Rate: -1}))
	suite.Require().NoError(validatePollConf(Poll{Interval: time.Minute}))

	suite.Require().Error(validateFeedConf(Feed{}))
	suite.Require().Error(validateFeedConf(Feed{RetryDelay: time.Second}))
	suite.Require().NoError(validateFeedConf(Feed{RetryDelay: time.Second, ProbeInterval: time.Second, ProbeTimeout: time.Second}))
}

func (suite *ConfigTestSuite) TestValidateStorageConf() {
	conf, err := validateStorageConf(Storage{Backend: "BOLT"}, RedisConf{})
	suite.Require().NoError(err)
	suite.Require().Equal("bolt", conf.Backend)
	suite.Require().True(strings.HasSuffix(conf.Path, filepath.Join(homeDirName, stateFileName)))

	_, err = validateStorageConf(Storage{Backend: "redis"}, RedisConf{})
	suite.Require().Error(err)
	_, err = validateStorageConf(Storage{Backend: "redis"}, RedisConf{Addr: "localhost:6379"})
	suite.Require().NoError(err)

	_, err = validateStorageConf(Storage{Backend: "sqlite"}, RedisConf{})
	suite.Require().Error(err)
}

func (suite *ConfigTestSuite) TestWatchConfigValidate() {
	conf := validWatchConfig()
	suite.Require().NoError(conf.Validate())
	suite.Require().False(conf.RedisNeeded())

	conf.Redis.Publish = true
	suite.Require().Error(conf.Validate())
	conf.Redis.Addr = "localhost:6379"
	suite.Require().NoError(conf.Validate())
	suite.Require().True(conf.RedisNeeded())

	conf.BlockTime.Window = -1
	suite.Require().Error(conf.Validate())
}

func (suite *ConfigTestSuite) TestCheckSuperfluousWatchKeys() {
	keys := []string{"log.level", "endpoints.client-id", "poll.interval", "feed.retry-delay", "blocktime.window",
		"storage.backend", "redis.addr", "redis.publish", "metrics.addr", "base.start-block", "database.host"}
	ignored := CheckSuperfluousWatchKeys(keys)
	suite.Require().Equal([]string{"base.start-block", "database.host"}, ignored)
	suite.Require().Empty(CheckSuperfluousSettingsKeys(keys[:9]))
}

func (suite *ConfigTestSuite) TestSettingsConfigValidate() {
	conf := SettingsConfig{Storage: Storage{Backend: "memory"}}
	suite.Require().NoError(conf.Validate())
	conf.Storage.Backend = "nope"
	suite.Require().Error(conf.Validate())
}

func (suite *ConfigTestSuite) TestParseLogLevel() {
	for _, lvl := range []string{"debug", "INFO", "warn", "error"} {
		suite.Require().Equal(strings.ToLower(lvl), ParseLogLevel(lvl).String())
	}
	suite.Require().Equal("info", ParseLogLevel("verbose").String())
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
