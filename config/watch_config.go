package config

import (
	"errors"

	"github.com/spf13/cobra"
)

type WatchConfig struct {
	ConfigFileLocation string
	Log                log
	Endpoints          Endpoints
	Poll               Poll
	Feed               Feed
	BlockTime          BlockTime
	Storage            Storage
	Redis              RedisConf
	Metrics            Metrics
}

func SetupWatchSpecificFlags(conf *WatchConfig, cmd *cobra.Command) {
	SetupEndpointFlags(&conf.Endpoints, cmd)
	SetupPollFlags(&conf.Poll, cmd)
	SetupFeedFlags(&conf.Feed, cmd)
	SetupBlockTimeFlags(&conf.BlockTime, cmd)
	SetupMetricsFlags(&conf.Metrics, cmd)
}

func (conf *WatchConfig) Validate() error {
	endpoints, err := validateEndpointsConf(conf.Endpoints)
	if err != nil {
		return err
	}
	conf.Endpoints = endpoints

	if err = validatePollConf(conf.Poll); err != nil {
		return err
	}

	if err = validateFeedConf(conf.Feed); err != nil {
		return err
	}

	if conf.BlockTime.Window < 0 {
		return errors.New("blocktime.window must be a positive number or 0")
	}

	storageConf, err := validateStorageConf(conf.Storage, conf.Redis)
	if err != nil {
		return err
	}
	conf.Storage = storageConf

	if conf.Redis.Publish && conf.Redis.Addr == "" {
		return errors.New("redis.addr must be set when redis.publish is enabled")
	}

	return nil
}

// RedisNeeded reports whether any enabled feature talks to redis.
func (conf *WatchConfig) RedisNeeded() bool {
	return conf.Redis.Publish || conf.Storage.Backend == "redis"
}

func CheckSuperfluousWatchKeys(keys []string) []string {
	validKeys := make(map[string]struct{})

	addConfigKeys(validKeys, log{}, "")
	addConfigKeys(validKeys, Endpoints{}, "")
	addConfigKeys(validKeys, Poll{}, "")
	addConfigKeys(validKeys, Feed{}, "")
	addConfigKeys(validKeys, BlockTime{}, "")
	addConfigKeys(validKeys, Storage{}, "")
	addConfigKeys(validKeys, RedisConf{}, "redis")
	addConfigKeys(validKeys, Metrics{}, "")

	return superfluousKeys(keys, validKeys)
}
