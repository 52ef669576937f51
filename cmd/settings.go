package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nodersteam/churn-countdown/config"
)

var settingsConf = &config.SettingsConfig{}

func setupSettingsFlags(cmd *cobra.Command) {
	config.SetupLogFlags(&settingsConf.Log, cmd)
	config.SetupStorageFlags(&settingsConf.Storage, cmd)
	config.SetupRedisFlags(&settingsConf.Redis, cmd)
}

func setupSettings(cmd *cobra.Command, args []string) error {
	bindFlags(cmd, viperConf)

	if err := settingsConf.Validate(); err != nil {
		return err
	}

	if err := setupLogger(settingsConf.Log.Level, settingsConf.Log.Path, settingsConf.Log.Pretty); err != nil {
		return err
	}

	ignoredKeys := config.CheckSuperfluousSettingsKeys(viperConf.AllKeys())
	if len(ignoredKeys) > 0 {
		config.Log.Warnf("Warning, the following invalid keys will be ignored: %v", ignoredKeys)
	}
	return nil
}
