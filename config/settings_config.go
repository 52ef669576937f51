package config

// SettingsConfig is shared by the commands that only read or change persisted settings.
type SettingsConfig struct {
	ConfigFileLocation string
	Log                log
	Storage            Storage
	Redis              RedisConf
}

func (conf *SettingsConfig) Validate() error {
	storageConf, err := validateStorageConf(conf.Storage, conf.Redis)
	if err != nil {
		return err
	}
	conf.Storage = storageConf
	return nil
}

// CheckSuperfluousSettingsKeys accepts every watch key, a shared config file carries them all.
func CheckSuperfluousSettingsKeys(keys []string) []string {
	return CheckSuperfluousWatchKeys(keys)
}
