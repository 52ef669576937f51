package cmd

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nodersteam/churn-countdown/config"
	"github.com/nodersteam/churn-countdown/pkg/storage"
)

var (
	cfgFile string // config file location to load
	envFile string // dotenv file with endpoint overrides
	rootCmd = &cobra.Command{
		Use:   "churn-countdown",
		Short: "A CLI tool that counts down to the next THORChain churn",
		Long: `churn-countdown follows THORChain blocks over the tendermint websocket and polls Midgard and
		Thornode to estimate how long it takes until the next node churn or pool cycle.`,
		SilenceUsage: true,
	}
	viperConf = viper.New()
)

func GetRootCmd() *cobra.Command {
	return rootCmd
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(getViperConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file location (default is <CWD>/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read for "+config.EnvMidgardURL+" and friends")
}

func getViperConfig() {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("toml")
	} else {
		// Check in current working dir
		pwd, err := os.Getwd()
		if err != nil {
			log.Fatalf("Could not determine current working dir. Err: %v", err)
		}
		configDir := pwd
		if _, err := os.Stat(fmt.Sprintf("%v/config.toml", pwd)); err != nil {
			// file not in current working dir. Check home dir instead
			home, err := os.UserHomeDir()
			if err != nil {
				log.Fatalf("Failed to find user home dir. Err: %v", err)
			}
			configDir = fmt.Sprintf("%s/.churn-countdown", home)
		}
		v.AddConfigPath(configDir)
		v.SetConfigType("toml")
		v.SetConfigName("config")
	}

	var noConfig bool
	err := v.ReadInConfig()
	if err != nil {
		switch {
		case strings.Contains(err.Error(), "Config File \"config\" Not Found"):
			noConfig = true
		case strings.Contains(err.Error(), "incomplete number"):
			log.Fatalf("Failed to read config file %v. This usually means you forgot to wrap a string in quotes.", err)
		default:
			log.Fatalf("Failed to read config file. Err: %v", err)
		}
	}

	if !noConfig {
		log.Println("CFG successfully read from: ", v.ConfigFileUsed())
	}

	viperConf = v
}

// Set config vars from config file not already specified on command line.
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		configName := f.Name

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(configName) {
			val := v.Get(configName)
			err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
			if err != nil {
				log.Fatalf("Failed to bind config file value %v. Err: %v", configName, err)
			}
		}
	})
}

func setupLogger(logLevel string, logPath string, prettyLogging bool) error {
	return config.DoConfigureLogger(logPath, logLevel, prettyLogging)
}

func openStore(storageConf config.Storage, redisConf config.RedisConf) (storage.Store, error) {
	store, err := storage.Open(storage.Options{
		Backend:   storageConf.Backend,
		Path:      storageConf.Path,
		RedisAddr: redisConf.Addr,
		RedisPsw:  redisConf.Psw,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", storageConf.Backend, err)
	}
	return store, nil
}

func newRedisClient(redisConf config.RedisConf) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     redisConf.Addr,
		Password: redisConf.Psw,
	})
}
