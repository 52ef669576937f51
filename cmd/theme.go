package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodersteam/churn-countdown/pkg/theme"
)

func init() {
	setupSettingsFlags(themeCmd)
	rootCmd.AddCommand(themeCmd)
}

var themeCmd = &cobra.Command{
	Use:       "theme [dark|light]",
	Short:     "Shows or changes the persisted display theme.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(theme.Dark), string(theme.Light)},
	PreRunE:   setupSettings,
	RunE:      updateTheme,
}

func updateTheme(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore(settingsConf.Storage, settingsConf.Redis)
	if err != nil {
		return err
	}
	defer store.Close()

	current := theme.Load(ctx, store)
	if len(args) == 1 {
		if current, err = theme.Parse(args[0]); err != nil {
			return err
		}
		if err = theme.Update(ctx, store, current); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), current)
	return nil
}
