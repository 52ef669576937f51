package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodersteam/churn-countdown/pkg/churn"
)

func init() {
	setupSettingsFlags(churnTypeCmd)
	rootCmd.AddCommand(churnTypeCmd)
}

var churnTypeCmd = &cobra.Command{
	Use:       "churn-type [pools|nodes|toggle]",
	Short:     "Shows or changes which churn the countdown follows.",
	Long:      `Without arguments prints the persisted churn type. With pools or nodes stores that type, toggle flips it.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(churn.Pools), string(churn.Nodes), "toggle"},
	PreRunE:   setupSettings,
	RunE:      churnType,
}

func churnType(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore(settingsConf.Storage, settingsConf.Redis)
	if err != nil {
		return err
	}
	defer store.Close()

	selector := churn.NewSelector(ctx, store)
	current := selector.Current()
	switch {
	case len(args) == 0:
	case args[0] == "toggle":
		if current, err = selector.Toggle(ctx); err != nil {
			return err
		}
	default:
		t, err := churn.ParseType(args[0])
		if err != nil {
			return err
		}
		if err = selector.Set(ctx, t); err != nil {
			return err
		}
		current = t
	}

	fmt.Fprintln(cmd.OutOrStdout(), current)
	return nil
}
