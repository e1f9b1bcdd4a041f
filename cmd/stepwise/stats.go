package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stepwise-app/stepwise/internal/tui"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your progress across all tasks",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := a.db.Stats(cmd.Context(), a.userID())
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), tui.NewStatsView(*stats).View())
	return nil
}
