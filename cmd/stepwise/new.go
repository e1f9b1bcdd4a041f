package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stepwise-app/stepwise/internal/creator"
	"github.com/stepwise-app/stepwise/internal/tui"
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Plan a new task interactively",
	Long: `Open the interactive task creator.

Type what you need to get done (plus optional notes, step count, total
minutes and due date), review the AI's steps, adjust them and save.`,
	RunE: runNew,
}

func runNew(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	req, err := a.requester(ctx)
	if err != nil {
		return err
	}

	userID := a.userID()
	profile, err := a.db.GetProfile(ctx, userID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	session := creator.New(req, a.db, userID,
		creator.WithLogger(a.logs.For("creator")),
		creator.WithProfile(profile),
	)
	program, view := tui.NewProgram(ctx, session)
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run creator: %w", err)
	}

	for _, id := range view.SavedTaskIDs() {
		printStatus(cmd, "✓", "Saved task "+id, color.FgGreen)
	}
	return nil
}
