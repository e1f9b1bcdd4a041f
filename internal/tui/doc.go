// Package tui provides the terminal user interface for Stepwise.
//
// The interactive part is App, a bubbletea model that drives one
// creator.Creator session: the user types a title and optional hints, the AI
// proposes steps, and the user adjusts difficulty and minutes, breaks steps
// down further and saves. Every session rule lives in the creator; App only
// tracks the cursor and renders.
//
// Usage:
//
//	session := creator.New(requester, store, userID)
//	program, app := tui.NewProgram(ctx, session)
//	if _, err := program.Run(); err != nil {
//	    return err
//	}
//	fmt.Println(app.SavedTaskIDs())
//
// RenderTask, RenderTaskList and StatsView produce static output for the
// non-interactive commands.
package tui
