package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stepwise-app/stepwise/internal/creator"
	"github.com/stepwise-app/stepwise/internal/decompose"
	"github.com/stepwise-app/stepwise/internal/estimate"
	"github.com/stepwise-app/stepwise/internal/tree"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// AnalyzeDoneMsg reports the end of the first decomposition.
type AnalyzeDoneMsg struct {
	Err error
}

// DecomposeDoneMsg reports the end of one node's decomposition.
type DecomposeDoneMsg struct {
	ID    string
	Title string
	Err   error
}

// DecomposeAllDoneMsg reports the end of a batch decomposition.
type DecomposeAllDoneMsg struct {
	Requested int
	Errs      map[string]error
}

// SavedMsg reports the end of a save.
type SavedMsg struct {
	TaskID string
	Err    error
}

var (
	labelStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	focusedLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	cursorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	busyStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	totalStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	titleStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)

	difficultyStyles = map[models.Difficulty]lipgloss.Style{
		models.DifficultyEasy:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		models.DifficultyMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		models.DifficultyHard:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

// App is the bubbletea model for creating one task interactively.
// All session state lives in the creator; the app only tracks the cursor
// and what to show.
type App struct {
	ctx     context.Context
	session *creator.Creator

	header  *Header
	input   *InputField
	footer  *Footer
	spinner spinner.Model

	cursor   int
	savedIDs []string
	width    int
	height   int
	quitting bool
}

// NewApp creates an App driving the given session.
func NewApp(ctx context.Context, session *creator.Creator) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = busyStyle

	return &App{
		ctx:     ctx,
		session: session,
		header:  NewHeader(),
		input:   NewInputField(),
		footer:  NewFooter(),
		spinner: sp,
	}
}

// SavedTaskIDs returns the ids of every task saved during this run.
func (a *App) SavedTaskIDs() []string {
	return a.savedIDs
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.input.Focus(), a.spinner.Tick)
}

func (a *App) analyzeCmd(in creator.TaskInput) tea.Cmd {
	return func() tea.Msg {
		return AnalyzeDoneMsg{Err: a.session.Analyze(a.ctx, in)}
	}
}

func (a *App) decomposeCmd(n models.Node) tea.Cmd {
	return func() tea.Msg {
		return DecomposeDoneMsg{ID: n.TempID, Title: n.Title, Err: a.session.Decompose(a.ctx, n.TempID)}
	}
}

func (a *App) saveCmd() tea.Cmd {
	return func() tea.Msg {
		id, err := a.session.Save(a.ctx)
		return SavedMsg{TaskID: id, Err: err}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.header.SetWidth(msg.Width)
		a.input.SetWidth(msg.Width)
		a.footer.SetWidth(msg.Width)
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		return a.handleKey(msg)

	case TaskSubmittedMsg:
		a.footer.ClearMessage()
		a.input.Blur()
		return a, a.analyzeCmd(msg.Input)

	case FormErrorMsg:
		a.footer.SetMessage(describe(msg.Err), true)
		return a, nil

	case AnalyzeDoneMsg:
		switch {
		case msg.Err == nil:
			a.cursor = 0
			a.footer.ClearMessage()
		case errors.Is(msg.Err, creator.ErrSessionReset):
		default:
			a.input.SetInput(a.session.Input())
			a.footer.SetMessage(describe(msg.Err), true)
			return a, a.input.Focus()
		}
		return a, nil

	case DecomposeDoneMsg:
		switch {
		case msg.Err == nil:
			a.footer.SetMessage(fmt.Sprintf("Broke down %q", msg.Title), false)
		case errors.Is(msg.Err, creator.ErrSessionReset), errors.Is(msg.Err, tree.ErrNodeNotFound):
			// Superseded by a restart or an ancestor's decomposition.
		default:
			a.footer.SetMessage(fmt.Sprintf("%q: %s", msg.Title, describe(msg.Err)), true)
		}
		a.clampCursor()
		return a, nil

	case DecomposeAllDoneMsg:
		var failed []error
		for _, err := range msg.Errs {
			if !errors.Is(err, creator.ErrSessionReset) && !errors.Is(err, tree.ErrNodeNotFound) {
				failed = append(failed, err)
			}
		}
		if len(failed) == 0 {
			a.footer.SetMessage(fmt.Sprintf("Broke down %d steps", msg.Requested-len(msg.Errs)), false)
		} else {
			a.footer.SetMessage(fmt.Sprintf("%d of %d failed: %s", len(failed), msg.Requested, describe(failed[0])), true)
		}
		a.clampCursor()
		return a, nil

	case SavedMsg:
		switch {
		case msg.Err == nil:
			a.savedIDs = append(a.savedIDs, msg.TaskID)
			a.input.Reset()
			a.footer.SetMessage("Saved! Add another task or press ctrl+c to quit.", false)
			return a, a.input.Focus()
		case errors.Is(msg.Err, creator.ErrSessionReset):
			if msg.TaskID != "" {
				a.savedIDs = append(a.savedIDs, msg.TaskID)
			}
		default:
			a.footer.SetMessage(describeSave(msg.Err), true)
		}
		return a, nil
	}

	if a.session.Phase() == creator.PhaseInput {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		a.quitting = true
		a.session.Restart()
		return a, tea.Quit
	}

	switch a.session.Phase() {
	case creator.PhaseInput:
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		return a, cmd

	case creator.PhaseAnalyzing, creator.PhaseSaving:
		if msg.String() == "esc" {
			return a, a.restart()
		}
		return a, nil

	case creator.PhaseEditing:
		return a.handleEditingKey(msg)
	}
	return a, nil
}

func (a *App) handleEditingKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	nodes := a.session.Nodes()
	a.clampCursorTo(len(nodes))

	var selected models.Node
	if len(nodes) > 0 {
		selected = nodes[a.cursor]
	}

	switch msg.String() {
	case "q":
		a.quitting = true
		a.session.Restart()
		return a, tea.Quit
	case "esc", "r":
		return a, a.restart()
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(nodes)-1 {
			a.cursor++
		}
	case "d":
		a.report(a.session.SetDifficulty(selected.TempID, selected.Difficulty.Next()))
	case "+", "=":
		a.report(a.session.AdjustMinutes(selected.TempID, estimate.AdjustStep))
	case "-", "_":
		a.report(a.session.AdjustMinutes(selected.TempID, -estimate.AdjustStep))
	case "enter", "x":
		if err := a.checkDecomposable(selected); err != nil {
			a.report(err)
			return a, nil
		}
		a.footer.ClearMessage()
		return a, a.decomposeCmd(selected)
	case "a":
		return a, a.decomposeAllCmd(nodes)
	case "s":
		a.footer.ClearMessage()
		return a, a.saveCmd()
	}
	return a, nil
}

// decomposeAllCmd breaks down every root that has no children yet, concurrently.
func (a *App) decomposeAllCmd(nodes []models.Node) tea.Cmd {
	parents := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if n.ParentTempID != "" {
			parents[n.ParentTempID] = true
		}
	}

	var ids []string
	for _, n := range nodes {
		if n.IsRoot() && !parents[n.TempID] && !n.IsDecomposing {
			ids = append(ids, n.TempID)
		}
	}
	if len(ids) == 0 {
		a.footer.SetMessage("Every step is already broken down.", false)
		return nil
	}
	a.footer.ClearMessage()
	return func() tea.Msg {
		return DecomposeAllDoneMsg{Requested: len(ids), Errs: a.session.DecomposeAll(a.ctx, ids)}
	}
}

func (a *App) checkDecomposable(n models.Node) error {
	if n.TempID == "" {
		return tree.ErrNodeNotFound
	}
	if !n.CanDeepen() {
		return tree.ErrMaxDepth
	}
	if n.IsDecomposing {
		return tree.ErrAlreadyDecomposing
	}
	return nil
}

func (a *App) restart() tea.Cmd {
	a.session.Restart()
	a.cursor = 0
	a.input.Reset()
	a.footer.SetMessage("Started over.", false)
	return a.input.Focus()
}

func (a *App) report(err error) {
	if err != nil {
		a.footer.SetMessage(describe(err), true)
	}
}

func (a *App) clampCursor() {
	a.clampCursorTo(len(a.session.Nodes()))
}

func (a *App) clampCursorTo(n int) {
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// describe turns any session error into a short line for the footer.
func describe(err error) string {
	var aiErr *decompose.Error
	var hintErr *models.HintError
	switch {
	case errors.As(err, &aiErr):
		return decompose.UserMessage(err)
	case errors.As(err, &hintErr):
		return hintErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "The AI took too long to respond. Please try again."
	case errors.Is(err, models.ErrEmptyTitle):
		return "Type what you need to get done first."
	case errors.Is(err, tree.ErrMaxDepth):
		return "That step is as small as it gets."
	case errors.Is(err, tree.ErrAlreadyDecomposing):
		return "Already breaking that step down."
	case errors.Is(err, creator.ErrDecomposeInFlight):
		return "Wait for the breakdowns to finish before saving."
	case errors.Is(err, creator.ErrInvalidPhase):
		return "That isn't possible right now."
	case errors.Is(err, models.ErrValidation):
		return "Add at least one step before saving."
	default:
		return "Something went wrong. Please try again."
	}
}

// describeSave is describe for a failed save. Store errors carry driver
// detail; that stays in the log and the footer gets a fixed line.
func describeSave(err error) string {
	var aiErr *decompose.Error
	switch {
	case errors.As(err, &aiErr),
		errors.Is(err, creator.ErrDecomposeInFlight),
		errors.Is(err, creator.ErrInvalidPhase),
		errors.Is(err, models.ErrValidation):
		return describe(err)
	default:
		return "Could not save the task. Your edits are kept; please try again."
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		if n := len(a.savedIDs); n > 0 {
			return fmt.Sprintf("Saved %d task(s). Goodbye!\n", n)
		}
		return "Goodbye!\n"
	}

	phase := a.session.Phase()
	a.footer.SetPhase(phase)

	var body string
	switch phase {
	case creator.PhaseInput:
		body = a.input.View()
	case creator.PhaseAnalyzing:
		body = fmt.Sprintf("%s Breaking down %q...", a.spinner.View(), a.session.Input().Title)
	case creator.PhaseEditing:
		body = a.editingView()
	case creator.PhaseSaving:
		body = fmt.Sprintf("%s Saving %q...", a.spinner.View(), a.session.Input().Title)
	}

	return lipgloss.JoinVertical(lipgloss.Left, a.header.View(), body, "", a.footer.View())
}

func (a *App) editingView() string {
	nodes := a.session.Nodes()
	a.clampCursorTo(len(nodes))

	var b strings.Builder
	b.WriteString(titleStyle.Render(a.session.Input().Title))
	b.WriteString("\n\n")

	for i, n := range nodes {
		cursor := "  "
		if i == a.cursor {
			cursor = cursorStyle.Render("> ")
		}
		indent := strings.Repeat("   ", n.Depth)
		diff := difficultyStyles[n.Difficulty].Render(fmt.Sprintf("%-6s", n.Difficulty))
		line := fmt.Sprintf("%s%s%s  %s  %6s", cursor, indent, n.Title, diff, estimate.FormatMinutes(n.EstimatedMinutes))
		if n.IsDecomposing {
			line += " " + a.spinner.View()
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(totalStyle.Render("Total: " + estimate.FormatMinutes(a.session.TotalMinutes())))
	return b.String()
}

// NewProgram creates a Bubbletea program for the task creator.
func NewProgram(ctx context.Context, session *creator.Creator) (*tea.Program, *App) {
	app := NewApp(ctx, session)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	return p, app
}
