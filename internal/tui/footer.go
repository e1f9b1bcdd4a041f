package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/stepwise-app/stepwise/internal/creator"
)

// Footer renders the status line and keyboard hints.
type Footer struct {
	message string
	isError bool
	phase   creator.Phase
	width   int

	// Styles
	successStyle   lipgloss.Style
	errorStyle     lipgloss.Style
	hintStyle      lipgloss.Style
	separatorStyle lipgloss.Style
}

// NewFooter creates a new Footer instance.
func NewFooter() *Footer {
	return &Footer{
		successStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("28")).
			Bold(true),

		errorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),

		hintStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),

		separatorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("236")),
	}
}

// SetMessage sets the status message.
func (f *Footer) SetMessage(message string, isError bool) {
	f.message = message
	f.isError = isError
}

// ClearMessage removes the status message.
func (f *Footer) ClearMessage() {
	f.message = ""
	f.isError = false
}

// Message returns the current status message.
func (f *Footer) Message() (string, bool) {
	return f.message, f.isError
}

// SetPhase selects which key hints to show.
func (f *Footer) SetPhase(p creator.Phase) {
	f.phase = p
}

// SetWidth sets the footer width.
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// View renders the footer.
func (f *Footer) View() string {
	var left string
	if f.message != "" {
		if f.isError {
			left = f.errorStyle.Render("✗ " + f.message)
		} else {
			left = f.successStyle.Render("✓ " + f.message)
		}
	}

	right := f.keyboardHints()
	if left == "" {
		return right
	}
	if right == "" {
		return left
	}
	return lipgloss.JoinVertical(lipgloss.Left, left, right)
}

// keyboardHints returns phase-sensitive keyboard hints.
func (f *Footer) keyboardHints() string {
	var hints string
	switch f.phase {
	case creator.PhaseInput:
		hints = "tab next field │ enter analyze │ ctrl+c quit"
	case creator.PhaseAnalyzing, creator.PhaseSaving:
		hints = "esc start over │ ctrl+c quit"
	case creator.PhaseEditing:
		hints = "↑/↓ move │ d difficulty │ +/- 5 min │ enter break down │ a break down all │ s save │ esc start over │ q quit"
	}
	return f.hintStyle.Render(hints)
}
