package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header renders the Stepwise title bar.
type Header struct {
	width int
}

// NewHeader creates a new Header.
func NewHeader() *Header {
	return &Header{
		width: 80,
	}
}

// SetWidth sets the header width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header.
func (h *Header) View() string {
	// Gradient colors for the title
	colors := []string{"#FF6B6B", "#FF8E53", "#FFC857", "#4ECDC4", "#45B7D1", "#96E6A1"}

	var b strings.Builder
	for i, r := range "STEPWISE" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(colors[i%len(colors)])).Bold(true)
		b.WriteString(style.Render(string(r)))
		b.WriteString(" ")
	}

	subtitle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("243")).
		Italic(true).
		Render("one small step at a time")

	return lipgloss.NewStyle().
		Width(h.width).
		PaddingBottom(1).
		Render(lipgloss.JoinVertical(lipgloss.Left, b.String(), subtitle))
}
