package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stepwise-app/stepwise/internal/creator"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// TaskSubmittedMsg is sent when the user submits a title and hints.
type TaskSubmittedMsg struct {
	Input creator.TaskInput
}

// FormErrorMsg is sent when a hint field cannot be parsed.
type FormErrorMsg struct {
	Err error
}

// form field indexes
const (
	fieldTitle = iota
	fieldMemo
	fieldSteps
	fieldMinutes
	fieldDue
	numFields
)

var fieldLabels = [numFields]string{
	fieldTitle:   "Task",
	fieldMemo:    "Memo",
	fieldSteps:   "Steps",
	fieldMinutes: "Minutes",
	fieldDue:     "Due",
}

// InputField collects a task title plus optional hints.
// Tab and shift+tab move between fields; enter submits from any field.
type InputField struct {
	inputs  [numFields]textinput.Model
	focused int
	width   int
}

// NewInputField creates a new InputField with the title focused.
func NewInputField() *InputField {
	f := &InputField{width: 80}

	placeholders := [numFields]string{
		fieldTitle:   "What do you need to get done?",
		fieldMemo:    "optional notes for the AI",
		fieldSteps:   "let the AI choose",
		fieldMinutes: "let the AI choose",
		fieldDue:     "YYYY-MM-DD",
	}
	limits := [numFields]int{
		fieldTitle:   200,
		fieldMemo:    models.MaxMemoRunes,
		fieldSteps:   2,
		fieldMinutes: 4,
		fieldDue:     10,
	}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Placeholder = placeholders[i]
		ti.CharLimit = limits[i]
		ti.Width = 60
		ti.Prompt = ""
		f.inputs[i] = ti
	}
	f.inputs[fieldTitle].Focus()
	return f
}

// SetWidth sets the width of the form.
func (f *InputField) SetWidth(width int) {
	f.width = width
	for i := range f.inputs {
		f.inputs[i].Width = width - 14 // label column and border
	}
}

// SetInput pre-fills the form, for instance after a failed analysis.
func (f *InputField) SetInput(in creator.TaskInput) {
	f.inputs[fieldTitle].SetValue(in.Title)
	f.inputs[fieldMemo].SetValue(in.Hints.Memo)
	f.inputs[fieldSteps].SetValue(intOrEmpty(in.Hints.DesiredSubtaskCount))
	f.inputs[fieldMinutes].SetValue(intOrEmpty(in.Hints.TargetDurationMinutes))
	f.inputs[fieldDue].SetValue(in.Hints.DueDate)
}

// Reset clears every field and focuses the title.
func (f *InputField) Reset() {
	for i := range f.inputs {
		f.inputs[i].Reset()
	}
	f.focus(fieldTitle)
}

func intOrEmpty(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func (f *InputField) focus(i int) tea.Cmd {
	f.inputs[f.focused].Blur()
	f.focused = (i + numFields) % numFields
	return f.inputs[f.focused].Focus()
}

// Value parses the form into a task input.
func (f *InputField) Value() (creator.TaskInput, error) {
	in := creator.TaskInput{
		Title: strings.TrimSpace(f.inputs[fieldTitle].Value()),
		Hints: models.Hints{
			Memo:    strings.TrimSpace(f.inputs[fieldMemo].Value()),
			DueDate: strings.TrimSpace(f.inputs[fieldDue].Value()),
		},
	}
	if in.Title == "" {
		return in, models.ErrEmptyTitle
	}

	var err error
	if in.Hints.DesiredSubtaskCount, err = optionalInt("steps", f.inputs[fieldSteps].Value()); err != nil {
		return in, err
	}
	if in.Hints.TargetDurationMinutes, err = optionalInt("minutes", f.inputs[fieldMinutes].Value()); err != nil {
		return in, err
	}
	return in, in.Hints.Validate()
}

func optionalInt(field, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, &models.HintError{Field: field, Reason: fmt.Sprintf("%q is not a positive number", s)}
	}
	return n, nil
}

// Update handles messages for the form.
func (f *InputField) Update(msg tea.Msg) (*InputField, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "enter":
			in, err := f.Value()
			if err != nil {
				return f, func() tea.Msg { return FormErrorMsg{Err: err} }
			}
			return f, func() tea.Msg { return TaskSubmittedMsg{Input: in} }
		case "tab", "down":
			return f, f.focus(f.focused + 1)
		case "shift+tab", "up":
			return f, f.focus(f.focused - 1)
		}
	}

	var cmd tea.Cmd
	f.inputs[f.focused], cmd = f.inputs[f.focused].Update(msg)
	return f, cmd
}

// View renders the form.
func (f *InputField) View() string {
	var rows []string
	for i, in := range f.inputs {
		label := labelStyle
		if i == f.focused {
			label = focusedLabelStyle
		}
		rows = append(rows, label.Render(fmt.Sprintf("%-8s", fieldLabels[i]))+" "+in.View())
	}

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1).
		Width(f.width - 2)

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// Focus sets focus on the current field.
func (f *InputField) Focus() tea.Cmd {
	return f.inputs[f.focused].Focus()
}

// Blur removes focus from the form.
func (f *InputField) Blur() {
	f.inputs[f.focused].Blur()
}
