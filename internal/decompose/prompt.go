package decompose

import (
	"fmt"
	"strings"

	"github.com/stepwise-app/stepwise/pkg/models"
)

// genericPersona stands in when the user has no profile.
const genericPersona = "No information about the user is available. Assume a motivated learner of average pace."

// analyzePrompt is the template for first-level decomposition.
// Arguments: persona, count instruction, max minutes, hint block, task title.
const analyzePrompt = `You are a study and planning coach who helps people get started on work they keep putting off.

About the user:
%s

Break the task below into %s.
For each subtask suggest a difficulty (easy, medium or hard) and an estimated time in minutes.

Rules:
- Easy subtasks get short, brisk estimates; do not pad them.
- Hard subtasks get generous estimates so the user never feels rushed.
- Adjust every estimate to the user's level.
- Every estimate must be between 5 and %d minutes.
%s
Task: %q

Respond with ONLY a JSON array in exactly this shape and nothing else:
[
  { "title": "Subtask title", "difficulty": "easy|medium|hard", "estimated_minutes": 30 }
]`

// decomposePrompt is the template for breaking one subtask down further.
// Arguments: persona, task title, subtask title, max minutes.
const decomposePrompt = `You are a study and planning coach who helps people get started on work they keep putting off.

About the user:
%s

Overall task: %q
Subtask to break down: %q

Split this subtask into 2 to 4 smaller concrete steps.
For each step suggest a difficulty (easy, medium or hard) and an estimated time in minutes.

Rules:
- Easy steps get short estimates, hard steps get generous ones.
- Adjust every estimate to the user's level.
- Every estimate must be between 5 and %d minutes.

Respond with ONLY a JSON array in exactly this shape and nothing else:
[
  { "title": "Step title", "difficulty": "easy|medium|hard", "estimated_minutes": 15 }
]`

var selfLevelLabels = map[models.SelfLevel]string{
	models.SelfLevelLow:    "takes things slowly",
	models.SelfLevelMedium: "average pace",
	models.SelfLevelHigh:   "works quickly",
}

// ProfileContext renders the persona block for a prompt.
func ProfileContext(p *models.Profile) string {
	if p == nil {
		return genericPersona
	}
	var parts []string
	if p.Grade != "" {
		parts = append(parts, "Grade / year: "+p.Grade)
	}
	if len(p.Subjects) > 0 {
		parts = append(parts, "Main subjects: "+strings.Join(p.Subjects, ", "))
	}
	if label, ok := selfLevelLabels[p.SelfLevel]; ok {
		parts = append(parts, "Self-assessed pace: "+label)
	}
	if len(p.UserContext) > 0 {
		ctx := make([]string, len(p.UserContext))
		for i, c := range p.UserContext {
			ctx[i] = string(c)
		}
		parts = append(parts, "Uses the planner for: "+strings.Join(ctx, ", "))
	}
	if len(parts) == 0 {
		return genericPersona
	}
	return strings.Join(parts, "\n")
}

// countInstruction turns the desired-count hint into prompt text.
func countInstruction(desired int) string {
	if desired > 0 {
		return fmt.Sprintf("exactly %d subtasks", desired)
	}
	return "3 to 7 subtasks"
}

// hintBlock renders the optional hints as extra rules.
func hintBlock(h models.Hints) string {
	var b strings.Builder
	if h.TargetDurationMinutes > 0 {
		fmt.Fprintf(&b, "- The user wants to spend about %d minutes in total.\n", h.TargetDurationMinutes)
	}
	if h.DueDate != "" {
		fmt.Fprintf(&b, "- The task is due on %s.\n", h.DueDate)
	}
	if memo := strings.TrimSpace(h.Memo); memo != "" {
		fmt.Fprintf(&b, "- Notes from the user: %s\n", memo)
	}
	return b.String()
}

func buildAnalyzePrompt(title string, profile *models.Profile, hints models.Hints, maxMinutes int) string {
	return fmt.Sprintf(analyzePrompt,
		ProfileContext(profile),
		countInstruction(hints.DesiredSubtaskCount),
		maxMinutes,
		hintBlock(hints),
		title,
	)
}

func buildDecomposePrompt(parentTitle, taskTitle string, profile *models.Profile, maxMinutes int) string {
	return fmt.Sprintf(decomposePrompt, ProfileContext(profile), taskTitle, parentTitle, maxMinutes)
}
