package models

// Difficulty is the perceived effort of a subtask.
type Difficulty string

const (
	// DifficultyEasy is for steps that can be knocked out quickly.
	DifficultyEasy Difficulty = "easy"
	// DifficultyMedium is the default when nothing better is known.
	DifficultyMedium Difficulty = "medium"
	// DifficultyHard is for steps that deserve unhurried time.
	DifficultyHard Difficulty = "hard"
)

// Difficulties lists every difficulty in ascending order.
var Difficulties = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid returns true if the difficulty is a known value.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	default:
		return false
	}
}

// Next cycles easy -> medium -> hard -> easy.
func (d Difficulty) Next() Difficulty {
	switch d {
	case DifficultyEasy:
		return DifficultyMedium
	case DifficultyMedium:
		return DifficultyHard
	default:
		return DifficultyEasy
	}
}

// Suggestion is one AI-proposed step.
type Suggestion struct {
	Title            string     `json:"title"`
	Difficulty       Difficulty `json:"difficulty"`
	EstimatedMinutes int        `json:"estimated_minutes"`
}
