package models

import "time"

// SelfLevel is how the user rates their own pace.
type SelfLevel string

const (
	SelfLevelLow    SelfLevel = "low"
	SelfLevelMedium SelfLevel = "medium"
	SelfLevelHigh   SelfLevel = "high"
)

// Valid returns true if the level is a known value.
func (l SelfLevel) Valid() bool {
	switch l {
	case SelfLevelLow, SelfLevelMedium, SelfLevelHigh:
		return true
	default:
		return false
	}
}

// UserContext describes what the user mainly plans with the app.
type UserContext string

const (
	UserContextStudent    UserContext = "student"
	UserContextUniversity UserContext = "university"
	UserContextWork       UserContext = "work"
	UserContextPersonal   UserContext = "personal"
)

// Valid returns true if the context is a known value.
func (c UserContext) Valid() bool {
	switch c {
	case UserContextStudent, UserContextUniversity, UserContextWork, UserContextPersonal:
		return true
	default:
		return false
	}
}

// Profile is the optional personal context passed to the AI.
type Profile struct {
	UserID      string        `json:"user_id"`
	DisplayName string        `json:"display_name,omitempty"`
	Grade       string        `json:"grade,omitempty"`
	Subjects    []string      `json:"subjects,omitempty"`
	SelfLevel   SelfLevel     `json:"self_level,omitempty"`
	UserContext []UserContext `json:"user_context,omitempty"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
