package models

import (
	"errors"
	"strings"
	"testing"
)

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"pending is valid", TaskStatusPending, true},
		{"in_progress is valid", TaskStatusInProgress, true},
		{"completed is valid", TaskStatusCompleted, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"done is invalid", TaskStatus("done"), false},
		{"typo status is invalid", TaskStatus("pendingg"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Toggleable(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusPending, true},
		{TaskStatusCompleted, true},
		{TaskStatusInProgress, false},
		{TaskStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Toggleable(); got != tt.want {
				t.Errorf("TaskStatus(%q).Toggleable() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestDifficulty_Valid(t *testing.T) {
	for _, d := range Difficulties {
		if !d.Valid() {
			t.Errorf("Difficulty(%q).Valid() = false, want true", d)
		}
	}
	for _, d := range []Difficulty{"", "EASY", "extreme"} {
		if d.Valid() {
			t.Errorf("Difficulty(%q).Valid() = true, want false", d)
		}
	}
}

func TestDifficulty_NextCycles(t *testing.T) {
	d := DifficultyEasy
	seen := []Difficulty{d}
	for i := 0; i < 3; i++ {
		d = d.Next()
		seen = append(seen, d)
	}
	want := []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyEasy}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("step %d = %q, want %q", i, seen[i], want[i])
		}
	}
}

func TestSubtask_Actual(t *testing.T) {
	s := Subtask{}
	if s.Actual() != 0 {
		t.Errorf("Actual() on untracked = %d, want 0", s.Actual())
	}
	m := 25
	s.ActualMinutes = &m
	if s.Actual() != 25 {
		t.Errorf("Actual() = %d, want 25", s.Actual())
	}
}

func TestNode_TreeHelpers(t *testing.T) {
	root := Node{TempID: "a"}
	if !root.IsRoot() {
		t.Error("node without parent should be root")
	}
	if !root.CanDeepen() {
		t.Error("depth 0 node should accept children")
	}

	leaf := Node{TempID: "c", ParentTempID: "b", Depth: MaxDepth}
	if leaf.IsRoot() {
		t.Error("node with parent should not be root")
	}
	if leaf.CanDeepen() {
		t.Error("node at max depth should not accept children")
	}
	if leaf.ItemID() != "c" || leaf.ParentItemID() != "b" {
		t.Errorf("ItemID/ParentItemID = %q/%q, want c/b", leaf.ItemID(), leaf.ParentItemID())
	}
}

func TestHints_IsZero(t *testing.T) {
	if !(Hints{}).IsZero() {
		t.Error("empty hints should be zero")
	}
	if (Hints{DesiredSubtaskCount: 5}).IsZero() {
		t.Error("hints with a count should not be zero")
	}
}

func TestHints_Validate(t *testing.T) {
	tests := []struct {
		name      string
		hints     Hints
		wantField string
	}{
		{"zero hints", Hints{}, ""},
		{"all set", Hints{Memo: "five paragraphs", DesiredSubtaskCount: 4, TargetDurationMinutes: 90, DueDate: "2026-11-20"}, ""},
		{"memo at limit", Hints{Memo: strings.Repeat("é", MaxMemoRunes)}, ""},
		{"memo too long", Hints{Memo: strings.Repeat("a", MaxMemoRunes+1)}, "memo"},
		{"max steps", Hints{DesiredSubtaskCount: MaxDesiredSubtasks}, ""},
		{"too many steps", Hints{DesiredSubtaskCount: MaxDesiredSubtasks + 1}, "steps"},
		{"negative steps", Hints{DesiredSubtaskCount: -1}, "steps"},
		{"negative minutes", Hints{TargetDurationMinutes: -30}, "minutes"},
		{"bad due date", Hints{DueDate: "tomorrow"}, "due date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.hints.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var hintErr *HintError
			if !errors.As(err, &hintErr) {
				t.Fatalf("Validate() = %v, want *HintError", err)
			}
			if hintErr.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", hintErr.Field, tt.wantField)
			}
			if !errors.Is(err, ErrValidation) {
				t.Error("hint errors should match ErrValidation")
			}
		})
	}
}
