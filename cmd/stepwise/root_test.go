package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stepwise-app/stepwise/internal/config"
	"github.com/stepwise-app/stepwise/internal/state"
	"github.com/stepwise-app/stepwise/pkg/models"
)

// execute runs the CLI against an isolated config and database.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	showYAML = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--db", filepath.Join(dir, "stepwise.db"),
	}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "log:\n  path: " + filepath.Join(dir, "stepwise.log") + "\nuser:\n  id: tester\n"
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

// seedTask saves a two-step task straight through the store.
func seedTask(t *testing.T, dir string) *models.TaskWithSubtasks {
	t.Helper()
	db, err := state.Open(filepath.Join(dir, "stepwise.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	id, err := db.CreateTask(ctx, "tester", models.TaskDraft{
		Title: "Write essay",
		Subtasks: []models.Node{
			{TempID: "a", Title: "Research", Difficulty: models.DifficultyMedium, EstimatedMinutes: 20, SortOrder: 0},
			{TempID: "b", Title: "Outline", Difficulty: models.DifficultyEasy, EstimatedMinutes: 30, SortOrder: 1},
		},
	})
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	task, err := db.GetTask(ctx, "tester", id)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	return task
}

func TestCLI_TasksListEmpty(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, dir, "tasks", "list")
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	if !strings.Contains(out, "No tasks yet") {
		t.Errorf("output = %q", out)
	}
}

func TestCLI_TaskLifecycle(t *testing.T) {
	dir := setupCLI(t)
	task := seedTask(t, dir)
	research := task.Subtasks[0]

	out, err := execute(t, dir, "tasks", "list")
	if err != nil {
		t.Fatalf("tasks list: %v", err)
	}
	if !strings.Contains(out, "Write essay") || !strings.Contains(out, task.ID) {
		t.Errorf("list output = %q", out)
	}

	out, err = execute(t, dir, "toggle", task.ID, research.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !strings.Contains(out, `"Research" is now completed`) || !strings.Contains(out, `"Write essay" is in_progress`) {
		t.Errorf("toggle output = %q", out)
	}

	out, err = execute(t, dir, "log-time", task.ID, research.ID, "25")
	if err != nil {
		t.Fatalf("log-time: %v", err)
	}
	if !strings.Contains(out, "25m tracked of 50m planned") {
		t.Errorf("log-time output = %q", out)
	}

	out, err = execute(t, dir, "tasks", "show", task.ID, "--yaml")
	if err != nil {
		t.Fatalf("tasks show: %v", err)
	}
	for _, want := range []string{"title: Write essay", "status: in_progress", "total_actual_minutes: 25", "subtasks:"} {
		if !strings.Contains(out, want) {
			t.Errorf("yaml missing %q:\n%s", want, out)
		}
	}

	out, err = execute(t, dir, "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !strings.Contains(out, "1 done / 2 total") {
		t.Errorf("stats output = %q", out)
	}
}

func TestCLI_ToggleUnknownSubtask(t *testing.T) {
	dir := setupCLI(t)
	task := seedTask(t, dir)

	_, err := execute(t, dir, "toggle", task.ID, "missing")
	if !errors.Is(err, models.ErrSubtaskNotFound) {
		t.Errorf("err = %v, want ErrSubtaskNotFound", err)
	}
}

func TestCLI_LogTimeRejectsBadMinutes(t *testing.T) {
	dir := setupCLI(t)

	_, err := execute(t, dir, "log-time", "t", "s", "soon")
	if !errors.Is(err, models.ErrInvalidMinutes) {
		t.Errorf("err = %v, want ErrInvalidMinutes", err)
	}
}

func TestCLI_ProfileSetAndShow(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, dir, "profile", "show")
	if err != nil {
		t.Fatalf("profile show: %v", err)
	}
	if !strings.Contains(out, "No profile yet") {
		t.Errorf("empty profile output = %q", out)
	}

	out, err = execute(t, dir, "profile", "set", "--name", "Sam", "--level", "low", "--context", "university,work")
	if err != nil {
		t.Fatalf("profile set: %v", err)
	}
	for _, want := range []string{"Profile saved", "name:     Sam", "level:    low", "context:  university, work"} {
		if !strings.Contains(out, want) {
			t.Errorf("profile output missing %q:\n%s", want, out)
		}
	}
}

func TestCLI_Version(t *testing.T) {
	dir := setupCLI(t)

	out, err := execute(t, dir, "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out, "stepwise version ") {
		t.Errorf("output = %q", out)
	}
}

func TestGetConfigValue(t *testing.T) {
	cfg := config.Default()
	cfg.Anthropic.APIKey = "sk-ant-REDACTED"

	tests := []struct {
		key      string
		expected string
	}{
		{"ai.provider", "anthropic"},
		{"ai.timeout", "30s"},
		{"anthropic.api_key", "sk-ant-...mnop"},
		{"gemini.api_key", "(not set)"},
		{"storage.driver", "sqlite"},
		{"server.addr", "127.0.0.1:8080"},
		{"LOG.LEVEL", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := getConfigValue(cfg, tt.key)
			if err != nil {
				t.Fatalf("getConfigValue(%q): %v", tt.key, err)
			}
			if got != tt.expected {
				t.Errorf("getConfigValue(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}

	if _, err := getConfigValue(cfg, "ai.temperature"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetConfigValue(t *testing.T) {
	cfg := config.Default()

	valid := map[string]string{
		"ai.provider":           "gemini",
		"ai.timeout":            "45s",
		"anthropic.use_bedrock": "true",
		"storage.driver":        "sqlite3",
		"server.mode":           "debug",
		"log.level":             "DEBUG",
		"user.id":               "sam",
	}
	for key, value := range valid {
		if err := setConfigValue(cfg, key, value); err != nil {
			t.Errorf("setConfigValue(%q, %q): %v", key, value, err)
		}
	}
	if cfg.AI.Provider != "gemini" || cfg.AI.Timeout != 45*time.Second || !cfg.Anthropic.UseBedrock {
		t.Errorf("ai/anthropic not applied: %+v %+v", cfg.AI, cfg.Anthropic)
	}
	if cfg.Storage.Driver != "sqlite3" || cfg.Server.Mode != "debug" || cfg.Log.Level != "debug" || cfg.User.ID != "sam" {
		t.Errorf("values not applied: %+v", cfg)
	}

	invalid := map[string]string{
		"ai.provider":           "openai",
		"ai.timeout":            "soon",
		"anthropic.api_key":     "not-a-key",
		"anthropic.use_bedrock": "maybe",
		"storage.driver":        "postgres",
		"server.mode":           "prod",
		"log.level":             "loud",
		"nope":                  "x",
	}
	for key, value := range invalid {
		if err := setConfigValue(cfg, key, value); err == nil {
			t.Errorf("setConfigValue(%q, %q) should fail", key, value)
		}
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		in   models.TaskStatus
		want models.TaskStatus
	}{
		{models.TaskStatusPending, models.TaskStatusCompleted},
		{models.TaskStatusInProgress, models.TaskStatusCompleted},
		{models.TaskStatusCompleted, models.TaskStatusPending},
	}
	for _, tt := range tests {
		if got := nextStatus(tt.in); got != tt.want {
			t.Errorf("nextStatus(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestTrimAll(t *testing.T) {
	got := trimAll([]string{" math ", "", "  ", "physics"})
	if len(got) != 2 || got[0] != "math" || got[1] != "physics" {
		t.Errorf("trimAll = %v", got)
	}
}
