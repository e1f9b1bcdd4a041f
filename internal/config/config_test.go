package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.AI.Provider != "anthropic" {
		t.Errorf("expected default provider 'anthropic', got %q", cfg.AI.Provider)
	}

	if cfg.AI.Timeout != 30*time.Second {
		t.Errorf("expected default AI timeout 30s, got %v", cfg.AI.Timeout)
	}

	if cfg.Gemini.Model != "gemini-2.0-flash" {
		t.Errorf("expected default gemini model, got %q", cfg.Gemini.Model)
	}

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected default storage driver 'sqlite', got %q", cfg.Storage.Driver)
	}

	if cfg.Server.Addr != "127.0.0.1:8080" {
		t.Errorf("expected default server addr, got %q", cfg.Server.Addr)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Log.Level)
	}

	if cfg.User.ID != "local" {
		t.Errorf("expected default user 'local', got %q", cfg.User.ID)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
ai:
  provider: gemini
  timeout: 45s
anthropic:
  api_key: test-key
  use_bedrock: true
  aws_region: us-west-2
gemini:
  api_key: gemini-key
storage:
  driver: sqlite3
  path: /tmp/stepwise.db
server:
  addr: ":9000"
log:
  level: debug
user:
  id: sam
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.AI.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got %q", cfg.AI.Provider)
	}

	if cfg.AI.Timeout != 45*time.Second {
		t.Errorf("expected AI timeout 45s, got %v", cfg.AI.Timeout)
	}

	if cfg.Anthropic.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Anthropic.APIKey)
	}

	if !cfg.Anthropic.UseBedrock || cfg.Anthropic.AWSRegion != "us-west-2" {
		t.Errorf("expected bedrock in us-west-2, got %+v", cfg.Anthropic)
	}

	if cfg.Gemini.APIKey != "gemini-key" {
		t.Errorf("expected gemini api_key 'gemini-key', got %q", cfg.Gemini.APIKey)
	}

	if cfg.Storage.Driver != "sqlite3" || cfg.Storage.Path != "/tmp/stepwise.db" {
		t.Errorf("unexpected storage config %+v", cfg.Storage)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("expected addr ':9000', got %q", cfg.Server.Addr)
	}

	// Unset keys keep their defaults.
	if cfg.Server.Mode != "release" {
		t.Errorf("expected default mode 'release', got %q", cfg.Server.Mode)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level 'debug', got %q", cfg.Log.Level)
	}

	if cfg.User.ID != "sam" {
		t.Errorf("expected user 'sam', got %q", cfg.User.ID)
	}
}

func TestLoadFromPath_Missing(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")
	t.Setenv("STEPWISE_STORAGE_DRIVER", "sqlite3")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-from-env" {
		t.Errorf("expected api key from env, got %q", cfg.Anthropic.APIKey)
	}

	if cfg.Storage.Driver != "sqlite3" {
		t.Errorf("expected driver from env 'sqlite3', got %q", cfg.Storage.Driver)
	}
}

func TestLoad_ProjectConfigOverridesUser(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	userDir := filepath.Join(xdg, "stepwise")
	if err := os.MkdirAll(userDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(userDir, "config.yaml"), []byte("log:\n  level: warn\nuser:\n  id: from-user\n"), 0644); err != nil {
		t.Fatalf("write user config: %v", err)
	}

	project := t.TempDir()
	if err := os.WriteFile(filepath.Join(project, ".stepwise.yaml"), []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	nested := filepath.Join(project, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	t.Chdir(nested)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("expected project level 'debug', got %q", cfg.Log.Level)
	}

	if cfg.User.ID != "from-user" {
		t.Errorf("expected user config id 'from-user', got %q", cfg.User.ID)
	}
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "expanded-value")

	result := expandEnv("${TEST_VAR}")
	if result != "expanded-value" {
		t.Errorf("expected 'expanded-value', got %q", result)
	}

	result = expandEnv("prefix-${TEST_VAR}-suffix")
	if result != "prefix-expanded-value-suffix" {
		t.Errorf("expected 'prefix-expanded-value-suffix', got %q", result)
	}
}

func TestGetUserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")

	dir := getUserConfigDir()
	expected := "/custom/config/stepwise"
	if dir != expected {
		t.Errorf("expected %q, got %q", expected, dir)
	}
}

func TestSave_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.AI.Provider = "gemini"
	cfg.Log.Level = "warn"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if loaded.AI.Provider != "gemini" {
		t.Errorf("expected provider 'gemini', got %q", loaded.AI.Provider)
	}
	if loaded.Log.Level != "warn" {
		t.Errorf("expected level 'warn', got %q", loaded.Log.Level)
	}
	if loaded.AI.Timeout != 30*time.Second {
		t.Errorf("expected timeout 30s, got %v", loaded.AI.Timeout)
	}
}

func TestWatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: info\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	changes := make(chan *Config, 16)
	cfg, err := Watch(path, func(c *Config) { changes <- c }, nil)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("initial level = %q, want info", cfg.Log.Level)
	}

	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	timeout := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Log.Level == "debug" {
				return
			}
		case <-timeout:
			t.Fatal("timed out waiting for config change")
		}
	}
}
