// Package config handles configuration loading and management for Stepwise.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for Stepwise.
type Config struct {
	AI        AIConfig        `mapstructure:"ai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	User      UserConfig      `mapstructure:"user"`
}

// AIConfig selects the decomposition provider.
type AIConfig struct {
	// Provider is "anthropic" or "gemini".
	Provider string `mapstructure:"provider"`
	// Timeout bounds a single analyze or decompose request.
	Timeout time.Duration `mapstructure:"timeout"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Model      string `mapstructure:"model"`
	UseBedrock bool   `mapstructure:"use_bedrock"`
	AWSRegion  string `mapstructure:"aws_region"`
	AWSProfile string `mapstructure:"aws_profile"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// StorageConfig holds database settings.
type StorageConfig struct {
	// Driver is "sqlite" (pure Go) or "sqlite3" (cgo).
	Driver string `mapstructure:"driver"`
	// Path is the database file; empty means the XDG data dir.
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	// Path is the log file; empty means the XDG state dir.
	Path string `mapstructure:"path"`
}

// UserConfig identifies the local CLI user.
type UserConfig struct {
	ID string `mapstructure:"id"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, GEMINI_API_KEY, STEPWISE_*)
// 2. Project config (.stepwise.yaml in current directory or parent)
// 3. User config (~/.config/stepwise/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// newViper builds a viper instance with every config layer applied.
func newViper() (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	bindEnv(v)
	return v, nil
}

// envReplacer turns nested keys like storage.path into STEPWISE_STORAGE_PATH.
var envReplacer = strings.NewReplacer(".", "_")

// bindEnv maps environment variables onto config keys.
func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix("STEPWISE")
	v.SetEnvKeyReplacer(envReplacer)
	v.AutomaticEnv()

	_ = v.BindEnv("anthropic.api_key", "STEPWISE_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("gemini.api_key", "STEPWISE_GEMINI_API_KEY", "GEMINI_API_KEY")
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = expandEnv(cfg.Anthropic.APIKey)
	cfg.Gemini.APIKey = expandEnv(cfg.Gemini.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	return decode(v)
}

// Watch loads the config at path and calls onChange with the re-decoded
// config every time the file is written. Decode failures are passed to
// onError and the previous config stays in effect.
func Watch(path string, onChange func(*Config), onError func(error)) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	bindEnv(v)

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(next)
	})
	v.WatchConfig()

	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("ai.provider", cfg.AI.Provider)
	v.Set("ai.timeout", cfg.AI.Timeout.String())
	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("anthropic.aws_profile", cfg.Anthropic.AWSProfile)
	v.Set("gemini.api_key", cfg.Gemini.APIKey)
	v.Set("gemini.model", cfg.Gemini.Model)
	v.Set("storage.driver", cfg.Storage.Driver)
	v.Set("storage.path", cfg.Storage.Path)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.mode", cfg.Server.Mode)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.path", cfg.Log.Path)
	v.Set("user.id", cfg.User.ID)

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("ai.provider", d.AI.Provider)
	v.SetDefault("ai.timeout", d.AI.Timeout.String())

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", d.Anthropic.Model)
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "")
	v.SetDefault("anthropic.aws_profile", "")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model", d.Gemini.Model)

	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.path", "")

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.mode", d.Server.Mode)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.path", "")

	v.SetDefault("user.id", d.User.ID)
}

// getUserConfigDir returns the XDG config directory for Stepwise.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "stepwise")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "stepwise")
	}
	return filepath.Join(home, ".config", "stepwise")
}

// findProjectConfig searches for .stepwise.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".stepwise.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		AI: AIConfig{
			Provider: "anthropic",
			Timeout:  30 * time.Second,
		},
		Anthropic: AnthropicConfig{
			Model: "claude-haiku-4-5-20251001",
		},
		Gemini: GeminiConfig{
			Model: "gemini-2.0-flash",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
			Mode: "release",
		},
		Log: LogConfig{
			Level: "info",
		},
		User: UserConfig{
			ID: "local",
		},
	}
}
