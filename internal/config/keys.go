package config

import (
	"errors"
	"os"
	"strings"
)

// ErrNoAPIKey is returned when no API key is configured for the selected provider.
var ErrNoAPIKey = errors.New("no AI provider API key configured")

// Provider names accepted by ai.provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// KeySource represents where an API key was loaded from.
type KeySource string

const (
	KeySourceEnv     KeySource = "environment"
	KeySourceConfig  KeySource = "config_file"
	KeySourceBedrock KeySource = "aws_credentials"
	KeySourceNone    KeySource = "none"
)

// envKeyFor returns the environment variable carrying the provider's key.
func envKeyFor(provider string) string {
	if provider == ProviderGemini {
		return "GEMINI_API_KEY"
	}
	return "ANTHROPIC_API_KEY"
}

// configKeyFor returns the key stored in the config file for the provider.
func configKeyFor(cfg *Config, provider string) string {
	if cfg == nil {
		return ""
	}
	if provider == ProviderGemini {
		return cfg.Gemini.APIKey
	}
	return cfg.Anthropic.APIKey
}

func providerOf(cfg *Config) string {
	if cfg == nil || cfg.AI.Provider == "" {
		return ProviderAnthropic
	}
	return cfg.AI.Provider
}

// GetAPIKey returns the API key for the configured provider.
// It checks in order: environment variable, config file.
// Anthropic via Bedrock needs no key and returns an empty string.
func GetAPIKey(cfg *Config) (string, error) {
	provider := providerOf(cfg)
	if provider == ProviderAnthropic && cfg != nil && cfg.Anthropic.UseBedrock {
		return "", nil
	}

	if key := os.Getenv(envKeyFor(provider)); key != "" {
		return key, nil
	}

	if raw := configKeyFor(cfg, provider); raw != "" {
		// Expand any remaining env var references
		key := os.ExpandEnv(raw)
		if key != "" && !strings.HasPrefix(key, "${") {
			return key, nil
		}
	}

	return "", ErrNoAPIKey
}

// GetAPIKeySource returns where the configured provider's key was sourced from.
func GetAPIKeySource(cfg *Config) KeySource {
	provider := providerOf(cfg)
	if provider == ProviderAnthropic && cfg != nil && cfg.Anthropic.UseBedrock {
		return KeySourceBedrock
	}

	if os.Getenv(envKeyFor(provider)) != "" {
		return KeySourceEnv
	}

	if raw := configKeyFor(cfg, provider); raw != "" {
		key := os.ExpandEnv(raw)
		if key != "" && !strings.HasPrefix(key, "${") {
			return KeySourceConfig
		}
	}

	return KeySourceNone
}

// ValidateAPIKey performs basic format validation on a provider key.
// It does not verify the key with the provider.
func ValidateAPIKey(provider, key string) error {
	if key == "" {
		return ErrNoAPIKey
	}

	switch provider {
	case ProviderGemini:
		// Google API keys start with "AIza"
		if !strings.HasPrefix(key, "AIza") {
			return errors.New("invalid API key format: expected 'AIza' prefix")
		}
	default:
		// Anthropic API keys start with "sk-ant-"
		if !strings.HasPrefix(key, "sk-ant-") {
			return errors.New("invalid API key format: expected 'sk-ant-' prefix")
		}
	}

	if len(key) < 20 {
		return errors.New("invalid API key format: key too short")
	}

	return nil
}

// MaskAPIKey returns a masked version of the API key for display.
// Shows the first 7 characters and last 4 characters.
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}

	if len(key) <= 15 {
		return "***"
	}

	return key[:7] + "..." + key[len(key)-4:]
}
