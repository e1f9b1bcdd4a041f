package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepwise-app/stepwise/internal/config"
	"github.com/stepwise-app/stepwise/internal/state"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify Stepwise configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/stepwise/config.yaml
Project-specific overrides can be placed in .stepwise.yaml`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		switch len(args) {
		case 0:
			return displayAllConfig(cmd, cfg)
		case 1:
			value, err := getConfigValue(cfg, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		default:
			return setConfigKey(cmd, cfg, args[0], args[1])
		}
	},
}

// configKeys lists every key in display order.
var configKeys = []string{
	"ai.provider",
	"ai.timeout",
	"anthropic.api_key",
	"anthropic.model",
	"anthropic.use_bedrock",
	"anthropic.aws_region",
	"anthropic.aws_profile",
	"gemini.api_key",
	"gemini.model",
	"storage.driver",
	"storage.path",
	"server.addr",
	"server.mode",
	"log.level",
	"log.path",
	"user.id",
}

// displayAllConfig prints all configuration values with keys masked.
func displayAllConfig(cmd *cobra.Command, cfg *config.Config) error {
	w := cmd.OutOrStdout()
	for _, key := range configKeys {
		value, err := getConfigValue(cfg, key)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s\n", key, value)
	}
	fmt.Fprintf(w, "\napi key source: %s\n", config.GetAPIKeySource(cfg))
	return nil
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cmd *cobra.Command, cfg *config.Config, key, value string) error {
	if err := setConfigValue(cfg, key, value); err != nil {
		return err
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	shown := value
	if strings.HasSuffix(key, ".api_key") {
		shown = config.MaskAPIKey(value)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, shown)
	return nil
}

// getConfigValue retrieves a configuration value by dot-notation key.
// API keys are always masked.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "ai.provider":
		return cfg.AI.Provider, nil
	case "ai.timeout":
		return cfg.AI.Timeout.String(), nil
	case "anthropic.api_key":
		return config.MaskAPIKey(cfg.Anthropic.APIKey), nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.use_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseBedrock), nil
	case "anthropic.aws_region":
		return cfg.Anthropic.AWSRegion, nil
	case "anthropic.aws_profile":
		return cfg.Anthropic.AWSProfile, nil
	case "gemini.api_key":
		return config.MaskAPIKey(cfg.Gemini.APIKey), nil
	case "gemini.model":
		return cfg.Gemini.Model, nil
	case "storage.driver":
		return cfg.Storage.Driver, nil
	case "storage.path":
		return cfg.Storage.Path, nil
	case "server.addr":
		return cfg.Server.Addr, nil
	case "server.mode":
		return cfg.Server.Mode, nil
	case "log.level":
		return cfg.Log.Level, nil
	case "log.path":
		return cfg.Log.Path, nil
	case "user.id":
		return cfg.User.ID, nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "ai.provider":
		if value != config.ProviderAnthropic && value != config.ProviderGemini {
			return fmt.Errorf("invalid ai.provider %q: want %s or %s", value, config.ProviderAnthropic, config.ProviderGemini)
		}
		cfg.AI.Provider = value
	case "ai.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for ai.timeout: %w", err)
		}
		cfg.AI.Timeout = d
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(config.ProviderAnthropic, value); err != nil {
			return err
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for anthropic.use_bedrock: %w", err)
		}
		cfg.Anthropic.UseBedrock = b
	case "anthropic.aws_region":
		cfg.Anthropic.AWSRegion = value
	case "anthropic.aws_profile":
		cfg.Anthropic.AWSProfile = value
	case "gemini.api_key":
		if err := config.ValidateAPIKey(config.ProviderGemini, value); err != nil {
			return err
		}
		cfg.Gemini.APIKey = value
	case "gemini.model":
		cfg.Gemini.Model = value
	case "storage.driver":
		if value != state.DriverSQLite && value != state.DriverSQLite3 {
			return fmt.Errorf("invalid storage.driver %q: want %s or %s", value, state.DriverSQLite, state.DriverSQLite3)
		}
		cfg.Storage.Driver = value
	case "storage.path":
		cfg.Storage.Path = value
	case "server.addr":
		cfg.Server.Addr = value
	case "server.mode":
		switch value {
		case "debug", "release", "test":
		default:
			return fmt.Errorf("invalid server.mode %q: want debug, release or test", value)
		}
		cfg.Server.Mode = value
	case "log.level":
		switch strings.ToLower(value) {
		case "debug", "info", "warn", "warning", "error":
		default:
			return fmt.Errorf("invalid log.level %q", value)
		}
		cfg.Log.Level = strings.ToLower(value)
	case "log.path":
		cfg.Log.Path = value
	case "user.id":
		cfg.User.ID = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
