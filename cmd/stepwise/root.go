package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stepwise-app/stepwise/internal/api"
	"github.com/stepwise-app/stepwise/internal/config"
	"github.com/stepwise-app/stepwise/internal/decompose"
	"github.com/stepwise-app/stepwise/internal/logging"
	"github.com/stepwise-app/stepwise/internal/state"
)

var (
	configPath string
	dbPath     string
	userFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "stepwise",
	Short: "Break tasks into small, timed steps",
	Long: `Stepwise turns a task you are putting off into a short list of concrete
steps, each with a difficulty and a time estimate.

With no arguments, opens the interactive task creator.

Core capabilities:
- Asks an AI (Anthropic or Gemini) to propose steps
- Lets you adjust difficulty and minutes, or break a step down further
- Saves the plan and tracks progress and time per step
- Serves the same features over an HTTP API`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runNew(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user config plus .stepwise.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database file (overrides storage.path)")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "User id (overrides user.id)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(logTimeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the explicit --config file or the layered defaults, then
// applies the command-line overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromPath(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if userFlag != "" {
		cfg.User.ID = userFlag
	}
	return cfg, nil
}

// app bundles what most commands need.
type app struct {
	cfg  *config.Config
	logs *logging.Logger
	db   *state.DB

	// usage is set once requester has built an AI client.
	usage *api.TokenTracker
}

// openApp loads config, starts logging and opens the migrated store.
func openApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logPath := cfg.Log.Path
	if logPath == "" {
		logPath = logging.DefaultLogPath()
	}
	logs := logging.New(logPath, logging.ParseLevel(cfg.Log.Level))

	path := cfg.Storage.Path
	if path == "" {
		path = state.DefaultDBPath()
	}
	db, err := state.OpenWithDriver(cfg.Storage.Driver, path)
	if err != nil {
		logs.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		logs.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	logs.For("cli").Debug("opened store", "driver", db.Driver(), "path", db.Path())
	return &app{cfg: cfg, logs: logs, db: db}, nil
}

func (a *app) Close() {
	if a.usage != nil && a.usage.Calls() > 0 {
		a.logs.For("ai").Info("ai usage", "tokens", a.usage)
	}
	a.db.Close()
	a.logs.Close()
}

func (a *app) userID() string {
	if a.cfg.User.ID == "" {
		return "local"
	}
	return a.cfg.User.ID
}

// requester builds the AI requester for the configured provider.
func (a *app) requester(ctx context.Context) (*decompose.Requester, error) {
	key, err := config.GetAPIKey(a.cfg)
	if err != nil {
		if errors.Is(err, config.ErrNoAPIKey) {
			return nil, fmt.Errorf("%w\n\nSet ANTHROPIC_API_KEY (or GEMINI_API_KEY with ai.provider: gemini),\nor run: stepwise config set anthropic.api_key <key>", err)
		}
		return nil, err
	}

	pc := api.ProviderConfig{
		Provider: a.cfg.AI.Provider,
		Anthropic: api.ClientConfig{
			Model:         api.AnthropicModel(a.cfg.Anthropic.Model),
			UseAWSBedrock: a.cfg.Anthropic.UseBedrock,
			AWSRegion:     a.cfg.Anthropic.AWSRegion,
			AWSProfile:    a.cfg.Anthropic.AWSProfile,
		},
		Gemini: api.GeminiConfig{Model: a.cfg.Gemini.Model},
	}
	if a.cfg.AI.Provider == config.ProviderGemini {
		pc.Gemini.APIKey = key
	} else {
		pc.Anthropic.APIKey = key
	}

	gen, err := api.NewGenerator(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("create AI client: %w", err)
	}
	a.usage = api.TrackerOf(gen)
	return decompose.New(gen,
		decompose.WithLogger(a.logs.For("decompose")),
		decompose.WithTimeout(a.cfg.AI.Timeout),
	), nil
}

func printStatus(cmd *cobra.Command, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", c.Sprint(symbol), message)
}
