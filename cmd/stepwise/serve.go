package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/stepwise-app/stepwise/internal/config"
	"github.com/stepwise-app/stepwise/internal/logging"
	"github.com/stepwise-app/stepwise/internal/web"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve the Stepwise HTTP API.

Every /api request must carry the caller's id in the X-User-ID header.
The config file is watched while serving; log.level changes apply
without a restart.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := a.requester(ctx)
	if err != nil {
		return err
	}

	if path := watchedConfigPath(); path != "" {
		logger := a.logs.For("config")
		if _, err := config.Watch(path,
			func(next *config.Config) {
				level := logging.ParseLevel(next.Log.Level)
				if level != a.logs.Level() {
					a.logs.SetLevel(level)
					logger.Info("log level changed", "level", level)
				}
			},
			func(err error) { logger.Warn("config reload failed", "path", path, "error", err) },
		); err != nil {
			printStatus(cmd, "⚠", fmt.Sprintf("Not watching %s: %v", path, err), color.FgYellow)
		} else {
			printStatus(cmd, "✓", "Watching "+path, color.FgGreen)
		}
	}

	gin.SetMode(a.cfg.Server.Mode)
	srv := web.NewServer(a.db, req, web.WithLogger(a.logs.For("web")))

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	printStatus(cmd, "✓", fmt.Sprintf("Listening on http://%s (provider %s)", addr, a.cfg.AI.Provider), color.FgGreen)
	printStatus(cmd, "✓", "Logging to "+a.logs.Path(), color.FgGreen)

	if err := srv.Run(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serve: %w", err)
	}
	printStatus(cmd, "✓", "Stopped", color.FgGreen)
	return nil
}

// watchedConfigPath picks the most specific config file that exists.
func watchedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := config.GetProjectConfigPath(); p != "" {
		return p
	}
	if p := config.GetUserConfigPath(); fileExists(p) {
		return p
	}
	return ""
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
