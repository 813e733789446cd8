package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	clientcmd "github.com/rzbill/podium/internal/cmd/client"
	serverrun "github.com/rzbill/podium/internal/cmd/server"
	cfgpkg "github.com/rzbill/podium/internal/config"
	pebblestore "github.com/rzbill/podium/internal/storage/pebble"
	logpkg "github.com/rzbill/podium/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect PODIUM_LOG_LEVEL for both CLI and server start output
	level := os.Getenv("PODIUM_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
	)

	// Redirect standard library logs (used by Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "podium",
		Short: "Podium runtime CLI",
		Long:  "Podium is a single-binary score projection runtime. This CLI manages the server and board operations.",
	}

	// server start
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start podium server (HTTP API + projection pipeline)",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			configPath, _ := cmd.Flags().GetString("config")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			mode := pebblestore.FsyncModeAlways
			switch fsyncMode {
			case "never":
				mode = pebblestore.FsyncModeNever
			case "interval":
				mode = pebblestore.FsyncModeInterval
			case "always":
				mode = pebblestore.FsyncModeAlways
			default:
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfgpkg.FromEnv(&cfg)

			runLevel := parsed
			if logLevel != "" {
				if lv, err := logpkg.ParseLevel(logLevel); err == nil {
					runLevel = lv
				}
			}
			var formatter logpkg.Formatter = &logpkg.TextFormatter{}
			if logFormat == "json" {
				formatter = &logpkg.JSONFormatter{}
			}
			runLogger := logpkg.NewLogger(
				logpkg.WithLevel(runLevel),
				logpkg.WithFormatter(formatter),
			)

			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       dataDir,
				HTTPAddr:      httpAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(fsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
				Logger:        runLogger,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			// brief delay to allow logs flush
			time.Sleep(100 * time.Millisecond)
			return nil
		},
	}
	serverStartCmd.Flags().String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	serverStartCmd.Flags().String("http", ":8080", "HTTP listen address")
	serverStartCmd.Flags().String("config", os.Getenv("PODIUM_CONFIG"), "Path to JSON config file (optional)")
	serverStartCmd.Flags().String("fsync", "always", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 5, "When --fsync=interval, group-commit window in ms (default 5)")
	serverStartCmd.Flags().String("log-level", os.Getenv("PODIUM_LOG_LEVEL"), "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", os.Getenv("PODIUM_LOG_FORMAT"), "Log format: text|json (default text)")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	// client command groups (migrated into internal/cmd/client)
	rootCmd.AddCommand(clientcmd.NewScoreCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewBoardCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewAdminCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("PODIUM_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
