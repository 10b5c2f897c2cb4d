// Copyright 2024-2026 Aiku AI

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aiku/sockbot-mattermost/pkg/commands"
	"github.com/aiku/sockbot-mattermost/pkg/connector"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// These are filled at build time with -ldflags.
var (
	Tag       = "unknown"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configPath string
	saveConfig bool
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "sockbot-mattermost",
	Short:         "Sockbot forum provider for Mattermost",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger(logLevel)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return run(ctx, log)
	},
}

var exampleConfigCmd = &cobra.Command{
	Use:   "example-config",
	Short: "Print the example config file",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprint(cmd.OutOrStdout(), connector.ExampleConfig)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "sockbot-mattermost %s (commit %s, built %s)\n", Tag, Commit, BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the config file")
	rootCmd.PersistentFlags().BoolVar(&saveConfig, "save-config", false, "write the upgraded config back to disk")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.AddCommand(exampleConfigCmd, versionCmd)
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Str("version", Tag).
		Logger(), nil
}

func run(ctx context.Context, log zerolog.Logger) error {
	ctx = log.WithContext(ctx)
	cfg, err := connector.LoadConfig(configPath, saveConfig)
	if err != nil {
		return err
	}

	registry := commands.NewRegistry(cfg.CommandPrefix, log)
	registerBuiltins(registry)

	forum := connector.NewForum(*cfg, registry, log)
	if err := forum.AddPlugin(newMentionLogger, nil); err != nil {
		return err
	}
	if err := forum.Login(ctx); err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	if err := forum.Activate(ctx); err != nil {
		return fmt.Errorf("failed to activate: %w", err)
	}
	log.Info().Str("user_agent", forum.UserAgent()).Str("server_url", forum.URL()).Msg("Bot running")

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return forum.Close(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
