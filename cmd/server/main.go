package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/chatrelay/internal/app"
	"github.com/vovakirdan/chatrelay/internal/auth"
	"github.com/vovakirdan/chatrelay/internal/config"
	"github.com/vovakirdan/chatrelay/internal/log"
	"github.com/vovakirdan/chatrelay/internal/validate"
)

type rootFlags struct {
	configPath string
	overrides  config.Config
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:          "chatrelay",
		Short:        "Real-time WebSocket chat relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags)
		},
	}
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&flags.overrides.Addr, "addr", "", "HTTP listen address")
	root.PersistentFlags().StringVar(&flags.overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.overrides.LogFormat, "log-format", "", "log format (console, json)")
	root.PersistentFlags().DurationVar(&flags.overrides.ShutdownTimeout, "shutdown-timeout", 0, "graceful shutdown timeout")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the chat relay (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), flags)
		},
	})
	root.AddCommand(&cobra.Command{
		Use:   "token <username>",
		Short: "Mint a signed connection token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mintToken(cmd, flags, args[0])
		},
	})
	return root
}

func loadConfig(flags *rootFlags) (config.Config, error) {
	bootLogger := log.New("info", "console")

	cfg, path, err := config.Load(bootLogger, flags.configPath)
	if err != nil {
		return cfg, err
	}
	cfg.UpdateFrom(flags.overrides)
	if err := config.Validate(cfg); err != nil {
		return cfg, err
	}
	bootLogger.Debug().Str("path", path).Msg("config loaded")
	return cfg, nil
}

func serve(parent context.Context, flags *rootFlags) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := log.New(cfg.LogLevel, cfg.LogFormat)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting chatrelay")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

func mintToken(cmd *cobra.Command, flags *rootFlags, username string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is not configured")
	}

	rules := validate.Rules{MaxUsernameLength: cfg.MaxUsernameLength}
	name, ok := rules.Username(username)
	if !ok {
		return fmt.Errorf("invalid username %q (alphanumeric/underscore, max %d chars)", username, cfg.MaxUsernameLength)
	}

	token, err := auth.GenerateToken(app.JWTConfig(&cfg), name)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
	return err
}
