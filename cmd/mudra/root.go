package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logger"
)

// Version is the application version.
const Version = "0.3.0"

var (
	cfg  config.Config
	zlog *zap.Logger

	envFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:           "mudra",
	Short:         "Hands-free gesture and voice commands",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}

		var err error
		cfg, err = config.Load(files...)
		if err != nil {
			return err
		}
		if debug {
			cfg.Log.Debug = true
		}

		if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
			return fmt.Errorf("create data directory: %w", err)
		}
		zlog = logger.New(logger.Config{
			FilePath:   cfg.Log.FilePath,
			Production: cfg.Log.Production,
			Debug:      cfg.Log.Debug,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if zlog != nil {
			_ = zlog.Sync()
		}
	},
}

// Execute runs the root command with a context canceled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default: .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
}
