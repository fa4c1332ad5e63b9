// Package cmd implements the cadence command line.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/llehouerou/cadence/internal/app"
	"github.com/llehouerou/cadence/internal/config"
	"github.com/llehouerou/cadence/internal/errmsg"
	"github.com/llehouerou/cadence/internal/library"
	"github.com/llehouerou/cadence/internal/logger"
)

var (
	flagDB       string
	flagLogLevel string
	flagVerbose  bool
)

var rootCmd = &cobra.Command{
	Use:           "cadence",
	Short:         "Cadence is a local music player.",
	Long:          "Cadence indexes local music folders and plays them from an interactive shell.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "also log to stderr")
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies command line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Console:    flagVerbose,
	})
}

// openApp builds the application. prompter answers folder permission
// requests; nil denies them.
func openApp(prompter library.Prompter, opts app.Options) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}
	opts.Prompter = prompter
	a, err := app.New(cfg, log, opts)
	if err != nil {
		_ = log.Sync()
		return nil, errors.New(errmsg.Format(errmsg.OpInitialize, err))
	}
	return a, nil
}

// closeApp closes a and flushes its logger.
func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		a.Log.Warn("close", zap.Error(err))
	}
	_ = a.Log.Sync()
}
