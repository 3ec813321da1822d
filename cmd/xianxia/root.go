package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/xianxia/internal/config"
	"github.com/okian/xianxia/internal/domain/catalog"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/pkg/logger"
	"github.com/okian/xianxia/pkg/metrics"
)

// globals is shared by every subcommand and filled before any of them runs.
type globals struct {
	configPath string
	logLevel   string

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:          "xianxia",
		Short:        "Real-time turn-timeline battles with narrated combat",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return g.load(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "YAML config file (defaults to $"+config.EnvFile+")")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log_level: debug, info, warn, error")

	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.AddCommand(battleCmd(g))
	root.AddCommand(serveCmd(g))
	root.AddCommand(remoteCmd(g))
	root.AddCommand(skillsCmd(g))
	root.AddCommand(versionCmd())
	return root
}

// load reads the configuration (defaults, file, env) and initializes the
// global logger on the command's stderr and the global metrics.
func (g *globals) load(cmd *cobra.Command) error {
	path := g.configPath
	if path == "" {
		path = os.Getenv(config.EnvFile)
	}
	cfg, err := config.LoadFile(cmd.Context(), path)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	if err := logger.Init(
		logger.WithWriter(cmd.ErrOrStderr()),
		logger.WithFormat(cfg.LogFormat),
	); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	metrics.Init(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsLatencyBucketsMS),
	)
	g.cfg = cfg
	return nil
}

// catalog returns the configured catalog, or the built-in one.
func (g *globals) catalog() (*catalog.Catalog, error) {
	if g.cfg.CatalogPath == "" {
		return catalog.Default(), nil
	}
	c, err := catalog.LoadFile(g.cfg.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return c, nil
}

func enemyIDs(names []string) []model.ParticipantID {
	ids := make([]model.ParticipantID, 0, len(names))
	for _, n := range names {
		if n != "" {
			ids = append(ids, model.ParticipantID(n))
		}
	}
	return ids
}
