package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/xianxia/internal/adapters/terminal"
	service "github.com/okian/xianxia/internal/app"
	"github.com/okian/xianxia/internal/domain/catalog"
	"github.com/okian/xianxia/pkg/logger"
)

const serviceMetricsInterval = 5 * time.Second

type serveOptions struct {
	addr    string
	enemies []string
	rounds  int
	auto    bool
}

func serveCmd(g *globals) *cobra.Command {
	o := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run battles whose player is driven over the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g, o)
		},
	}
	cmd.Flags().StringVar(&o.addr, "addr", "", "listen address (overrides addr)")
	cmd.Flags().StringSliceVarP(&o.enemies, "enemy", "e", []string{string(catalog.IronMountain)}, "enemy character ids, repeatable")
	cmd.Flags().IntVar(&o.rounds, "rounds", 1, "battles to run before only serving results; 0 runs until interrupted")
	cmd.Flags().BoolVar(&o.auto, "auto", false, "let the decision policy play the player instead of HTTP clients")
	return cmd
}

func runServe(cmd *cobra.Command, g *globals, o *serveOptions) error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.Get()

	addr := g.cfg.Addr
	if o.addr != "" {
		addr = o.addr
	}
	cat, err := g.catalog()
	if err != nil {
		return err
	}
	svc := service.New(
		service.WithConfig(g.cfg),
		service.WithCatalog(cat),
		service.WithLogger(log),
	)
	defer svc.Close()

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return svc.Serve(gctx, addr) })
	grp.Go(func() error {
		startServiceMetricsUpdater(gctx, svc)
		return nil
	})
	if o.auto {
		pilot := terminal.NewAutopilot(svc.Bus(), svc.PlayerID(), svc.NewPolicy())
		grp.Go(func() error {
			if err := pilot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	grp.Go(func() error {
		for i := 0; o.rounds == 0 || i < o.rounds; i++ {
			rec, err := svc.Play(gctx, enemyIDs(o.enemies)...)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			log.Info(gctx, "round finished",
				logger.Int("round", i+1),
				logger.String("state_id", rec.StateID),
				logger.String("result", rec.Result),
			)
		}
		log.Info(gctx, "all rounds played; serving results until interrupted")
		return nil
	})
	return grp.Wait()
}

// startServiceMetricsUpdater refreshes the service gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.Stats(ctx)
		}
	}
}
