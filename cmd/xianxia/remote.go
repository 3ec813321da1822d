package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/xianxia/internal/app"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/internal/remote"
	"github.com/okian/xianxia/pkg/logger"
)

// Default remote configuration constants.
const (
	defaultRemoteTimeout = 10 * time.Second
	defaultRemotePoll    = 100 * time.Millisecond
)

type remoteOptions struct {
	url     string
	replays int
	battles int
	poll    time.Duration
	timeout time.Duration
}

func remoteCmd(g *globals) *cobra.Command {
	o := &remoteOptions{}
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Play the player's turns of a served battle over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRemote(cmd, g, o)
		},
	}
	cmd.Flags().StringVar(&o.url, "url", "http://localhost:9080", "base URL of the battle API")
	cmd.Flags().IntVar(&o.replays, "replays", 1, "copies of each choice to post concurrently")
	cmd.Flags().IntVar(&o.battles, "battles", 1, "finished battles to wait for; 0 plays until interrupted")
	cmd.Flags().DurationVar(&o.poll, "poll", defaultRemotePoll, "timeline poll interval")
	cmd.Flags().DurationVar(&o.timeout, "timeout", defaultRemoteTimeout, "HTTP request timeout")
	return cmd
}

func runRemote(cmd *cobra.Command, g *globals, o *remoteOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := logger.Get()

	cat, err := g.catalog()
	if err != nil {
		return err
	}
	player := remote.NewPlayer(
		remote.NewClient(o.url, remote.WithTimeout(o.timeout)),
		model.ParticipantID(g.cfg.PlayerID),
		remote.WithCatalog(cat),
		remote.WithPolicy(service.PolicyFrom(g.cfg, log.Named("policy"))),
		remote.WithPollInterval(o.poll),
		remote.WithReplays(o.replays),
		remote.WithBattles(o.battles),
		remote.WithLogger(log.Named("remote")),
	)
	stats, err := player.Run(ctx)
	stats.Log(ctx, log)
	if err != nil && ctx.Err() == nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "turns %d  battles %d  accepted %d  duplicate %d  conflict %d  failed %d\n",
		stats.Turns, stats.Battles, stats.Accepted, stats.Duplicate, stats.Conflict, stats.Failed)
	return nil
}
