package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/okian/xianxia/internal/adapters/repository"
	"github.com/okian/xianxia/internal/adapters/terminal"
	service "github.com/okian/xianxia/internal/app"
	"github.com/okian/xianxia/internal/domain/catalog"
	"github.com/okian/xianxia/internal/domain/model"
	"github.com/okian/xianxia/pkg/logger"
)

// runner is a player input source.
type runner interface {
	Run(ctx context.Context) error
}

type battleOptions struct {
	enemies []string
	auto    bool
	seed    int64
	name    string
	noColor bool
}

func battleCmd(g *globals) *cobra.Command {
	o := &battleOptions{}
	cmd := &cobra.Command{
		Use:   "battle",
		Short: "Fight a battle in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBattle(cmd, g, o)
		},
	}
	cmd.Flags().StringSliceVarP(&o.enemies, "enemy", "e", []string{string(catalog.IronMountain)}, "enemy character ids, repeatable")
	cmd.Flags().BoolVar(&o.auto, "auto", false, "let the decision policy play the player")
	cmd.Flags().Int64Var(&o.seed, "seed", 0, "seed for decisions and narration (overrides ai_seed)")
	cmd.Flags().StringVar(&o.name, "name", "", "player name")
	cmd.Flags().BoolVar(&o.noColor, "no-color", false, "disable colored output")
	return cmd
}

func runBattle(cmd *cobra.Command, g *globals, o *battleOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if o.seed != 0 {
		g.cfg.AISeed = o.seed
	}
	cat, err := g.catalog()
	if err != nil {
		return err
	}
	svc := service.New(
		service.WithConfig(g.cfg),
		service.WithCatalog(cat),
		service.WithLogger(logger.Get()),
	)
	defer svc.Close()
	if o.name != "" {
		svc.SetName(o.name)
	}

	out := cmd.OutOrStdout()
	tty := isTerminal(out)
	blog := terminal.NewBattleLog(svc.Bus(), out,
		terminal.WithColor(tty && !o.noColor),
		terminal.WithLive(tty),
	)

	var input runner
	if o.auto {
		input = terminal.NewAutopilot(svc.Bus(), svc.PlayerID(), svc.NewPolicy())
	} else {
		input = terminal.NewPrompter(svc.Bus(), svc.PlayerID(), cmd.InOrStdin(), out)
	}

	rec, err := play(ctx, svc, input, enemyIDs(o.enemies))
	blog.Close()
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(out, "\nBattle abandoned.")
			return nil
		}
		return err
	}
	fmt.Fprintf(out, "\nResult: %s after %s\n", rec.Result, rec.Duration().Round(time.Millisecond))
	return nil
}

// play runs one battle with input answering the player's turns. Input that
// ends early aborts the battle.
func play(ctx context.Context, svc *service.Service, input runner, enemies []model.ParticipantID) (repository.Record, error) {
	inputCtx, cancelInput := context.WithCancel(ctx)
	defer cancelInput()

	var rec repository.Record
	g, gctx := errgroup.WithContext(inputCtx)
	g.Go(func() error {
		if err := input.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("player input: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		defer cancelInput()
		var err error
		rec, err = svc.Play(gctx, enemies...)
		return err
	})
	return rec, g.Wait()
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
