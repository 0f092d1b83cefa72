package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/lumina-ai/recall-go/pkg/logging"
	"github.com/lumina-ai/recall-go/pkg/maintenance"
)

func serveCommand() *cli.Command {
	var (
		cfg      config
		schedule = maintenance.DefaultConfig()
	)

	flags := []cli.Flag{
		&cli.DurationFlag{
			Name:        "backup-interval",
			Usage:       "How often to take a daily-tier snapshot (0 disables)",
			Value:       schedule.BackupInterval,
			Destination: &schedule.BackupInterval,
		},
		&cli.DurationFlag{
			Name:        "prune-interval",
			Usage:       "How often to enforce snapshot retention (0 disables)",
			Value:       schedule.PruneInterval,
			Destination: &schedule.PruneInterval,
		},
		&cli.DurationFlag{
			Name:        "cleanup-interval",
			Usage:       "How often to remove expired inactive records (0 disables)",
			Value:       schedule.CleanupInterval,
			Destination: &schedule.CleanupInterval,
		},
		&cli.DurationFlag{
			Name:        "dedup-interval",
			Usage:       "How often to run the per-user duplicate sweep (0 disables)",
			Value:       schedule.DedupInterval,
			Destination: &schedule.DedupInterval,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the periodic maintenance jobs until interrupted",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := cfg.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			scheduler := maintenance.NewScheduler(client, schedule, logging.Default())
			scheduler.Start(ctx)
			fmt.Println("maintenance scheduler running, press Ctrl-C to stop")

			<-ctx.Done()
			scheduler.Stop()
			return nil
		},
	}
}
