package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func dedupCommand() *cli.Command {
	var (
		cfg    config
		userID string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User whose memories to sweep",
			Required:    true,
			Destination: &userID,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "dedup",
		Usage: "Run a duplicate sweep over a user's active memories",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := cfg.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			result, err := client.Deduplicate(ctx, userID)
			if err != nil {
				return err
			}
			fmt.Printf("found=%d merged=%d\n", result.Found, result.Merged)
			return nil
		},
	}
}

func cleanupCommand() *cli.Command {
	var (
		cfg  config
		days int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "older-than",
			Usage:       "Remove inactive records older than this many days (-1 uses the configured retention)",
			Value:       -1,
			Destination: &days,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "cleanup",
		Usage: "Physically remove expired inactive records",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := cfg.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := client.Cleanup(ctx, int(days))
			if err != nil {
				return err
			}
			fmt.Printf("removed %d records\n", n)
			return nil
		},
	}
}
