package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage schema migrations",
		Commands: []*cli.Command{
			migrateUpCommand(),
			migrateDownCommand(),
			migrateStatusCommand(),
		},
	}
}

func migrateUpCommand() *cli.Command {
	var cfg config
	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:  "up",
		Usage: "Apply pending migrations",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := cfg.newBareClient()
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := client.MigrateUp(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("applied %d migrations\n", n)
			return nil
		},
	}
}

func migrateDownCommand() *cli.Command {
	var cfg config
	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:      "down",
		Usage:     "Roll back the most recent migration",
		ArgsUsage: "[migration-id]",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := cfg.newBareClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.MigrateDown(ctx, c.Args().First()); err != nil {
				return err
			}
			fmt.Println("rolled back")
			return nil
		},
	}
}

func migrateStatusCommand() *cli.Command {
	var cfg config
	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:  "status",
		Usage: "List migrations with their applied state",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := cfg.newBareClient()
			if err != nil {
				return err
			}
			defer client.Close()

			statuses, err := client.MigrationStatus(ctx)
			if err != nil {
				return err
			}
			for _, s := range statuses {
				state := "pending"
				if s.Applied {
					state = "applied " + s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				if s.Drifted {
					state += " (checksum drift)"
				}
				fmt.Printf("%s  %-32s %s\n", s.ID, s.Name, state)
			}
			return nil
		},
	}
}
