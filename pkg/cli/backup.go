package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lumina-ai/recall-go/pkg/core"
)

func backupCommand() *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Manage memory snapshots",
		Commands: []*cli.Command{
			backupCreateCommand(),
			backupVerifyCommand(),
			backupRestoreCommand(),
			backupPruneCommand(),
		},
	}
}

func backupCreateCommand() *cli.Command {
	var (
		cfg        config
		backupType string
		scope      string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Snapshot tier (daily, weekly, monthly, manual)",
			Value:       "manual",
			Destination: &backupType,
		},
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "Limit the snapshot to one user",
			Destination: &scope,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "create",
		Usage: "Take a snapshot of the memory store",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := cfg.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			info, err := client.CreateBackup(ctx,
				core.WithBackupType(core.BackupType(backupType)),
				core.WithBackupScope(scope))
			if err != nil {
				return err
			}
			fmt.Printf("snapshot %s type=%s records=%d checksum=%s\n",
				info.ID, info.Type, info.RecordCount, info.Checksum)
			return nil
		},
	}
}

func backupVerifyCommand() *cli.Command {
	var cfg config
	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:      "verify",
		Usage:     "Check a snapshot against its checksum",
		ArgsUsage: "<snapshot-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("snapshot id is required")
			}

			client, err := cfg.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			if err := client.VerifyBackupIntegrity(ctx, id); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}

func backupRestoreCommand() *cli.Command {
	var cfg config
	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:      "restore",
		Usage:     "Replace the snapshot's scope with its contents",
		ArgsUsage: "<snapshot-id>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("snapshot id is required")
			}

			client, err := cfg.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := client.RestoreBackup(ctx, id)
			if err != nil {
				return err
			}
			fmt.Printf("restored %d records\n", n)
			return nil
		},
	}
}

func backupPruneCommand() *cli.Command {
	var cfg config
	flags := globalFlags(&cfg)

	return &cli.Command{
		Name:  "prune",
		Usage: "Delete snapshots beyond the retention policy",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			client, err := cfg.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			n, err := client.PruneBackups(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d snapshots\n", n)
			return nil
		},
	}
}
