// Package cli implements the recallctl administrative command tree.
package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Error is a CLI failure with a process exit code.
type Error struct {
	Code    int
	Message string
}

// Run executes the command tree with the given arguments.
func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "recallctl",
		Usage: "Administer the user memory store",
		Commands: []*cli.Command{
			ingestCommand(),
			retrieveCommand(),
			dedupCommand(),
			cleanupCommand(),
			backupCommand(),
			migrateCommand(),
			serveCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
