package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lumina-ai/recall-go/pkg/core"
)

func retrieveCommand() *cli.Command {
	var (
		cfg    config
		userID string
		limit  int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User whose memories to search",
			Required:    true,
			Destination: &userID,
		},
		&cli.IntFlag{
			Name:        "limit",
			Aliases:     []string{"n"},
			Usage:       "Maximum number of facts to return",
			Value:       0,
			Destination: &limit,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "retrieve",
		Usage:     "Retrieve the most relevant facts for a query",
		ArgsUsage: "<query text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			query := c.Args().First()

			client, err := cfg.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			facts, err := client.Retrieve(ctx, userID, query, core.WithLimit(int(limit)))
			if err != nil {
				return err
			}
			if len(facts) == 0 {
				fmt.Println("no matching memories")
				return nil
			}
			for _, f := range facts {
				fmt.Printf("%.3f  [%s/%s]  %s\n", f.Score, f.MemoryType, f.Category, f.Fact)
			}
			return nil
		},
	}
}
