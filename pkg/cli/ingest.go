package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/lumina-ai/recall-go/pkg/core"
)

func ingestCommand() *cli.Command {
	var (
		cfg          config
		userID       string
		memoryType   string
		category     string
		subject      string
		relationship string
		importance   float64
		confidence   float64
		source       string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "user",
			Aliases:     []string{"u"},
			Usage:       "User the fact belongs to",
			Required:    true,
			Destination: &userID,
		},
		&cli.StringFlag{
			Name:        "type",
			Aliases:     []string{"t"},
			Usage:       "Memory type (person, preference, event, topic, fact, emotion)",
			Required:    true,
			Destination: &memoryType,
		},
		&cli.StringFlag{
			Name:        "category",
			Usage:       "Free-text category refinement",
			Destination: &category,
		},
		&cli.StringFlag{
			Name:        "subject",
			Usage:       "Name of the person the fact is about",
			Destination: &subject,
		},
		&cli.StringFlag{
			Name:        "relationship",
			Usage:       "How the subject relates to the user",
			Destination: &relationship,
		},
		&cli.FloatFlag{
			Name:        "importance",
			Usage:       "Importance hint in [0,1]; negative lets the store score it",
			Value:       -1,
			Destination: &importance,
		},
		&cli.FloatFlag{
			Name:        "confidence",
			Usage:       "Confidence hint in [0,1]",
			Value:       -1,
			Destination: &confidence,
		},
		&cli.StringFlag{
			Name:        "source",
			Usage:       "Source conversation id",
			Destination: &source,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:      "ingest",
		Usage:     "Store a candidate fact",
		ArgsUsage: "<fact text>",
		Flags:     flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			fact := c.Args().First()
			if fact == "" {
				return fmt.Errorf("fact text is required")
			}

			client, err := cfg.newClient()
			if err != nil {
				return err
			}
			defer client.Close()

			opts := []core.IngestOption{core.WithCategory(category)}
			if subject != "" || relationship != "" {
				opts = append(opts, core.WithSubject(subject, relationship))
			}
			if importance >= 0 {
				opts = append(opts, core.WithImportance(importance))
			}
			if confidence >= 0 {
				opts = append(opts, core.WithConfidence(confidence))
			}
			if source != "" {
				opts = append(opts, core.WithSourceConversation(source))
			}

			result, err := client.Ingest(ctx, userID, core.MemoryType(memoryType), fact, opts...)
			if err != nil {
				return err
			}
			fmt.Printf("%s record=%d version=%d\n", result.Status, result.RecordID, result.Version)
			return nil
		},
	}
}
