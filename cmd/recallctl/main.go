package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lumina-ai/recall-go/pkg/cli"
)

func main() {
	ctx := context.Background()
	if err := cli.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Message)
		os.Exit(err.Code)
	}
}
