// Command clubhouse manages a golf club's roster, outings, scores and fees.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmynk/clubhouse/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cli.Run(ctx, os.Args[1:], cli.Options{}); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			return 2
		}
		fmt.Fprintf(os.Stderr, "clubhouse: %v\n", err)
		return 1
	}
	return 0
}
