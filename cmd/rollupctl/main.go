// Command rollupctl is the control-plane CLI for the rollup orchestrator:
// it runs one-shot passes of PerformRollup/HandleRetries, provisions new
// rollup targets, reports operational stats, and can run its own cron
// scheduler in the foreground via "serve".
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anilpraneeth/time-series-rollup/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
