// Command worker runs the Temporal worker that hosts the reliability
// agent's workflow and activities (spec.md §4.8).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/reliabot/agent/internal/config"
	"github.com/reliabot/agent/internal/wiring"
	"github.com/reliabot/agent/internal/workflowx"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

const taskQueue = "reliability-agent"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.FromEnv()

	built, err := wiring.Build(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build dependencies: %w", err)
	}
	defer built.Close()

	tc, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		return fmt.Errorf("dial temporal: %w", err)
	}
	defer tc.Close()

	wkr := worker.New(tc, taskQueue, worker.Options{})
	wkr.RegisterWorkflow(workflowx.Run)
	wkr.RegisterActivity(built.Activities)

	fmt.Fprintf(os.Stderr, "worker: polling task queue %q at %s\n", taskQueue, cfg.TemporalAddress)

	if err := wkr.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	defer wkr.Stop()

	<-ctx.Done()
	fmt.Fprintln(os.Stderr, "worker: shutting down")
	return nil
}
