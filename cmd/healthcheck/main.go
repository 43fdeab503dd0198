// Command healthcheck probes every external dependency the agent
// relies on and exits 0 iff all configured checks pass (spec.md §6).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reliabot/agent/internal/config"
	"github.com/reliabot/agent/internal/healthz"
	"github.com/reliabot/agent/internal/logsource"
	"go.temporal.io/sdk/client"
)

func main() {
	if !run(context.Background(), config.FromEnv()) {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) bool {
	checker := &healthz.Checker{
		RetryAttempts: 3,
		RetryDelay:    2 * time.Second,
		DemoURL:       cfg.DemoURL,
	}

	if cfg.LokiURL != "" {
		logClient := logsource.New(cfg.LokiURL)
		checker.LogReady = logClient.Ready
	}

	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "healthcheck: postgres: %v\n", err)
			return false
		}
		defer pool.Close()
		checker.Pool = pool
	}

	if cfg.TemporalAddress != "" {
		tc, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
		if err != nil {
			fmt.Fprintf(os.Stderr, "healthcheck: temporal: %v\n", err)
			return false
		}
		defer tc.Close()
		checker.Temporal = tc
	}

	results, ok := checker.Run(ctx)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "healthcheck: %s: FAIL: %v\n", r.Name, r.Err)
		} else {
			fmt.Fprintf(os.Stderr, "healthcheck: %s: OK\n", r.Name)
		}
	}
	return ok
}
