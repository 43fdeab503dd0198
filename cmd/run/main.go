// Command run triggers a single execution of the reliability agent's
// workflow and prints the result (spec.md §6's CLI surface).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/reliabot/agent/internal/config"
	"github.com/reliabot/agent/internal/model"
	"github.com/reliabot/agent/internal/workflowx"
	"go.temporal.io/sdk/client"
)

func main() {
	lookback := flag.Int("lookback", 60, "lookback window in minutes")
	query := flag.String("query", "", "LogQL query selecting events to ingest")
	escalate := flag.String("escalate-from", "", "severity floor for issue creation/auto-fix (low|medium|high|critical|none)")
	flag.Parse()

	cfg := config.FromEnv()

	if err := run(context.Background(), cfg, *lookback, *query, *escalate); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, lookback int, query, escalate string) error {
	tc, err := client.Dial(client.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		return fmt.Errorf("dial temporal: %w", err)
	}
	defer tc.Close()

	if escalate == "" {
		escalate = cfg.AutoEscalateFrom
	}

	opts := client.StartWorkflowOptions{
		ID:                       "reliability-agent-run-" + uuid.NewString(),
		TaskQueue:                "reliability-agent",
		WorkflowExecutionTimeout: config.RunExecutionTimeout,
	}

	input := workflowx.RunInput{LookbackMinutes: lookback, Query: query, AutoEscalateFrom: escalate}

	we, err := tc.ExecuteWorkflow(ctx, opts, workflowx.Run, input)
	if err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}

	var result model.RunResult
	if err := we.Get(ctx, &result); err != nil {
		return fmt.Errorf("workflow execution: %w", err)
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
