package workflowx

import (
	"sort"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/reliabot/agent/internal/config"
	"github.com/reliabot/agent/internal/model"
)

// RunInput is the workflow's input, per spec.md §4.8.
type RunInput struct {
	LookbackMinutes  int
	Query            string
	AutoEscalateFrom string // low|medium|high|critical|none
}

// Run is the workflow body. It is deterministic: every external effect
// — log query, detection, LLM call, issue creation, auto-fix — is
// delegated to an activity; the only workflow-level logic is ordering
// and the escalation-threshold check.
func Run(ctx workflow.Context, in RunInput) (model.RunResult, error) {
	var a *Activities

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: config.DefaultActivityTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: config.DefaultActivityAttempts},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	if err := workflow.ExecuteActivity(ctx, a.RefreshRepoCache).Get(ctx, nil); err != nil {
		return model.RunResult{}, err
	}

	var events []model.LogEvent
	if err := workflow.ExecuteActivity(ctx, a.FetchLogs, in.LookbackMinutes, in.Query).Get(ctx, &events); err != nil {
		return model.RunResult{}, err
	}

	var incidents []model.Incident
	if err := workflow.ExecuteActivity(ctx, a.DetectAndPersist, events).Get(ctx, &incidents); err != nil {
		return model.RunResult{}, err
	}
	incidents = sortedIncidents(incidents)

	autofixAO := workflow.ActivityOptions{
		StartToCloseTimeout: config.AutoFixActivityTimeout,
		RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: config.AutoFixActivityAttempts},
	}
	autofixCtx := workflow.WithActivityOptions(ctx, autofixAO)

	issuesCreated := 0
	if in.AutoEscalateFrom != "" && in.AutoEscalateFrom != "none" {
		floor := model.Severity(in.AutoEscalateFrom)
		for _, inc := range incidents {
			if !inc.Severity.AtLeast(floor) {
				continue
			}

			var summary *model.IncidentSummary
			_ = workflow.ExecuteActivity(ctx, a.Summarize, inc).Get(ctx, &summary)

			var issue model.IssueRef
			if err := workflow.ExecuteActivity(ctx, a.CreateIssue, inc, summary).Get(ctx, &issue); err != nil {
				continue
			}
			issuesCreated++

			var outcome model.AutoFixOutcome
			_ = workflow.ExecuteActivity(autofixCtx, a.RunAutoFix, inc, summary, issue.Number).Get(autofixCtx, &outcome)
		}
	}

	return model.RunResult{Incidents: incidents, IssuesCreated: issuesCreated}, nil
}

// sortedIncidents orders incidents by severity descending, then title
// ascending, per spec.md §5's replay-determinism requirement.
func sortedIncidents(incidents []model.Incident) []model.Incident {
	sorted := make([]model.Incident, len(incidents))
	copy(sorted, incidents)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := severityRank(sorted[i].Severity), severityRank(sorted[j].Severity)
		if ri != rj {
			return ri > rj
		}
		return sorted[i].Title < sorted[j].Title
	})
	return sorted
}

func severityRank(s model.Severity) int {
	switch s {
	case model.SeverityCritical:
		return 3
	case model.SeverityHigh:
		return 2
	case model.SeverityMedium:
		return 1
	case model.SeverityLow:
		return 0
	default:
		return -1
	}
}
