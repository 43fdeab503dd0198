// Package workflowx hosts the Temporal workflow and its activities:
// the durable orchestration loop that ties log ingestion, incident
// detection, LLM enrichment, issue tracking, and auto-fix together
// (spec.md §4.8).
package workflowx

import (
	"context"
	"fmt"
	"time"

	"github.com/reliabot/agent/internal/autofix"
	"github.com/reliabot/agent/internal/detector"
	"github.com/reliabot/agent/internal/enricher"
	"github.com/reliabot/agent/internal/forge"
	"github.com/reliabot/agent/internal/incidentstore"
	"github.com/reliabot/agent/internal/logsource"
	"github.com/reliabot/agent/internal/model"
	"github.com/reliabot/agent/internal/repocache"
	"github.com/reliabot/agent/internal/repoindexer"
)

// Activities holds every dependency the workflow's activities need.
// It is registered once per worker process; a nil field disables the
// activities that depend on it (e.g. no Enricher means Summarize
// always returns nil, nil).
type Activities struct {
	LogClient     *logsource.Client
	IncidentStore *incidentstore.Store
	RepoCache     *repocache.Cache
	Indexer       *repoindexer.Indexer
	Enricher      *enricher.Enricher
	Forge         *forge.Client
	AutoFix       *autofix.Engine

	RepoTarget  model.RepoTarget
	RepoURL     string
	IssueLabels []string
}

// RefreshRepoCache brings the local clone up to date and re-indexes it
// for retrieval, per spec.md §4.8 step 1.
func (a *Activities) RefreshRepoCache(ctx context.Context) error {
	if a.RepoCache == nil {
		return nil
	}
	dir, err := a.RepoCache.Ensure(ctx, a.RepoTarget, a.RepoURL, "")
	if err != nil {
		return fmt.Errorf("workflowx: refresh repo cache: %w", err)
	}
	if a.Indexer == nil {
		return nil
	}
	if _, err := a.Indexer.Run(ctx, a.RepoTarget.RepoKey(), dir); err != nil {
		return fmt.Errorf("workflowx: index repo: %w", err)
	}
	return nil
}

// FetchLogs queries the log backend over the trailing lookback window.
func (a *Activities) FetchLogs(ctx context.Context, lookbackMinutes int, query string) ([]model.LogEvent, error) {
	end := time.Now().UTC()
	start := end.Add(-time.Duration(lookbackMinutes) * time.Minute)
	events, err := a.LogClient.QueryRange(ctx, query, start, end, 0)
	if err != nil {
		return nil, fmt.Errorf("workflowx: fetch logs: %w", err)
	}
	return events, nil
}

// DetectAndPersist clusters events into incidents and writes them to
// the incident store. The detector itself is pure; persistence is the
// activity's only side effect.
func (a *Activities) DetectAndPersist(ctx context.Context, events []model.LogEvent) ([]model.Incident, error) {
	incidents := detector.Detect(events)
	if a.IncidentStore != nil {
		if err := a.IncidentStore.PersistAll(ctx, incidents); err != nil {
			return nil, fmt.Errorf("workflowx: persist incidents: %w", err)
		}
	}
	return incidents, nil
}

// Summarize asks the configured LLM provider to enrich inc.
func (a *Activities) Summarize(ctx context.Context, inc model.Incident) (*model.IncidentSummary, error) {
	if a.Enricher == nil {
		return nil, nil
	}
	return a.Enricher.Summarize(ctx, inc)
}

// CreateIssue opens a tracking issue for inc on the code forge.
func (a *Activities) CreateIssue(ctx context.Context, inc model.Incident, summary *model.IncidentSummary) (model.IssueRef, error) {
	if a.Forge == nil {
		return model.IssueRef{}, fmt.Errorf("workflowx: no forge client configured")
	}
	return a.Forge.CreateIssue(ctx, inc.Title, buildIssueBody(inc, summary), a.IssueLabels)
}

// RunAutoFix runs the auto-fix engine for inc's already-open issue.
func (a *Activities) RunAutoFix(ctx context.Context, inc model.Incident, summary *model.IncidentSummary, issueNumber int) (model.AutoFixOutcome, error) {
	if a.AutoFix == nil {
		return model.AutoFixOutcome{Status: "skipped"}, nil
	}
	return a.AutoFix.Run(ctx, inc, summary, issueNumber), nil
}

func buildIssueBody(inc model.Incident, summary *model.IncidentSummary) string {
	body := fmt.Sprintf("Severity: %s\nCount: %d\nFirst seen: %s\nLast seen: %s\n\nEvidence:\n", inc.Severity, inc.Count, inc.FirstSeen, inc.LastSeen)
	for _, ev := range inc.Evidence {
		body += fmt.Sprintf("- %s\n", ev)
	}
	if summary == nil {
		body += "\n## Analysis\n_not_configured_or_failed_\n"
		return body
	}
	body += fmt.Sprintf("\n## Summary\n%s\n\n## Root cause\n%s\n\n## Recommended actions\n", summary.Summary, summary.RootCause)
	for _, action := range summary.RecommendedActions {
		body += fmt.Sprintf("- %s\n", action)
	}
	return body
}
