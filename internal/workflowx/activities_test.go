package workflowx

import (
	"strings"
	"testing"

	"github.com/reliabot/agent/internal/model"
)

func TestBuildIssueBody_WithoutSummary(t *testing.T) {
	inc := model.Incident{Severity: model.SeverityHigh, Count: 3, FirstSeen: "1", LastSeen: "2", Evidence: []string{"boom"}}
	body := buildIssueBody(inc, nil)
	if !strings.Contains(body, "Severity: high") || !strings.Contains(body, "boom") {
		t.Errorf("body = %q", body)
	}
	if strings.Contains(body, "## Summary") {
		t.Errorf("body should not include a summary section when summary is nil")
	}
	if !strings.Contains(body, "## Analysis") || !strings.Contains(body, "not_configured_or_failed") {
		t.Errorf("body should mark a missing summary as not_configured_or_failed:\n%s", body)
	}
}

func TestBuildIssueBody_WithSummary(t *testing.T) {
	inc := model.Incident{Severity: model.SeverityHigh}
	summary := &model.IncidentSummary{Summary: "s", RootCause: "rc", RecommendedActions: []string{"do x"}}
	body := buildIssueBody(inc, summary)
	for _, want := range []string{"## Summary", "s", "## Root cause", "rc", "do x"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}
