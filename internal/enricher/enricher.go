// Package enricher asks an LLM to summarize an incident and validates
// the reply against a fixed schema (spec.md §4.2).
package enricher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/reliabot/agent/internal/llmprovider"
	"github.com/reliabot/agent/internal/model"
)

var validate = validator.New()

// Enricher produces an IncidentSummary from an incident using a
// configured LLM provider. A nil Client means no provider is
// available; Summarize then returns nil, nil.
type Enricher struct {
	Client llmprovider.Client
}

const systemPrompt = `You are an SRE assistant. Given an incident record, respond with ONLY a JSON object matching this schema:
{
  "summary": string,
  "rootCause": string,
  "recommendedActions": [string, ...] (at least 1, at most 5),
  "suggestedSeverity": "low"|"medium"|"high"|"critical",
  "suggestedLabels": [string, ...] (at most 5),
  "confidence": number between 0 and 1
}
No prose outside the JSON object.`

// Summarize calls the LLM with the incident's title, severity, and
// evidence, extracts the JSON reply, and validates it. A failed LLM
// call is returned as a wrapped error. Every other failure — no
// provider, extraction failure, malformed JSON, schema violation —
// returns (nil, nil).
func (e *Enricher) Summarize(ctx context.Context, inc model.Incident) (*model.IncidentSummary, error) {
	if e.Client == nil {
		return nil, nil
	}

	prompt := buildPrompt(inc)
	reply, err := e.Client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("enricher: llm call: %w", err)
	}

	raw, ok := llmprovider.ExtractJSON(reply)
	if !ok {
		return nil, nil
	}

	var summary model.IncidentSummary
	if err := json.Unmarshal([]byte(raw), &summary); err != nil {
		return nil, nil
	}
	if err := validate.Struct(&summary); err != nil {
		return nil, nil
	}
	return &summary, nil
}

func buildPrompt(inc model.Incident) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incident: %s\nSeverity: %s\nCount: %d\nFirstSeen: %s\nLastSeen: %s\nEvidence:\n", inc.Title, inc.Severity, inc.Count, inc.FirstSeen, inc.LastSeen)
	for _, ev := range inc.Evidence {
		fmt.Fprintf(&b, "- %s\n", ev)
	}
	return b.String()
}
