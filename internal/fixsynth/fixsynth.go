// Package fixsynth asks an LLM to propose a fix for an incident, either
// as a strict unified diff or a full-file rewrite, using retrieved repo
// chunks as grounding context (spec.md §4.2, §4.7 steps 3-4).
package fixsynth

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

// Synthesizer proposes fixes via a configured LLM provider.
type Synthesizer struct {
	Client llmprovider.Client
}

const diffSystemPrompt = `You are an autonomous code-fixing agent. Respond with ONLY a JSON object:
{
  "summary": string,
  "reason": string,
  "testPlan": [string, ...] (at least 1),
  "diff": string
}
"diff" MUST be a strict unified diff: it must contain "diff --git a/... b/...", "--- a/...", "+++ b/...", and at least one "@@" hunk per touched file. Context lines must be copied verbatim from the provided retrieval chunks. No prose outside the JSON object.`

const rewriteSystemPrompt = `You are an autonomous code-fixing agent. Respond with ONLY a JSON object:
{
  "summary": string,
  "reason": string,
  "testPlan": [string, ...] (at least 1),
  "files": [{"path": string, "content": string}, ...]
}
Each "content" is the COMPLETE new contents of that file. No prose outside the JSON object.`

// ProposeDiff asks for a strict-unified-diff fix proposal.
func (s *Synthesizer) ProposeDiff(ctx context.Context, inc model.Incident, summary *model.IncidentSummary, chunks []model.RetrievedChunk) (*model.FixProposal, error) {
	return s.propose(ctx, diffSystemPrompt, inc, summary, chunks, model.FixKindDiff)
}

// ProposeRewrite asks for a full-file-rewrite fix proposal.
func (s *Synthesizer) ProposeRewrite(ctx context.Context, inc model.Incident, summary *model.IncidentSummary, chunks []model.RetrievedChunk) (*model.FixProposal, error) {
	return s.propose(ctx, rewriteSystemPrompt, inc, summary, chunks, model.FixKindRewrite)
}

func (s *Synthesizer) propose(ctx context.Context, systemPrompt string, inc model.Incident, summary *model.IncidentSummary, chunks []model.RetrievedChunk, kind model.FixKind) (*model.FixProposal, error) {
	if s.Client == nil {
		return nil, nil
	}

	prompt := buildPrompt(inc, summary, chunks)
	reply, err := s.Client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return nil, fmt.Errorf("fixsynth: llm call: %w", err)
	}

	raw, ok := llmprovider.ExtractJSON(reply)
	if !ok {
		return nil, nil
	}

	var proposal model.FixProposal
	if err := json.Unmarshal([]byte(raw), &proposal); err != nil {
		return nil, nil
	}
	if err := validate.Struct(&proposal); err != nil {
		return nil, nil
	}
	if kind == model.FixKindRewrite && len(proposal.Files) == 0 {
		return nil, nil
	}
	proposal.Kind = kind
	return &proposal, nil
}

func buildPrompt(inc model.Incident, summary *model.IncidentSummary, chunks []model.RetrievedChunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Incident: %s\nSeverity: %s\nEvidence:\n", inc.Title, inc.Severity)
	for _, ev := range inc.Evidence {
		fmt.Fprintf(&b, "- %s\n", ev)
	}
	if summary != nil {
		fmt.Fprintf(&b, "\nSummary: %s\nRoot cause: %s\n", summary.Summary, summary.RootCause)
	}
	if len(chunks) > 0 {
		b.WriteString("\nRelevant repository context:\n")
		for _, c := range chunks {
			fmt.Fprintf(&b, "--- %s ---\n%s\n", c.Path, c.Content)
		}
	}
	return b.String()
}
