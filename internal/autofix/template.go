package autofix

import (
	"fmt"
	"strings"

	"github.com/reliabot/agent/internal/model"
)

// maxOutputTailBytes is how much of the sandbox output is embedded in
// a pull request body (spec.md §4.7 step 10).
const maxOutputTailBytes = 4 * 1024

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// buildPRBody composes a pull-request body from the configured
// template (if any) plus the sections spec.md §4.7 step 10 mandates.
func buildPRBody(tmpl string, p *model.FixProposal, usedDiff bool, sandboxOutput string, issueNumber int) string {
	var b strings.Builder
	if tmpl != "" {
		b.WriteString(tmpl)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, "## What changed\n%s\n\n", p.Summary)
	fmt.Fprintf(&b, "## Why\n%s\n\n", p.Reason)

	b.WriteString("## Test plan\n")
	for _, step := range p.TestPlan {
		fmt.Fprintf(&b, "- %s\n", step)
	}
	fmt.Fprintf(&b, "\n```\n%s\n```\n\n", tail(sandboxOutput, maxOutputTailBytes))

	kind := "rewrite"
	if usedDiff {
		kind = "diff"
	}
	b.WriteString("## Safety checks\n")
	fmt.Fprintf(&b, "- proposal kind: %s\n", kind)
	b.WriteString("- touched paths checked against the safety denylist\n")
	b.WriteString("- applied and validated in an isolated sandbox before promotion\n\n")

	fmt.Fprintf(&b, "Closes #%d\n", issueNumber)
	return b.String()
}
