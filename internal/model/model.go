// Package model holds the data types shared across the incident
// orchestration pipeline: log events, incidents, repo targets and
// chunks, and fix proposals.
package model

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Severity is the ordered incident severity scale. Order matters: it is
// used both for escalation-threshold comparisons and for sorting
// incidents before they are acted on.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityRank gives the literal order low < medium < high < critical.
var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// AtLeast reports whether s is ranked at or above floor. Unknown
// severities never satisfy a floor.
func (s Severity) AtLeast(floor Severity) bool {
	sr, ok := severityRank[s]
	if !ok {
		return false
	}
	fr, ok := severityRank[floor]
	if !ok {
		return false
	}
	return sr >= fr
}

// LogEvent is a single timestamped log line returned by the log
// backend. Timestamp is nanoseconds-since-epoch rendered as a decimal
// string, matching the wire format of the log backend (§6).
type LogEvent struct {
	Timestamp string            `json:"timestamp"`
	Message   string            `json:"message"`
	Labels    map[string]string `json:"labels,omitempty"`
}

// maxEvidence caps the number of evidence messages carried per incident.
const maxEvidence = 5

// Incident is one clustered signal bucket discovered in a single
// detector run. Incidents are not deduplicated across runs.
type Incident struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Severity   Severity `json:"severity"`
	Evidence   []string `json:"evidence"`
	FirstSeen  string   `json:"firstSeen"`
	LastSeen   string   `json:"lastSeen"`
	Count      int      `json:"count"`
	Labels     []string `json:"labels,omitempty"`
}

// MaxEvidence is the cap applied to Incident.Evidence.
const MaxEvidence = maxEvidence

// IncidentSummary is the optional LLM-produced enrichment of an
// Incident. It is only ever non-nil when a provider produced a
// schema-valid reply.
type IncidentSummary struct {
	Summary            string   `json:"summary" validate:"required"`
	RootCause          string   `json:"rootCause" validate:"required"`
	RecommendedActions []string `json:"recommendedActions" validate:"required,min=1"`
	SuggestedSeverity  Severity `json:"suggestedSeverity" validate:"required"`
	SuggestedLabels    []string `json:"suggestedLabels" validate:"max=5"`
	Confidence         float64  `json:"confidence" validate:"gte=0,lte=1"`
}

// RepoTarget identifies a repository on a code-forge host.
type RepoTarget struct {
	Host  string
	Owner string
	Repo  string
}

// CanonicalHost is the host whose repoKey omits the host segment.
const CanonicalHost = "github.com"

// RepoKey returns the partitioning key used for all per-repo state:
// "owner/repo" on the canonical host, "host/owner/repo" otherwise.
func (t RepoTarget) RepoKey() string {
	if t.Host == "" || t.Host == CanonicalHost {
		return t.Owner + "/" + t.Repo
	}
	return t.Host + "/" + t.Owner + "/" + t.Repo
}

// ParseRepoURL derives a RepoTarget from a clone URL, per spec.md §3's
// "derived from either a URL or owner/repo pair". Accepts HTTPS
// ("https://host/owner/repo(.git)") and SSH ("git@host:owner/repo.git")
// forms.
func ParseRepoURL(rawURL string) (RepoTarget, error) {
	rawURL = strings.TrimSuffix(strings.TrimSpace(rawURL), ".git")

	if strings.HasPrefix(rawURL, "git@") {
		rest := strings.TrimPrefix(rawURL, "git@")
		host, path, ok := strings.Cut(rest, ":")
		if !ok {
			return RepoTarget{}, fmt.Errorf("model: parse repo url %q: missing ':' in SSH form", rawURL)
		}
		owner, repo, ok := strings.Cut(path, "/")
		if !ok || owner == "" || repo == "" {
			return RepoTarget{}, fmt.Errorf("model: parse repo url %q: expected owner/repo", rawURL)
		}
		return RepoTarget{Host: host, Owner: owner, Repo: repo}, nil
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return RepoTarget{}, fmt.Errorf("model: parse repo url %q: %w", rawURL, err)
	}
	path := strings.Trim(u.Path, "/")
	owner, repo, ok := strings.Cut(path, "/")
	if !ok || owner == "" || repo == "" {
		return RepoTarget{}, fmt.Errorf("model: parse repo url %q: expected /owner/repo path", rawURL)
	}
	return RepoTarget{Host: u.Host, Owner: owner, Repo: repo}, nil
}

// RepoChunk is one chunk of a file indexed under a repoKey. The triple
// (RepoKey, Path, ChunkIndex) is unique; ID is derived from it.
type RepoChunk struct {
	RepoKey      string
	Path         string
	ChunkIndex   int
	Content      string
	ContentHash  string
	Embedding    []float32
	UpdatedAt    time.Time
}

// ID returns the stable row identity "<repoKey>:<path>:<chunkIndex>".
func (c RepoChunk) ID() string {
	return c.RepoKey + ":" + c.Path + ":" + strconv.Itoa(c.ChunkIndex)
}

// RepoIndexState records the revision at which repoKey was last fully
// synchronised into the vector store.
type RepoIndexState struct {
	RepoKey   string
	HeadSHA   string
	UpdatedAt time.Time
}

// RetrievedChunk is one result from the retriever: a chunk plus its
// similarity score against the query embedding.
type RetrievedChunk struct {
	Path    string
	Content string
	Score   float64
}

// FixKind distinguishes the two FixProposal variants.
type FixKind string

const (
	FixKindDiff    FixKind = "diff"
	FixKindRewrite FixKind = "rewrite"
)

// RewriteFile is one full-file replacement in a Rewrite proposal.
type RewriteFile struct {
	Path    string `json:"path" validate:"required"`
	Content string `json:"content"`
}

// FixProposal is the sum type produced by the fix synthesizer: exactly
// one of Diff or Rewrite is populated, selected by Kind.
type FixProposal struct {
	Kind FixKind

	Summary  string   `json:"summary" validate:"required"`
	Reason   string   `json:"reason" validate:"required"`
	TestPlan []string `json:"testPlan" validate:"required,min=1"`

	// Diff variant.
	Diff string `json:"diff,omitempty"`

	// Rewrite variant. Kind is assigned by the caller after unmarshal, so
	// a struct tag can't condition on it; the non-empty-when-rewrite
	// invariant is enforced by fixsynth.propose and
	// autofix.validateRewriteProposal instead.
	Files []RewriteFile `json:"files,omitempty" validate:"omitempty,dive"`
}

// RunResult is the value returned by one workflow execution.
type RunResult struct {
	Incidents     []Incident `json:"incidents"`
	IssuesCreated int        `json:"issuesCreated"`
}

// IssueRef identifies a created code-forge issue.
type IssueRef struct {
	Number int
	URL    string
}

// AutoFixOutcome is the structured result of one auto-fix engine run.
type AutoFixOutcome struct {
	Status string // "opened", "skipped", or "failed: <reason>"
	PRURL  string
}
