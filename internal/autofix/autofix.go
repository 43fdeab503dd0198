// Package autofix implements the auto-fix engine: given an incident
// already tracked by an open issue, it retrieves repo context,
// synthesizes a diff or full-file rewrite, validates and sandboxes it,
// and — on success — promotes the change to a pull request
// (spec.md §4.7).
package autofix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/reliabot/agent/internal/config"
	"github.com/reliabot/agent/internal/fixsynth"
	"github.com/reliabot/agent/internal/forge"
	"github.com/reliabot/agent/internal/model"
	"github.com/reliabot/agent/internal/repocache"
	"github.com/reliabot/agent/internal/retriever"
	"github.com/reliabot/agent/internal/sandbox"
)

// Engine runs the auto-fix pipeline for one incident at a time.
type Engine struct {
	Enabled  bool
	Severity string // low|medium|high|critical|all — the gating floor

	RepoCache *repocache.Cache
	Retriever *retriever.Retriever
	Synth     *fixsynth.Synthesizer
	Forge     *forge.Client
	Sandbox   *sandbox.Executor

	RepoTarget       model.RepoTarget
	RepoURL          string
	ExplicitRepoPath string // AUTO_FIX_REPO_PATH, preferred over RepoCache

	DefaultBranch string
	GitUserName   string
	GitUserEmail  string
	BranchPrefix  string

	TestCommand    string
	InstallCommand string
	SandboxImage   string

	PRTemplate string

	TopK     int
	MinScore float64
}

// Run executes the full pipeline for inc, whose tracking issue is
// issueNumber. It never returns a Go error: every failure mode is
// caught and reported as an AutoFixOutcome, with a best-effort comment
// left on the issue, per spec.md §4.7's final paragraph.
func (e *Engine) Run(ctx context.Context, inc model.Incident, summary *model.IncidentSummary, issueNumber int) (outcome model.AutoFixOutcome) {
	defer func() {
		if r := recover(); r != nil {
			e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("auto-fix panicked: %v", r))
			outcome = model.AutoFixOutcome{Status: "failed: unexpected_error"}
		}
	}()

	if !e.Enabled || !meetsFloor(inc.Severity, e.Severity) {
		return model.AutoFixOutcome{Status: "skipped"}
	}

	repoDir, err := e.resolveRepoDir(ctx)
	if err != nil {
		e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("auto-fix could not resolve the repository: %v", err))
		return model.AutoFixOutcome{Status: "skipped"}
	}

	query := buildQuery(inc, summary)
	var chunks []model.RetrievedChunk
	if e.Retriever != nil {
		chunks, _ = e.Retriever.Retrieve(ctx, e.RepoTarget.RepoKey(), query, e.TopK, e.MinScore)
	}

	proposal, usedDiff, failStatus := e.synthesizeProposal(ctx, repoDir, inc, summary, chunks, issueNumber)
	if proposal == nil {
		return model.AutoFixOutcome{Status: failStatus}
	}

	for _, p := range proposalTouchedPaths(proposal) {
		if isDenylisted(p) {
			e.commentBestEffort(ctx, issueNumber, "auto-fix aborted: proposal touches a disallowed path")
			return model.AutoFixOutcome{Status: "failed: unsafe_files"}
		}
	}

	stageDir, cleanup, err := stageWorkspace(repoDir)
	if err != nil {
		e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("auto-fix could not stage a workspace: %v", err))
		return model.AutoFixOutcome{Status: "failed: unexpected_error"}
	}
	defer cleanup()

	proposal, usedDiff, ok := e.applyWithFallback(ctx, stageDir, repoDir, proposal, usedDiff, inc, summary, chunks)
	if !ok {
		e.commentBestEffort(ctx, issueNumber, "auto-fix could not apply the proposed change to a sandbox workspace")
		return model.AutoFixOutcome{Status: "failed: invalid_diff"}
	}

	if status, ok := e.runInstall(ctx, stageDir, issueNumber); !ok {
		return model.AutoFixOutcome{Status: status}
	}

	testOutput, status, ok := e.runTests(ctx, stageDir, issueNumber)
	if !ok {
		return model.AutoFixOutcome{Status: status}
	}

	branch, err := e.promote(ctx, repoDir, inc, proposal)
	if err != nil {
		if errors.Is(err, errDirtyRepo) {
			e.commentBestEffort(ctx, issueNumber, "auto-fix aborted: the repository clone has uncommitted changes")
			return model.AutoFixOutcome{Status: "failed: dirty_repo"}
		}
		e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("auto-fix could not prepare a branch: %v", err))
		return model.AutoFixOutcome{Status: "failed: unexpected_error"}
	}

	body := buildPRBody(e.PRTemplate, proposal, usedDiff, testOutput, issueNumber)
	prURL, err := e.Forge.CreatePullRequest(ctx, "fix: "+inc.Title, branch, e.DefaultBranch, body, []string{"autofix"})
	if err != nil {
		e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("auto-fix could not open a pull request: %v", err))
		return model.AutoFixOutcome{Status: "failed: pr_create_failed"}
	}

	e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("Opened a fix: %s", prURL))
	return model.AutoFixOutcome{Status: "opened", PRURL: prURL}
}

func (e *Engine) resolveRepoDir(ctx context.Context) (string, error) {
	if e.ExplicitRepoPath != "" {
		return e.ExplicitRepoPath, nil
	}
	if e.RepoCache == nil {
		return "", fmt.Errorf("autofix: no repo path or repo cache configured")
	}
	return e.RepoCache.Ensure(ctx, e.RepoTarget, e.RepoURL, "")
}

// synthesizeProposal runs spec.md §4.7 steps 3-4: try a strict diff
// first, fall back to a full-file rewrite.
func (e *Engine) synthesizeProposal(ctx context.Context, repoDir string, inc model.Incident, summary *model.IncidentSummary, chunks []model.RetrievedChunk, issueNumber int) (*model.FixProposal, bool, string) {
	if e.Synth == nil {
		return nil, false, "skipped"
	}

	diff, err := e.Synth.ProposeDiff(ctx, inc, summary, chunks)
	if err == nil && diff != nil {
		if len(diff.Diff) > MaxDiffBytes {
			e.commentBestEffort(ctx, issueNumber, "auto-fix aborted: proposed diff exceeds the size limit")
			return nil, false, "failed: diff_too_large"
		}
		if ValidateDiffShape(diff.Diff) && len(ExtractDiffFiles(diff.Diff)) > 0 {
			return diff, true, ""
		}
	}

	rewrite, err := e.Synth.ProposeRewrite(ctx, inc, summary, chunks)
	if err != nil || rewrite == nil || !validateRewriteProposal(rewrite, repoDir) {
		e.commentBestEffort(ctx, issueNumber, "auto-fix could not synthesize a valid fix proposal")
		return nil, false, "failed: rewrite_invalid"
	}
	return rewrite, false, ""
}

// applyWithFallback applies proposal to stageDir; if a diff fails to
// apply it regenerates a rewrite and applies that instead, per
// spec.md §4.7 step 6.
func (e *Engine) applyWithFallback(ctx context.Context, stageDir, repoDir string, proposal *model.FixProposal, usedDiff bool, inc model.Incident, summary *model.IncidentSummary, chunks []model.RetrievedChunk) (*model.FixProposal, bool, bool) {
	if applyProposal(ctx, stageDir, proposal) == nil {
		return proposal, usedDiff, true
	}
	if !usedDiff {
		return proposal, usedDiff, false
	}

	rewrite, err := e.Synth.ProposeRewrite(ctx, inc, summary, chunks)
	if err != nil || rewrite == nil || !validateRewriteProposal(rewrite, repoDir) {
		return proposal, usedDiff, false
	}
	for _, p := range proposalTouchedPaths(rewrite) {
		if isDenylisted(p) {
			return proposal, usedDiff, false
		}
	}
	if applyProposal(ctx, stageDir, rewrite) != nil {
		return proposal, usedDiff, false
	}
	return rewrite, false, true
}

func (e *Engine) runInstall(ctx context.Context, stageDir string, issueNumber int) (string, bool) {
	if e.InstallCommand == "" {
		return "", true
	}
	if _, err := os.Stat(filepath.Join(stageDir, "package.json")); err != nil {
		return "", true
	}
	res, err := e.runSandbox(ctx, stageDir, e.InstallCommand, config.SandboxInstallTimeout)
	if err != nil {
		e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("auto-fix sandbox install errored: %v", err))
		return "failed: sandbox_install_failed", false
	}
	if res.ExitCode != 0 {
		e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("auto-fix install failed:\n```\n%s\n```", tail(res.Output, maxOutputTailBytes)))
		return "failed: sandbox_install_failed", false
	}
	return "", true
}

func (e *Engine) runTests(ctx context.Context, stageDir string, issueNumber int) (string, string, bool) {
	if e.TestCommand == "" {
		return "", "", true
	}
	res, err := e.runSandbox(ctx, stageDir, e.TestCommand, config.SandboxInstallTimeout)
	if err != nil {
		e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("auto-fix sandbox test run errored: %v", err))
		return "", "failed: sandbox_validation_failed", false
	}
	if res.ExitCode != 0 {
		e.commentBestEffort(ctx, issueNumber, fmt.Sprintf("auto-fix tests failed:\n```\n%s\n```", tail(res.Output, maxOutputTailBytes)))
		return res.Output, "failed: sandbox_validation_failed", false
	}
	return res.Output, "", true
}

func (e *Engine) runSandbox(ctx context.Context, stageDir, command string, timeout time.Duration) (sandbox.Result, error) {
	if e.Sandbox == nil {
		return sandbox.Result{}, fmt.Errorf("autofix: sandbox executor not configured")
	}
	return e.Sandbox.Run(ctx, sandbox.Request{
		Image:     e.SandboxImage,
		Command:   []string{"/bin/sh", "-lc", command},
		Workdir:   "/workspace",
		Mounts:    []sandbox.Mount{{Source: stageDir, Target: "/workspace"}},
		TimeoutMs: int(timeout.Milliseconds()),
	})
}

// promote applies proposal to the real clone at repoDir, on a fresh
// branch, and pushes it upstream (spec.md §4.7 step 9).
func (e *Engine) promote(ctx context.Context, repoDir string, inc model.Incident, proposal *model.FixProposal) (string, error) {
	clean, err := gitClean(ctx, repoDir)
	if err != nil {
		return "", fmt.Errorf("check clean: %w", err)
	}
	if !clean {
		return "", errDirtyRepo
	}
	if err := gitCheckout(ctx, repoDir, e.DefaultBranch, false); err != nil {
		return "", fmt.Errorf("checkout default branch: %w", err)
	}
	if err := applyProposal(ctx, repoDir, proposal); err != nil {
		return "", fmt.Errorf("apply proposal to clone: %w", err)
	}

	branch := e.BranchPrefix + "/" + inc.ID
	if err := gitCheckout(ctx, repoDir, branch, true); err != nil {
		return "", fmt.Errorf("create branch: %w", err)
	}

	name, email := e.gitIdentity()
	if err := gitConfigIdentity(ctx, repoDir, name, email); err != nil {
		return "", fmt.Errorf("set git identity: %w", err)
	}
	if err := gitAddAll(ctx, repoDir); err != nil {
		return "", fmt.Errorf("stage changes: %w", err)
	}
	if err := gitCommit(ctx, repoDir, "fix: "+inc.Title); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if err := gitPush(ctx, repoDir, branch); err != nil {
		return "", fmt.Errorf("push: %w", err)
	}
	return branch, nil
}

func (e *Engine) gitIdentity() (string, string) {
	name := e.GitUserName
	if name == "" {
		name = e.RepoTarget.Owner
	}
	email := e.GitUserEmail
	if email == "" {
		email = e.RepoTarget.Owner + "@users.noreply.github.com"
	}
	return name, email
}

func (e *Engine) commentBestEffort(ctx context.Context, issueNumber int, body string) {
	if e.Forge == nil || issueNumber == 0 {
		return
	}
	_ = e.Forge.CreateComment(ctx, issueNumber, body)
}

func meetsFloor(sev model.Severity, floor string) bool {
	if floor == "" || floor == "all" {
		return true
	}
	return sev.AtLeast(model.Severity(floor))
}

func buildQuery(inc model.Incident, summary *model.IncidentSummary) string {
	q := inc.Title
	if summary != nil {
		q += " " + summary.Summary
	}
	for _, ev := range inc.Evidence {
		q += " " + ev
	}
	return q
}
