package autofix

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/reliabot/agent/internal/model"
)

var errDirtyRepo = errors.New("autofix: repository has uncommitted changes")

func gitRun(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func gitOutput(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

func gitClean(ctx context.Context, dir string) (bool, error) {
	out, err := gitOutput(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

func gitCheckout(ctx context.Context, dir, ref string, create bool) error {
	args := []string{"checkout"}
	if create {
		args = append(args, "-b")
	}
	args = append(args, ref)
	return gitRun(ctx, dir, args...)
}

func gitConfigIdentity(ctx context.Context, dir, name, email string) error {
	if err := gitRun(ctx, dir, "config", "user.name", name); err != nil {
		return err
	}
	return gitRun(ctx, dir, "config", "user.email", email)
}

func gitAddAll(ctx context.Context, dir string) error {
	return gitRun(ctx, dir, "add", "-A")
}

func gitCommit(ctx context.Context, dir, msg string) error {
	return gitRun(ctx, dir, "commit", "-m", msg)
}

func gitPush(ctx context.Context, dir, branch string) error {
	return gitRun(ctx, dir, "push", "-u", "origin", branch)
}

// applyPatch writes diffText to a scratch file under dir and applies it
// with `git apply --whitespace=fix`. If that fails, it strips
// non-patch lines from diffText and retries exactly once, per spec.md
// §4.7 step 6.
func applyPatch(ctx context.Context, dir, diffText string) error {
	patchPath := filepath.Join(dir, ".autofix.patch")
	defer os.Remove(patchPath)

	if err := os.WriteFile(patchPath, []byte(diffText), 0o644); err != nil {
		return fmt.Errorf("autofix: write patch: %w", err)
	}
	if err := gitRun(ctx, dir, "apply", "--whitespace=fix", patchPath); err == nil {
		return nil
	}

	stripped := stripNonPatchLines(diffText)
	if err := os.WriteFile(patchPath, []byte(stripped), 0o644); err != nil {
		return fmt.Errorf("autofix: write stripped patch: %w", err)
	}
	return gitRun(ctx, dir, "apply", "--whitespace=fix", patchPath)
}

// writeRewriteFiles writes every file in files to dir, creating parent
// directories as needed.
func writeRewriteFiles(dir string, files []model.RewriteFile) error {
	for _, f := range files {
		full := filepath.Join(dir, f.Path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("autofix: mkdir for %s: %w", f.Path, err)
		}
		if err := os.WriteFile(full, []byte(f.Content), 0o644); err != nil {
			return fmt.Errorf("autofix: write %s: %w", f.Path, err)
		}
	}
	return nil
}

// applyProposal materializes p (diff or rewrite) into the working tree
// at dir.
func applyProposal(ctx context.Context, dir string, p *model.FixProposal) error {
	switch p.Kind {
	case model.FixKindDiff:
		return applyPatch(ctx, dir, p.Diff)
	case model.FixKindRewrite:
		return writeRewriteFiles(dir, p.Files)
	default:
		return fmt.Errorf("autofix: unknown proposal kind %q", p.Kind)
	}
}
