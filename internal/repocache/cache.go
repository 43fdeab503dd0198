// Package repocache maintains an on-disk shallow clone of a target
// repository at a known revision, refreshed via fetch-and-reset.
package repocache

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/reliabot/agent/internal/model"
)

// Cache manages a single repo's on-disk clone under baseDir, named by
// its repoKey.
type Cache struct {
	baseDir string
	token   string
	branch  string
}

// New returns a Cache rooted at baseDir. token is embedded into the
// clone URL as HTTPS Basic credentials; branch is the default branch
// cloned/reset against.
func New(baseDir, token, branch string) *Cache {
	return &Cache{baseDir: baseDir, token: token, branch: branch}
}

// Dir returns the local clone directory for target, without touching
// the filesystem.
func (c *Cache) Dir(target model.RepoTarget) string {
	return filepath.Join(c.baseDir, strings.ReplaceAll(target.RepoKey(), "/", "_"))
}

// reclone strategy name, matching config.RepoRefreshReclone.
const Reclone = "reclone"

// Ensure makes sure the local clone exists and is at the latest commit
// of the configured branch, per spec.md §4.3. strategy is either ""
// (pull, the default) or Reclone to force a fresh clone regardless of
// existing state.
func (c *Cache) Ensure(ctx context.Context, target model.RepoTarget, repoURL, strategy string) (string, error) {
	dir := c.Dir(target)

	_, err := os.Stat(dir)
	needsClone := strategy == Reclone || os.IsNotExist(err)

	if needsClone {
		if err := os.RemoveAll(dir); err != nil {
			return "", fmt.Errorf("repocache: remove stale dir %s: %w", dir, err)
		}
		if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
			return "", fmt.Errorf("repocache: mkdir %s: %w", dir, err)
		}
		credURL, err := c.credentialedURL(repoURL)
		if err != nil {
			return "", fmt.Errorf("repocache: build clone url: %w", err)
		}
		if err := c.run(ctx, "", "clone", "--depth", "1", "--branch", c.branch, credURL, dir); err != nil {
			return "", fmt.Errorf("repocache: clone %s: %w", target.RepoKey(), err)
		}
		return dir, nil
	}

	if err := c.run(ctx, dir, "fetch", "origin", c.branch); err != nil {
		return "", fmt.Errorf("repocache: fetch %s: %w", target.RepoKey(), err)
	}
	if err := c.run(ctx, dir, "reset", "--hard", "origin/"+c.branch); err != nil {
		return "", fmt.Errorf("repocache: reset %s: %w", target.RepoKey(), err)
	}
	return dir, nil
}

// credentialedURL embeds the token as the user name of the HTTPS URL
// ("https://<token>@host/..."). url.User/u.String() already
// percent-encode reserved characters (including "@") exactly once;
// escaping the token ourselves first would cause it to be encoded
// twice, per spec.md §4.3.
func (c *Cache) credentialedURL(repoURL string) (string, error) {
	if c.token == "" {
		return repoURL, nil
	}
	u, err := url.Parse(repoURL)
	if err != nil {
		return "", fmt.Errorf("parse repo url: %w", err)
	}
	u.User = url.User(c.token)
	return u.String(), nil
}

// HeadSHA returns the current HEAD commit of the local clone at dir.
func (c *Cache) HeadSHA(ctx context.Context, dir string) (string, error) {
	out, err := c.output(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("repocache: rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Clean reports whether the working tree at dir has no uncommitted
// changes (spec.md §4.7 step 9's dirty-repo check).
func (c *Cache) Clean(ctx context.Context, dir string) (bool, error) {
	out, err := c.output(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("repocache: status: %w", err)
	}
	return strings.TrimSpace(out) == "", nil
}

func (c *Cache) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

func (c *Cache) output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}
