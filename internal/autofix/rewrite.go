package autofix

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/reliabot/agent/internal/model"
)

// maxRewriteFileBytes caps a single rewritten file's size (spec.md §4.7.4).
const maxRewriteFileBytes = 500 * 1024

// denylistSegments are path segments a fix may never touch, matched
// case-insensitively against each "/"-separated component of a path.
var denylistSegments = []string{".env", ".env.local", "secrets", "credentials"}

// isDenylisted reports whether any segment of path matches the denylist.
func isDenylisted(path string) bool {
	for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
		low := strings.ToLower(seg)
		for _, d := range denylistSegments {
			if low == d {
				return true
			}
		}
	}
	return false
}

// anchorLines returns the first three and last three non-blank trimmed
// lines of content, or nil if content has fewer than 20 non-blank
// lines (too short to require an anchor check).
func anchorLines(content string) []string {
	var nonBlank []string
	for _, l := range strings.Split(content, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			nonBlank = append(nonBlank, t)
		}
	}
	if len(nonBlank) < 20 {
		return nil
	}
	anchors := make([]string, 0, 6)
	anchors = append(anchors, nonBlank[:3]...)
	anchors = append(anchors, nonBlank[len(nonBlank)-3:]...)
	return anchors
}

// anchorCheckPasses requires at least one anchor line of the existing
// file to survive verbatim in the rewrite, when an anchor check
// applies at all.
func anchorCheckPasses(existing, rewritten string) bool {
	anchors := anchorLines(existing)
	if anchors == nil {
		return true
	}
	for _, a := range anchors {
		if strings.Contains(rewritten, a) {
			return true
		}
	}
	return false
}

// sizeCheckPasses requires the rewrite to retain at least half the
// original file's length, when there is an original to compare to.
func sizeCheckPasses(existing, rewritten string) bool {
	if len(existing) == 0 {
		return true
	}
	return float64(len(rewritten)) >= 0.5*float64(len(existing))
}

// validateRewriteProposal applies every per-file rewrite rule from
// spec.md §4.7 step 4 against the files on disk at repoDir.
func validateRewriteProposal(p *model.FixProposal, repoDir string) bool {
	if len(p.Files) == 0 {
		return false
	}
	for _, f := range p.Files {
		if len(f.Content) > maxRewriteFileBytes {
			return false
		}
		if isDenylisted(f.Path) {
			return false
		}
		existing, _ := os.ReadFile(filepath.Join(repoDir, f.Path))
		if !anchorCheckPasses(string(existing), f.Content) {
			return false
		}
		if !sizeCheckPasses(string(existing), f.Content) {
			return false
		}
	}
	return true
}

// proposalTouchedPaths returns every repo-relative path a proposal
// touches, regardless of kind.
func proposalTouchedPaths(p *model.FixProposal) []string {
	if p.Kind == model.FixKindDiff {
		return ExtractDiffFiles(p.Diff)
	}
	paths := make([]string, len(p.Files))
	for i, f := range p.Files {
		paths[i] = f.Path
	}
	return paths
}
