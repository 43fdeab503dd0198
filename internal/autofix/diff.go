package autofix

import "strings"

// MaxDiffBytes is the hard cap on a proposed diff's length (spec.md §8).
const MaxDiffBytes = 200_000

// ValidateDiffShape reports whether diff contains the three markers a
// strict unified diff must carry.
func ValidateDiffShape(diff string) bool {
	return strings.Contains(diff, "--- a/") && strings.Contains(diff, "+++ b/") && strings.Contains(diff, "@@")
}

// ExtractDiffFiles returns the repo-relative paths touched by diff,
// read from "diff --git a/… b/…" and "--- a/…" lines, in first-seen
// order with duplicates removed.
func ExtractDiffFiles(diff string) []string {
	var files []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p != "" && !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git a/"):
			fields := strings.Fields(line)
			if len(fields) >= 3 {
				add(strings.TrimPrefix(fields[2], "a/"))
			}
		case strings.HasPrefix(line, "--- a/"):
			add(strings.TrimPrefix(line, "--- a/"))
		}
	}
	return files
}

var patchLinePrefixes = []string{"diff ", "index ", "--- ", "+++ ", "@@", "+", "-", " ", "\\"}

// stripNonPatchLines keeps only lines that look like a unified-diff
// body, discarding anything an LLM wrapped the diff in (prose,
// markdown fences). Used as a one-shot retry when git apply rejects
// the raw reply.
func stripNonPatchLines(diff string) string {
	lines := strings.Split(diff, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			out = append(out, line)
			continue
		}
		for _, p := range patchLinePrefixes {
			if strings.HasPrefix(line, p) {
				out = append(out, line)
				break
			}
		}
	}
	return strings.Join(out, "\n")
}
