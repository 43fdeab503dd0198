package autofix

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/reliabot/agent/internal/repoindexer"
)

// stageWorkspace creates a sibling ".workspaces/<random>/repo" directory
// next to repoDir and copies the tree into it, excluding the same
// directories the indexer ignores and any denylisted path (spec.md
// §4.7 step 6). The returned cleanup func removes the whole staging
// directory.
func stageWorkspace(repoDir string) (dir string, cleanup func(), err error) {
	suffix, err := randomSuffix()
	if err != nil {
		return "", nil, fmt.Errorf("autofix: generate workspace id: %w", err)
	}
	root := filepath.Join(filepath.Dir(repoDir), ".workspaces", suffix)
	dir = filepath.Join(root, "repo")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("autofix: mkdir workspace: %w", err)
	}
	if err := copyTree(repoDir, dir); err != nil {
		os.RemoveAll(root)
		return "", nil, fmt.Errorf("autofix: stage workspace: %w", err)
	}
	return dir, func() { os.RemoveAll(root) }, nil
}

func randomSuffix() (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// copyTree copies src into dst, skipping the indexer's excluded
// directories and any denylisted file path.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if repoindexer.IsExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return os.MkdirAll(filepath.Join(dst, rel), 0o755)
		}
		relSlash := filepath.ToSlash(rel)
		if isDenylisted(relSlash) {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}
