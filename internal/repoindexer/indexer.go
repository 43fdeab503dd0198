// Package repoindexer walks a repository's working tree, chunks text
// files, embeds changed chunks, and reconciles the vector store so it
// exactly mirrors the tree at HEAD (spec.md §4.4).
package repoindexer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/reliabot/agent/internal/embedding"
	"github.com/reliabot/agent/internal/model"
)

// excludedDirs are never descended into.
var excludedDirs = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true,
	"coverage": true, ".cursor": true, ".next": true, ".turbo": true, "logs": true,
}

// IsExcludedDir reports whether a directory named name is skipped by
// both the indexer and the auto-fix engine's workspace staging.
func IsExcludedDir(name string) bool {
	return excludedDirs[name]
}

// excludedExts are treated as non-text regardless of content.
var excludedExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".ico": true, ".pdf": true, ".zip": true, ".tar": true, ".gz": true, ".lock": true,
}

const (
	maxFileBytes = 300 * 1024
	binarySniffBytes = 1024
)

// HeadResolver returns the current HEAD SHA of a repo directory.
type HeadResolver interface {
	HeadSHA(ctx context.Context, dir string) (string, error)
}

// Store is the subset of vectorstore.Store the indexer depends on.
type Store interface {
	ChunkHash(ctx context.Context, repoKey, path string, chunkIndex int) (string, bool, error)
	UpsertChunk(ctx context.Context, c model.RepoChunk) error
	DeleteChunksAbove(ctx context.Context, repoKey, path string, maxIndex int) error
	DeleteChunksNotIn(ctx context.Context, repoKey string, keepPaths []string) error
	CountChunks(ctx context.Context, repoKey string) (int, error)
	GetIndexState(ctx context.Context, repoKey string) (*model.RepoIndexState, error)
	UpsertIndexState(ctx context.Context, repoKey, headSHA string, updatedAt time.Time) error
}

// Indexer incrementally synchronises a vector Store with a repo's
// working tree.
type Indexer struct {
	Store          Store
	Embedder       embedding.Client
	Git            HeadResolver
	ChunkSize      int
	ChunkOverlap   int
}

// Result summarises one indexing run, for logging/tests.
type Result struct {
	Skipped     bool
	FilesSeen   int
	ChunksEmbedded int
	HeadSHA     string
}

// Run performs one incremental index of repoDir under repoKey.
func (ix *Indexer) Run(ctx context.Context, repoKey, repoDir string) (Result, error) {
	head, headErr := ix.Git.HeadSHA(ctx, repoDir)

	if headErr == nil {
		state, err := ix.Store.GetIndexState(ctx, repoKey)
		if err != nil {
			return Result{}, fmt.Errorf("repoindexer: get index state: %w", err)
		}
		if state != nil && state.HeadSHA == head {
			count, err := ix.Store.CountChunks(ctx, repoKey)
			if err != nil {
				return Result{}, fmt.Errorf("repoindexer: count chunks: %w", err)
			}
			if count > 0 {
				return Result{Skipped: true, HeadSHA: head}, nil
			}
		}
	}

	paths, err := ix.walk(repoDir)
	if err != nil {
		return Result{}, fmt.Errorf("repoindexer: walk %s: %w", repoDir, err)
	}

	seenPaths := make([]string, 0, len(paths))
	embedded := 0
	for _, relPath := range paths {
		absPath := filepath.Join(repoDir, relPath)
		content, skip, err := readIfText(absPath)
		if err != nil {
			return Result{}, fmt.Errorf("repoindexer: read %s: %w", relPath, err)
		}
		if skip {
			continue
		}
		seenPaths = append(seenPaths, relPath)

		chunks := Chunk(content, ix.ChunkSize, ix.ChunkOverlap)
		for i, c := range chunks {
			hash := HashContent(c)
			existing, ok, err := ix.Store.ChunkHash(ctx, repoKey, relPath, i)
			if err != nil {
				return Result{}, fmt.Errorf("repoindexer: chunk hash %s[%d]: %w", relPath, i, err)
			}
			if ok && existing == hash {
				continue
			}

			var vec []float32
			if ix.Embedder != nil {
				vec, err = ix.Embedder.Embed(ctx, c)
				if err != nil {
					return Result{}, fmt.Errorf("repoindexer: embed %s[%d]: %w", relPath, i, err)
				}
				embedded++
			}

			err = ix.Store.UpsertChunk(ctx, model.RepoChunk{
				RepoKey: repoKey, Path: relPath, ChunkIndex: i,
				Content: c, ContentHash: hash, Embedding: vec,
				UpdatedAt: nowUTC(),
			})
			if err != nil {
				return Result{}, fmt.Errorf("repoindexer: upsert %s[%d]: %w", relPath, i, err)
			}
		}
		if err := ix.Store.DeleteChunksAbove(ctx, repoKey, relPath, len(chunks)-1); err != nil {
			return Result{}, fmt.Errorf("repoindexer: delete stale chunks for %s: %w", relPath, err)
		}
	}

	if err := ix.Store.DeleteChunksNotIn(ctx, repoKey, seenPaths); err != nil {
		return Result{}, fmt.Errorf("repoindexer: reconcile deletions: %w", err)
	}

	if headErr == nil {
		if err := ix.Store.UpsertIndexState(ctx, repoKey, head, nowUTC()); err != nil {
			return Result{}, fmt.Errorf("repoindexer: upsert index state: %w", err)
		}
	}

	return Result{FilesSeen: len(seenPaths), ChunksEmbedded: embedded, HeadSHA: head}, nil
}

// nowUTC is split out so indexer logic stays testable without pinning
// wall-clock time in assertions.
var nowUTC = func() time.Time { return time.Now().UTC() }

// walk returns every forward-slash-relative file path under root that
// survives the directory/extension/size filters (the binary check is
// done later by readIfText), in sorted
// order (deterministic for tests; the store's own reconciliation does
// not depend on ordering).
func (ix *Indexer) walk(root string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() {
			if excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(d.Name())
		if excludedExts[ext] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.Size() > maxFileBytes {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// readIfText reads path and reports ("", skip=true, nil) if it
// looks binary (NUL byte in the first 1kB) — otherwise returns its
// full content.
func readIfText(path string) (string, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false, err
	}
	sniff := data
	if len(sniff) > binarySniffBytes {
		sniff = sniff[:binarySniffBytes]
	}
	if bytes.IndexByte(sniff, 0) >= 0 {
		return "", true, nil
	}
	return string(data), false, nil
}

// HashContent returns the SHA-256 hex digest of c.
func HashContent(c string) string {
	sum := sha256.Sum256([]byte(c))
	return hex.EncodeToString(sum[:])
}
