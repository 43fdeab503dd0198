package repoindexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reliabot/agent/internal/model"
)

type fakeStore struct {
	chunks map[string]model.RepoChunk // id -> chunk
	state  *model.RepoIndexState
}

func newFakeStore() *fakeStore {
	return &fakeStore{chunks: make(map[string]model.RepoChunk)}
}

func (f *fakeStore) ChunkHash(_ context.Context, repoKey, path string, idx int) (string, bool, error) {
	c, ok := f.chunks[model.RepoChunk{RepoKey: repoKey, Path: path, ChunkIndex: idx}.ID()]
	if !ok {
		return "", false, nil
	}
	return c.ContentHash, true, nil
}

func (f *fakeStore) UpsertChunk(_ context.Context, c model.RepoChunk) error {
	f.chunks[c.ID()] = c
	return nil
}

func (f *fakeStore) DeleteChunksAbove(_ context.Context, repoKey, path string, maxIndex int) error {
	for id, c := range f.chunks {
		if c.RepoKey == repoKey && c.Path == path && c.ChunkIndex > maxIndex {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *fakeStore) DeleteChunksNotIn(_ context.Context, repoKey string, keepPaths []string) error {
	keep := make(map[string]bool, len(keepPaths))
	for _, p := range keepPaths {
		keep[p] = true
	}
	for id, c := range f.chunks {
		if c.RepoKey == repoKey && !keep[c.Path] {
			delete(f.chunks, id)
		}
	}
	return nil
}

func (f *fakeStore) CountChunks(_ context.Context, repoKey string) (int, error) {
	n := 0
	for _, c := range f.chunks {
		if c.RepoKey == repoKey {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetIndexState(_ context.Context, repoKey string) (*model.RepoIndexState, error) {
	if f.state == nil || f.state.RepoKey != repoKey {
		return nil, nil
	}
	return f.state, nil
}

func (f *fakeStore) UpsertIndexState(_ context.Context, repoKey, headSHA string, updatedAt time.Time) error {
	f.state = &model.RepoIndexState{RepoKey: repoKey, HeadSHA: headSHA, UpdatedAt: updatedAt}
	return nil
}

type fakeGit struct{ sha string }

func (g fakeGit) HeadSHA(context.Context, string) (string, error) { return g.sha, nil }

type fakeEmbedder struct{ calls int }

func (e *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	e.calls++
	return []float32{1, 2, 3}, nil
}

func TestIndexer_FreshIndexThenIdempotent(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "node_modules", "ignored.go"), []byte("package x\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	embedder := &fakeEmbedder{}
	ix := &Indexer{Store: store, Embedder: embedder, Git: fakeGit{sha: "abc"}, ChunkSize: 900, ChunkOverlap: 150}

	res, err := ix.Run(context.Background(), "acme/widgets", dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Skipped {
		t.Fatalf("first run should not be skipped")
	}
	if res.FilesSeen != 1 {
		t.Fatalf("FilesSeen = %d, want 1", res.FilesSeen)
	}
	if embedder.calls != 1 {
		t.Fatalf("embed calls = %d, want 1", embedder.calls)
	}

	// Second run at the same HEAD: early-exit, zero embed calls.
	res2, err := ix.Run(context.Background(), "acme/widgets", dir)
	if err != nil {
		t.Fatalf("Run (2nd): %v", err)
	}
	if !res2.Skipped {
		t.Fatalf("second run at same HEAD should be skipped")
	}
	if embedder.calls != 1 {
		t.Fatalf("embed calls after 2nd run = %d, want still 1", embedder.calls)
	}
}

func TestIndexer_RenameReconciles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.ts"), []byte("export const x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newFakeStore()
	ix := &Indexer{Store: store, Git: fakeGit{sha: "rev1"}, ChunkSize: 900, ChunkOverlap: 150}
	if _, err := ix.Run(context.Background(), "acme/widgets", dir); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n, _ := store.CountChunks(context.Background(), "acme/widgets"); n != 1 {
		t.Fatalf("count after first run = %d, want 1", n)
	}

	if err := os.Rename(filepath.Join(dir, "a.ts"), filepath.Join(dir, "b.ts")); err != nil {
		t.Fatal(err)
	}
	ix.Git = fakeGit{sha: "rev2"}
	if _, err := ix.Run(context.Background(), "acme/widgets", dir); err != nil {
		t.Fatalf("Run (rename): %v", err)
	}

	if n, _ := store.CountChunks(context.Background(), "acme/widgets"); n != 1 {
		t.Fatalf("count after rename = %d, want 1", n)
	}
	found := false
	for _, c := range store.chunks {
		if c.Path == "b.ts" {
			found = true
		}
		if c.Path == "a.ts" {
			t.Errorf("a.ts row should have been deleted")
		}
	}
	if !found {
		t.Errorf("b.ts row should exist")
	}
}

func TestIndexer_BinaryFileSkipped(t *testing.T) {
	dir := t.TempDir()
	binData := append([]byte("PNGISH"), 0)
	if err := os.WriteFile(filepath.Join(dir, "img.dat"), binData, 0o644); err != nil {
		t.Fatal(err)
	}
	store := newFakeStore()
	ix := &Indexer{Store: store, Git: fakeGit{sha: "x"}, ChunkSize: 900, ChunkOverlap: 150}
	res, err := ix.Run(context.Background(), "acme/widgets", dir)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.FilesSeen != 0 {
		t.Errorf("FilesSeen = %d, want 0 (binary file skipped)", res.FilesSeen)
	}
}
