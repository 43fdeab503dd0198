// Package vectorstore persists and queries chunk embeddings and tracks
// per-repo head revision, against the schema in spec.md §6.
//
// No pgvector client library exists anywhere in the reference corpus,
// so the vector literal encoding below is hand-rolled rather than
// adapted from an example — see DESIGN.md.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/reliabot/agent/internal/model"
)

// Store is a Postgres-backed vector store over repo_embeddings and
// repo_index_state.
type Store struct {
	pool *pgxpool.Pool
	dim  int
}

// New connects to dsn and returns a Store whose IVFFLAT index (created
// out of band by migrations) is sized for dim dimensions. Per spec.md
// §8, dim > 2000 means the caller must have skipped index creation;
// New itself never issues DDL.
func New(ctx context.Context, dsn string, dim int) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: connect: %w", err)
	}
	return &Store{pool: pool, dim: dim}, nil
}

// Close releases the connection pool.
func (s *Store) Close() { s.pool.Close() }

// IVFFlatEligible reports whether dim is small enough for an IVFFLAT
// cosine index, per spec.md §8's boundary (dim <= 2000).
func IVFFlatEligible(dim int) bool { return dim <= 2000 }

func encodeVector(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// UpsertChunk inserts or updates a chunk row keyed by
// (repo_key, path, chunk_index). UpdatedAt is stamped by the caller.
func (s *Store) UpsertChunk(ctx context.Context, c model.RepoChunk) error {
	var embeddingLiteral any
	if c.Embedding != nil {
		embeddingLiteral = encodeVector(c.Embedding)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO repo_embeddings (id, repo_key, path, chunk_index, content, content_hash, embedding, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (repo_key, path, chunk_index) DO UPDATE SET
			content = EXCLUDED.content,
			content_hash = EXCLUDED.content_hash,
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at
	`, c.ID(), c.RepoKey, c.Path, c.ChunkIndex, c.Content, c.ContentHash, embeddingLiteral, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("vectorstore: upsert chunk %s: %w", c.ID(), err)
	}
	return nil
}

// ChunkHash returns the stored content hash for (repoKey, path,
// chunkIndex), or ("", false) if no such row exists.
func (s *Store) ChunkHash(ctx context.Context, repoKey, path string, chunkIndex int) (string, bool, error) {
	var hash string
	err := s.pool.QueryRow(ctx, `
		SELECT content_hash FROM repo_embeddings
		WHERE repo_key = $1 AND path = $2 AND chunk_index = $3
	`, repoKey, path, chunkIndex).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("vectorstore: chunk hash %s/%s/%d: %w", repoKey, path, chunkIndex, err)
	}
	return hash, true, nil
}

// DeleteChunksAbove deletes chunk rows for (repoKey, path) whose
// chunk_index exceeds maxIndex (spec.md §4.4 step 6: shrinks a file
// that used to have more chunks).
func (s *Store) DeleteChunksAbove(ctx context.Context, repoKey, path string, maxIndex int) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM repo_embeddings WHERE repo_key = $1 AND path = $2 AND chunk_index > $3
	`, repoKey, path, maxIndex)
	if err != nil {
		return fmt.Errorf("vectorstore: delete chunks above %s/%s/%d: %w", repoKey, path, maxIndex, err)
	}
	return nil
}

// DeleteChunksNotIn deletes every row under repoKey whose path is not
// in keepPaths (spec.md §4.4 step 7: file deletions/renames).
func (s *Store) DeleteChunksNotIn(ctx context.Context, repoKey string, keepPaths []string) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM repo_embeddings WHERE repo_key = $1 AND path <> ALL($2)
	`, repoKey, keepPaths)
	if err != nil {
		return fmt.Errorf("vectorstore: reconcile deletions for %s: %w", repoKey, err)
	}
	return nil
}

// CountChunks reports how many chunk rows exist under repoKey.
func (s *Store) CountChunks(ctx context.Context, repoKey string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM repo_embeddings WHERE repo_key = $1`, repoKey).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("vectorstore: count chunks for %s: %w", repoKey, err)
	}
	return n, nil
}

// GetIndexState returns the recorded head revision for repoKey, or
// (nil, nil) if none exists yet.
func (s *Store) GetIndexState(ctx context.Context, repoKey string) (*model.RepoIndexState, error) {
	var st model.RepoIndexState
	st.RepoKey = repoKey
	err := s.pool.QueryRow(ctx, `
		SELECT head_sha, updated_at FROM repo_index_state WHERE repo_key = $1
	`, repoKey).Scan(&st.HeadSHA, &st.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("vectorstore: get index state for %s: %w", repoKey, err)
	}
	return &st, nil
}

// UpsertIndexState records the new head revision for repoKey. Callers
// must only invoke this after every chunk upsert for that revision has
// completed successfully (spec.md §3's lifecycle invariant).
func (s *Store) UpsertIndexState(ctx context.Context, repoKey, headSHA string, updatedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO repo_index_state (repo_key, head_sha, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (repo_key) DO UPDATE SET head_sha = EXCLUDED.head_sha, updated_at = EXCLUDED.updated_at
	`, repoKey, headSHA, updatedAt)
	if err != nil {
		return fmt.Errorf("vectorstore: upsert index state for %s: %w", repoKey, err)
	}
	return nil
}

// QueryTopK returns the k nearest chunks under repoKey whose similarity
// (1 - cosine distance) is at least minScore, ordered by ascending
// distance (spec.md §4.5, §6's literal query).
func (s *Store) QueryTopK(ctx context.Context, repoKey string, query []float32, k int, minScore float64) ([]model.RetrievedChunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT path, content, (1 - (embedding <-> $2)) AS score
		FROM repo_embeddings
		WHERE repo_key = $1 AND embedding IS NOT NULL AND (1 - (embedding <-> $2)) >= $3
		ORDER BY embedding <-> $2
		LIMIT $4
	`, repoKey, encodeVector(query), minScore, k)
	if err != nil {
		return nil, fmt.Errorf("vectorstore: query top-%d for %s: %w", k, repoKey, err)
	}
	defer rows.Close()

	var results []model.RetrievedChunk
	for rows.Next() {
		var rc model.RetrievedChunk
		if err := rows.Scan(&rc.Path, &rc.Content, &rc.Score); err != nil {
			return nil, fmt.Errorf("vectorstore: scan result: %w", err)
		}
		results = append(results, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorstore: iterate results: %w", err)
	}
	return results, nil
}
