// Package retriever embeds a query and returns the top-k chunks above
// a score floor for a given repo.
package retriever

import (
	"context"
	"fmt"

	"github.com/reliabot/agent/internal/embedding"
	"github.com/reliabot/agent/internal/model"
)

// Store is the subset of vectorstore.Store the retriever depends on.
type Store interface {
	QueryTopK(ctx context.Context, repoKey string, query []float32, k int, minScore float64) ([]model.RetrievedChunk, error)
}

// Retriever answers top-k similarity queries over a repo's indexed
// chunks.
type Retriever struct {
	Store    Store
	Embedder embedding.Client // nil if no embedding provider is configured
}

// Retrieve embeds query and returns the k nearest chunks under repoKey
// whose similarity is at least minScore, ordered by ascending distance
// (i.e. descending similarity). Returns nil, nil when no embedding
// provider is available — never an error, per spec.md §4.5.
func (r *Retriever) Retrieve(ctx context.Context, repoKey, query string, k int, minScore float64) ([]model.RetrievedChunk, error) {
	if r.Embedder == nil {
		return nil, nil
	}
	vec, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("retriever: embed query: %w", err)
	}
	chunks, err := r.Store.QueryTopK(ctx, repoKey, vec, k, minScore)
	if err != nil {
		return nil, fmt.Errorf("retriever: query top-%d: %w", k, err)
	}
	return chunks, nil
}
