package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"interviewd/pkg/config"
	"interviewd/pkg/interview"
	"interviewd/pkg/logx"
)

// ChunkSource provides the stored corpus. persistence.Store satisfies it.
type ChunkSource interface {
	ListChunks(ctx context.Context) ([]interview.KnowledgeChunk, error)
}

// Retriever answers corpus queries by cosine similarity against the
// stored chunk embeddings. The corpus is loaded once and cached; Reload
// picks up new chunks written by the indexer.
type Retriever struct {
	store    ChunkSource
	embedder Embedder
	topK     int
	minSim   float64
	logger   *logx.Logger

	mu     sync.RWMutex
	chunks []interview.KnowledgeChunk
	loaded bool
}

// NewRetriever creates a retriever over the stored corpus.
func NewRetriever(store ChunkSource, embedder Embedder, cfg config.KnowledgeConfig) *Retriever {
	return &Retriever{
		store:    store,
		embedder: embedder,
		topK:     cfg.TopK,
		minSim:   cfg.MinSimilarity,
		logger:   logx.NewLogger("knowledge"),
	}
}

// Reload replaces the cached corpus from storage.
func (r *Retriever) Reload(ctx context.Context) error {
	chunks, err := r.store.ListChunks(ctx)
	if err != nil {
		return fmt.Errorf("failed to load knowledge corpus: %w", err)
	}

	r.mu.Lock()
	r.chunks = chunks
	r.loaded = true
	r.mu.Unlock()

	r.logger.Info("loaded knowledge corpus: %d chunks", len(chunks))
	return nil
}

// Query embeds the query text and returns the chunks above the
// similarity floor, best first, capped at top-k. An empty result is a
// normal outcome, not an error.
func (r *Retriever) Query(ctx context.Context, text string) ([]interview.KnowledgeChunk, error) {
	r.mu.RLock()
	loaded := r.loaded
	r.mu.RUnlock()
	if !loaded {
		if err := r.Reload(ctx); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	chunks := r.chunks
	r.mu.RUnlock()
	if len(chunks) == 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	var scored []interview.KnowledgeChunk
	for _, c := range chunks {
		if len(c.Embedding) != len(queryVec) {
			// Chunk was embedded with a different model. Skip rather
			// than produce a garbage score.
			r.logger.Warn("dimension mismatch for chunk %s (%d vs %d), skipping",
				c.ID, len(c.Embedding), len(queryVec))
			continue
		}
		sim := cosineSimilarity(queryVec, c.Embedding)
		if sim < r.minSim {
			continue
		}
		c.Similarity = sim
		scored = append(scored, c)
	}

	sort.Slice(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > r.topK {
		scored = scored[:r.topK]
	}
	return scored, nil
}

// cosineSimilarity computes the cosine of the angle between two vectors
// of equal length. Zero vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
