package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"interviewd/pkg/interview"
	"interviewd/pkg/logx"
)

// chunkTargetChars is the approximate chunk size. Paragraphs are packed
// into chunks up to this size rather than split mid-sentence.
const chunkTargetChars = 1200

// ChunkSink receives indexed chunks. persistence.Store satisfies it.
type ChunkSink interface {
	UpsertChunk(ctx context.Context, chunk interview.KnowledgeChunk) error
}

// Indexer splits source documents into chunks, embeds them, and stores
// them in the corpus.
type Indexer struct {
	store    ChunkSink
	embedder Embedder
	logger   *logx.Logger
}

// NewIndexer creates an indexer writing to the given store.
func NewIndexer(store ChunkSink, embedder Embedder) *Indexer {
	return &Indexer{
		store:    store,
		embedder: embedder,
		logger:   logx.NewLogger("indexer"),
	}
}

// IndexDirectory indexes every .md and .txt file under dir.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read knowledge directory %s: %w", dir, err)
	}

	total := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".md" && ext != ".txt" {
			continue
		}
		n, err := ix.IndexFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// IndexFile chunks and embeds one document, storing each chunk under the
// file's base name as source.
func (ix *Indexer) IndexFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	source := filepath.Base(path)
	chunks := splitChunks(string(data))
	for _, text := range chunks {
		vec, err := ix.embedder.Embed(ctx, text)
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunk from %s: %w", source, err)
		}
		chunk := interview.KnowledgeChunk{
			ID:        uuid.New().String(),
			Source:    source,
			Content:   text,
			Embedding: vec,
		}
		if err := ix.store.UpsertChunk(ctx, chunk); err != nil {
			return 0, err
		}
	}

	ix.logger.Info("indexed %s: %d chunks", source, len(chunks))
	return len(chunks), nil
}

// splitChunks packs paragraphs into chunks of roughly chunkTargetChars.
// Blank-line separated paragraphs are the split unit.
func splitChunks(text string) []string {
	paragraphs := strings.Split(text, "\n\n")

	var chunks []string
	var buf strings.Builder
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if buf.Len() > 0 && buf.Len()+len(p) > chunkTargetChars {
			chunks = append(chunks, buf.String())
			buf.Reset()
		}
		if buf.Len() > 0 {
			buf.WriteString("\n\n")
		}
		buf.WriteString(p)
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}
	return chunks
}
