// Package knowledge implements embedding-based retrieval over the
// reference corpus. Chunks are embedded once at index time; each query
// embeds the participant's message and ranks chunks by cosine similarity.
package knowledge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"interviewd/pkg/config"
)

// Embedder produces a vector for a piece of text. The deployment uses a
// single fixed embedding model; mixing models in one corpus produces
// meaningless similarities.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// NewEmbedder builds an embedder from configuration.
func NewEmbedder(cfg config.EmbeddingConfig, apiKey string) (Embedder, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("openai embedding provider requires an API key")
		}
		return NewOpenAIEmbedder(cfg.Model, apiKey), nil
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.Model, cfg.OllamaHost)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %q", cfg.Provider)
	}
}

// OpenAIEmbedder embeds text via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder backed by the given OpenAI model.
func NewOpenAIEmbedder(model, apiKey string) *OpenAIEmbedder {
	return &OpenAIEmbedder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Embed returns the embedding vector for text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// ModelName returns the configured embedding model.
func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// OllamaEmbedder embeds text via a local Ollama server.
type OllamaEmbedder struct {
	client *api.Client
	model  string
}

// NewOllamaEmbedder creates an embedder backed by an Ollama host.
func NewOllamaEmbedder(model, host string) (*OllamaEmbedder, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama host %q: %w", host, err)
	}
	return &OllamaEmbedder{
		client: api.NewClient(u, http.DefaultClient),
		model:  model,
	}, nil
}

// Embed returns the embedding vector for text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("embedding response contained no data")
	}
	return resp.Embeddings[0], nil
}

// ModelName returns the configured embedding model.
func (e *OllamaEmbedder) ModelName() string {
	return e.model
}
