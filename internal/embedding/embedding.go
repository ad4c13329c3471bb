// Package embedding provides a pluggable interface for text embedding providers.
package embedding

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Vector is a float32 embedding vector.
type Vector = []float32

// Embedder generates embedding vectors from text.
type Embedder interface {
	Embed(ctx context.Context, text string) (Vector, error)
	Dims() int
}

// BatchEmbedder is implemented by providers that embed many texts per request.
// Results are in input order.
type BatchEmbedder interface {
	Embedder
	EmbedBatch(ctx context.Context, texts []string) ([]Vector, error)
}

// DefaultConcurrency bounds parallel requests for providers without a batch API.
const DefaultConcurrency = 4

// CosineSimilarity computes cosine similarity between two vectors.
// It is 0 when either vector has zero norm or the lengths differ.
func CosineSimilarity(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// rounding can push identical vectors just past 1
	return math.Max(-1, math.Min(1, sim))
}

// EmbedAll embeds texts in order, one vector per text.
func EmbedAll(ctx context.Context, e Embedder, texts []string) ([]Vector, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var (
		vecs []Vector
		err  error
	)
	if be, ok := e.(BatchEmbedder); ok {
		vecs, err = be.EmbedBatch(ctx, texts)
	} else {
		vecs, err = fanOut(ctx, e, texts, DefaultConcurrency)
	}
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
	}
	return vecs, nil
}

func fanOut(ctx context.Context, e Embedder, texts []string, limit int) ([]Vector, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	out := make([]Vector, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, text := range texts {
		g.Go(func() error {
			v, err := e.Embed(gctx, text)
			if err != nil {
				return fmt.Errorf("embed text %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- Factory ---

// Config selects and tunes an embedding provider.
type Config struct {
	Provider    string  // "ollama" | "openai" | "gemini" | "hash"
	Model       string  // provider model name
	BaseURL     string  // base URL override
	APIKey      string  // for openai and gemini
	Dims        int     // 0 means the provider default
	Concurrency int     // parallel requests for non-batch providers
	RateLimit   float64 // requests per second, 0 disables limiting
}

// New creates an embedder from cfg.
func New(ctx context.Context, cfg Config) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "ollama", "":
		model := cfg.Model
		if model == "" {
			model = "all-minilm"
		}
		e = NewOllamaEmbedder(cfg.BaseURL, model, cfg.Dims)
	case "openai":
		e = NewOpenAIEmbedder(cfg.BaseURL, cfg.APIKey, cfg.Model, cfg.Dims)
	case "gemini", "genai":
		e, err = NewGenAIEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.Dims)
		if err != nil {
			return nil, err
		}
	case "hash":
		e = NewHashEmbedder(cfg.Dims)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
	if cfg.RateLimit > 0 {
		e = WithRateLimit(e, cfg.RateLimit, cfg.Concurrency)
	}
	return e, nil
}
