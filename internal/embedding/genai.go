package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIEmbedder generates embeddings with Google's Gemini API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
	dims   int
}

// NewGenAIEmbedder creates a Gemini embedder. Queries and documents use the
// same task type so identical text always maps to the same vector.
func NewGenAIEmbedder(ctx context.Context, apiKey, model string, dims int) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini embedding requires an API key")
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if dims == 0 {
		dims = 768
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model, dims: dims}, nil
}

func (e *GenAIEmbedder) Embed(ctx context.Context, text string) (Vector, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one request.
func (e *GenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(e.dims)
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             "SEMANTIC_SIMILARITY",
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai returned %d embeddings, want %d", len(result.Embeddings), len(texts))
	}

	out := make([]Vector, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

func (e *GenAIEmbedder) Dims() int { return e.dims }
