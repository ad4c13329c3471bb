package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIProvider generates text with Google's Gemini models.
type GenAIProvider struct {
	client *genai.Client
	model  string
	opts   Options
}

func NewGenAI(ctx context.Context, apiKey, model string, opts Options) (*GenAIProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GenAIProvider{client: client, model: model, opts: opts.withDefaults()}, nil
}

func (g *GenAIProvider) Name() string { return "gemini" }

func (g *GenAIProvider) Model() string { return g.model }

// request splits msgs into contents and a config carrying the system prompt.
func (g *GenAIProvider) request(msgs []Message) ([]*genai.Content, *genai.GenerateContentConfig) {
	var system []string
	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.opts.Temperature),
		MaxOutputTokens: int32(g.opts.MaxTokens),
	}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, cfg
}

func (g *GenAIProvider) Generate(ctx context.Context, msgs []Message) (string, error) {
	contents, cfg := g.request(msgs)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return resp.Text(), nil
}

func (g *GenAIProvider) Stream(ctx context.Context, msgs []Message) (<-chan StreamChunk, error) {
	contents, cfg := g.request(msgs)

	ch := make(chan StreamChunk, 64)
	go func() {
		defer close(ch)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, contents, cfg) {
			if err != nil {
				send(ctx, ch, StreamChunk{Error: fmt.Errorf("gemini: %w", err)})
				return
			}
			if text := resp.Text(); text != "" {
				if !send(ctx, ch, StreamChunk{Delta: text}) {
					return
				}
			}
		}
		send(ctx, ch, StreamChunk{Done: true})
	}()
	return ch, nil
}
