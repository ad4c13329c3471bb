package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const anthropicBaseURL = "https://api.anthropic.com/v1"

// AnthropicProvider calls the Anthropic messages API. System messages are
// folded into the top-level system field.
type AnthropicProvider struct {
	baseURL string
	apiKey  string
	model   string
	opts    Options
	client  *http.Client
}

func NewAnthropic(baseURL, apiKey, model string, opts Options) *AnthropicProvider {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &AnthropicProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		opts:    opts.withDefaults(),
		client:  &http.Client{},
	}
}

func (a *AnthropicProvider) Name() string { return "anthropic" }

func (a *AnthropicProvider) Model() string { return a.model }

type anthropicRequest struct {
	Model       string         `json:"model"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float32        `json:"temperature"`
	System      string         `json:"system,omitempty"`
	Messages    []anthropicMsg `json:"messages"`
	Stream      bool           `json:"stream"`
}

type anthropicMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type anthropicEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (a *AnthropicProvider) post(ctx context.Context, msgs []Message, stream bool) (*http.Response, error) {
	var system string
	var apiMsgs []anthropicMsg
	for _, m := range msgs {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		apiMsgs = append(apiMsgs, anthropicMsg{Role: string(m.Role), Content: m.Content})
	}

	payload, err := json.Marshal(anthropicRequest{
		Model:       a.model,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
		System:      system,
		Messages:    apiMsgs,
		Stream:      stream,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, newAPIError("anthropic", resp.StatusCode, body)
	}
	return resp, nil
}

func (a *AnthropicProvider) Generate(ctx context.Context, msgs []Message) (string, error) {
	resp, err := a.post(ctx, msgs, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("anthropic: decode response: %w", err)
	}
	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

func (a *AnthropicProvider) Stream(ctx context.Context, msgs []Message) (<-chan StreamChunk, error) {
	resp, err := a.post(ctx, msgs, true)
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 64)
	go func() {
		defer close(ch)
		defer resp.Body.Close()
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var evt anthropicEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &evt); err != nil {
				continue
			}
			switch evt.Type {
			case "content_block_delta":
				if evt.Delta.Type == "text_delta" && evt.Delta.Text != "" {
					if !send(ctx, ch, StreamChunk{Delta: evt.Delta.Text}) {
						return
					}
				}
			case "message_stop":
				send(ctx, ch, StreamChunk{Done: true})
				return
			case "error":
				msg := "stream error"
				if evt.Error != nil {
					msg = evt.Error.Message
				}
				send(ctx, ch, StreamChunk{Error: fmt.Errorf("anthropic: %s", msg)})
				return
			}
		}
		if err := scanner.Err(); err != nil {
			send(ctx, ch, StreamChunk{Error: fmt.Errorf("anthropic: read stream: %w", err)})
			return
		}
		send(ctx, ch, StreamChunk{Done: true})
	}()
	return ch, nil
}
