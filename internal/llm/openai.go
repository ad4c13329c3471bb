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

// OpenAIProvider speaks the OpenAI chat-completions protocol. Kimi,
// SiliconFlow and Ollama expose the same API under their own base URLs.
type OpenAIProvider struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	opts    Options
	client  *http.Client
}

func NewOpenAI(name, baseURL, apiKey, model string, opts Options) *OpenAIProvider {
	return &OpenAIProvider{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		opts:    opts.withDefaults(),
		client:  &http.Client{},
	}
}

func (o *OpenAIProvider) Name() string { return o.name }

func (o *OpenAIProvider) Model() string { return o.model }

type oaiRequest struct {
	Model       string       `json:"model"`
	Messages    []oaiMessage `json:"messages"`
	Stream      bool         `json:"stream"`
	Temperature float32      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiResponse struct {
	Choices []struct {
		Message oaiMessage `json:"message"`
	} `json:"choices"`
}

type oaiStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (o *OpenAIProvider) post(ctx context.Context, msgs []Message, stream bool) (*http.Response, error) {
	oaiMsgs := make([]oaiMessage, len(msgs))
	for i, m := range msgs {
		oaiMsgs[i] = oaiMessage{Role: string(m.Role), Content: m.Content}
	}
	payload, err := json.Marshal(oaiRequest{
		Model:       o.model,
		Messages:    oaiMsgs,
		Stream:      stream,
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, newAPIError(o.name, resp.StatusCode, body)
	}
	return resp, nil
}

func (o *OpenAIProvider) Generate(ctx context.Context, msgs []Message) (string, error) {
	resp, err := o.post(ctx, msgs, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", o.name, err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices", o.name)
	}
	return out.Choices[0].Message.Content, nil
}

func (o *OpenAIProvider) Stream(ctx context.Context, msgs []Message) (<-chan StreamChunk, error) {
	resp, err := o.post(ctx, msgs, true)
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
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				send(ctx, ch, StreamChunk{Done: true})
				return
			}
			var chunk oaiStreamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}
			for _, c := range chunk.Choices {
				if c.Delta.Content == "" {
					continue
				}
				if !send(ctx, ch, StreamChunk{Delta: c.Delta.Content}) {
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			send(ctx, ch, StreamChunk{Error: fmt.Errorf("%s: read stream: %w", o.name, err)})
			return
		}
		send(ctx, ch, StreamChunk{Done: true})
	}()
	return ch, nil
}
