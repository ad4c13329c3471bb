package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Config selects and tunes an LLM provider.
type Config struct {
	Provider    string // openai | anthropic | kimi | siliconflow | gemini | ollama
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	Retries     int
	RequestRate float64 // requests per second, 0 disables pacing
}

type providerDefaults struct {
	baseURL  string
	model    string
	needsKey bool
}

var defaults = map[string]providerDefaults{
	"openai":      {"https://api.openai.com/v1", "gpt-4o", true},
	"kimi":        {"https://api.moonshot.cn/v1", "kimi-k2-turbo-preview", true},
	"siliconflow": {"https://api.siliconflow.cn/v1", "deepseek-ai/DeepSeek-V3", true},
	"ollama":      {"http://localhost:11434/v1", "llama3.1", false},
	"anthropic":   {anthropicBaseURL, "claude-sonnet-4-20250514", true},
	"gemini":      {"", "gemini-2.5-flash", true},
}

// Providers lists the supported provider names.
func Providers() []string {
	return []string{"openai", "anthropic", "kimi", "siliconflow", "gemini", "ollama"}
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	return defaults[strings.ToLower(provider)].model
}

// New builds the configured provider wrapped in a RetryProvider.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (Provider, error) {
	name := strings.ToLower(cfg.Provider)
	if name == "" {
		name = "openai"
	}
	d, ok := defaults[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (valid: %s)", ErrUnknownProvider, cfg.Provider, strings.Join(Providers(), ", "))
	}
	if d.needsKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("%s: %w (set MUNGER_%s_API_KEY)", name, ErrMissingAPIKey, strings.ToUpper(name))
	}
	model := cfg.Model
	if model == "" {
		model = d.model
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = d.baseURL
	}
	opts := Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	var p Provider
	switch name {
	case "anthropic":
		p = NewAnthropic(baseURL, cfg.APIKey, model, opts)
	case "gemini":
		g, err := NewGenAI(ctx, cfg.APIKey, model, opts)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		p = NewOpenAI(name, baseURL, cfg.APIKey, model, opts)
	}
	return WithRetry(p, cfg.Retries, WithLogger(logger), WithRequestRate(cfg.RequestRate)), nil
}
