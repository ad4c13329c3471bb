// Package config loads settings from .env, config.yaml and MUNGER_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rcliao/munger/internal/embedding"
	"github.com/rcliao/munger/internal/llm"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

const envPrefix = "MUNGER"

type Config struct {
	DataDir string `mapstructure:"data_dir"`
	DBName  string `mapstructure:"db_name"`

	EmbeddingProvider    string  `mapstructure:"embedding_provider"`
	EmbeddingModel       string  `mapstructure:"embedding_model"`
	EmbeddingURL         string  `mapstructure:"embedding_url"`
	EmbeddingAPIKey      string  `mapstructure:"embedding_api_key"`
	EmbeddingDims        int     `mapstructure:"embedding_dims"`
	EmbeddingConcurrency int     `mapstructure:"embedding_concurrency"`
	EmbeddingRateLimit   float64 `mapstructure:"embedding_rate_limit"`

	LLMProvider    string  `mapstructure:"llm_provider"`
	LLMRetries     int     `mapstructure:"llm_retries"`
	LLMTemperature float32 `mapstructure:"llm_temperature"`
	LLMMaxTokens   int     `mapstructure:"llm_max_tokens"`
	LLMRequestRate float64 `mapstructure:"llm_request_rate"`

	Language      string `mapstructure:"language"`
	RetrievalTopK int    `mapstructure:"retrieval_top_k"`
	AtomicWrites  bool   `mapstructure:"atomic_writes"`

	Backup BackupConfig `mapstructure:"backup"`

	// Providers holds <provider>_api_key, _model and _base_url per LLM provider.
	Providers map[string]ProviderConfig `mapstructure:"-"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type ProviderConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type BackupConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Configured reports whether enough is set to reach the backup server.
func (b BackupConfig) Configured() bool {
	return b.Endpoint != "" && b.AccessKey != "" && b.SecretKey != ""
}

// DefaultDataDir is $XDG_DATA_HOME/munger, else ~/.local/share/munger.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "munger")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "munger")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("db_name", "munger.db")

	v.SetDefault("embedding_provider", "ollama")
	v.SetDefault("embedding_model", "all-minilm")
	v.SetDefault("embedding_url", "")
	v.SetDefault("embedding_api_key", "")
	v.SetDefault("embedding_dims", 0)
	v.SetDefault("embedding_concurrency", embedding.DefaultConcurrency)
	v.SetDefault("embedding_rate_limit", 0)

	v.SetDefault("llm_provider", "openai")
	v.SetDefault("llm_retries", 2)
	v.SetDefault("llm_temperature", 0.7)
	v.SetDefault("llm_max_tokens", 2000)
	v.SetDefault("llm_request_rate", 0)
	for _, p := range llm.Providers() {
		v.SetDefault(p+"_api_key", "")
		v.SetDefault(p+"_model", llm.DefaultModel(p))
		v.SetDefault(p+"_base_url", "")
	}

	v.SetDefault("language", "english")
	v.SetDefault("retrieval_top_k", 5)
	v.SetDefault("atomic_writes", false)

	v.SetDefault("backup.endpoint", "")
	v.SetDefault("backup.access_key", "")
	v.SetDefault("backup.secret_key", "")
	v.SetDefault("backup.bucket", "munger-backup")
	v.SetDefault("backup.prefix", "munger/")
	v.SetDefault("backup.use_ssl", true)
}

// Load reads .env from the working directory, then config.yaml from the
// given directories (default: ., $XDG_CONFIG_HOME/munger, ~/.config/munger),
// then MUNGER_* environment variables, and validates the result.
func Load(searchPaths ...string) (*Config, error) {
	// a missing .env is fine; variables already set win
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if len(searchPaths) == 0 {
		searchPaths = append(searchPaths, ".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			searchPaths = append(searchPaths, filepath.Join(xdg, "munger"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			searchPaths = append(searchPaths, filepath.Join(home, ".config", "munger"))
		}
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	cfg.Providers = make(map[string]ProviderConfig)
	for _, p := range llm.Providers() {
		cfg.Providers[p] = ProviderConfig{
			APIKey:  v.GetString(p + "_api_key"),
			Model:   v.GetString(p + "_model"),
			BaseURL: v.GetString(p + "_base_url"),
		}
	}
	cfg.DataDir = expandHome(cfg.DataDir)
	cfg.LLMProvider = strings.ToLower(cfg.LLMProvider)
	cfg.Language = strings.ToLower(cfg.Language)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

var (
	validLanguages  = map[string]bool{"english": true, "chinese": true}
	validEmbeddings = map[string]bool{"ollama": true, "openai": true, "gemini": true, "hash": true}
)

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is required", ErrInvalid)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: db_name is required", ErrInvalid)
	}
	if !validLanguages[c.Language] {
		return fmt.Errorf("%w: language %q (must be english or chinese)", ErrInvalid, c.Language)
	}
	if !validEmbeddings[strings.ToLower(c.EmbeddingProvider)] {
		return fmt.Errorf("%w: embedding_provider %q (must be ollama, openai, gemini or hash)", ErrInvalid, c.EmbeddingProvider)
	}
	valid := false
	for _, p := range llm.Providers() {
		valid = valid || p == c.LLMProvider
	}
	if !valid {
		return fmt.Errorf("%w: llm_provider %q (must be one of %s)", ErrInvalid, c.LLMProvider, strings.Join(llm.Providers(), ", "))
	}
	if c.RetrievalTopK < 1 {
		return fmt.Errorf("%w: retrieval_top_k must be at least 1", ErrInvalid)
	}
	if c.LLMRetries < 0 {
		return fmt.Errorf("%w: llm_retries must not be negative", ErrInvalid)
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("%w: llm_temperature %.2f out of range 0-2", ErrInvalid, c.LLMTemperature)
	}
	if c.LLMMaxTokens < 1 {
		return fmt.Errorf("%w: llm_max_tokens must be positive", ErrInvalid)
	}
	if c.EmbeddingDims < 0 {
		return fmt.Errorf("%w: embedding_dims must not be negative", ErrInvalid)
	}
	return nil
}

// SetLanguage overrides the configured language.
func (c *Config) SetLanguage(lang string) error {
	lang = strings.ToLower(lang)
	if !validLanguages[lang] {
		return fmt.Errorf("%w: language %q (must be english or chinese)", ErrInvalid, lang)
	}
	c.Language = lang
	return nil
}

// DBPath is the SQLite database file.
func (c *Config) DBPath() string { return filepath.Join(c.DataDir, c.DBName) }

// WisdomDir holds wisdom_store.json and wisdom_embeddings.npy.
func (c *Config) WisdomDir() string { return c.DataDir }

// Provider returns the settings of the active LLM provider.
func (c *Config) Provider() ProviderConfig { return c.Providers[c.LLMProvider] }

// LLM builds the provider settings for llm.New.
func (c *Config) LLM() llm.Config {
	p := c.Provider()
	return llm.Config{
		Provider:    c.LLMProvider,
		APIKey:      p.APIKey,
		Model:       p.Model,
		BaseURL:     p.BaseURL,
		Temperature: c.LLMTemperature,
		MaxTokens:   c.LLMMaxTokens,
		Retries:     c.LLMRetries,
		RequestRate: c.LLMRequestRate,
	}
}

// Embedding builds the embedder settings for embedding.New.
func (c *Config) Embedding() embedding.Config {
	return embedding.Config{
		Provider:    c.EmbeddingProvider,
		Model:       c.EmbeddingModel,
		BaseURL:     c.EmbeddingURL,
		APIKey:      c.EmbeddingAPIKey,
		Dims:        c.EmbeddingDims,
		Concurrency: c.EmbeddingConcurrency,
		RateLimit:   c.EmbeddingRateLimit,
	}
}
