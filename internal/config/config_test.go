package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/munger/internal/llm"
)

// isolate runs the test from an empty directory with a fake home so no real
// .env or config.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_DATA_HOME", "")
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "munger"), cfg.DataDir)
	assert.Equal(t, filepath.Join(cfg.DataDir, "munger.db"), cfg.DBPath())
	assert.Equal(t, cfg.DataDir, cfg.WisdomDir())
	assert.Equal(t, "ollama", cfg.EmbeddingProvider)
	assert.Equal(t, "all-minilm", cfg.EmbeddingModel)
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 2, cfg.LLMRetries)
	assert.InDelta(t, 0.7, cfg.LLMTemperature, 1e-6)
	assert.Equal(t, 2000, cfg.LLMMaxTokens)
	assert.Equal(t, "english", cfg.Language)
	assert.Equal(t, 5, cfg.RetrievalTopK)
	assert.False(t, cfg.AtomicWrites)
	assert.Equal(t, "munger-backup", cfg.Backup.Bucket)
	assert.True(t, cfg.Backup.UseSSL)
	assert.False(t, cfg.Backup.Configured())
	assert.Empty(t, cfg.File)

	for _, p := range llm.Providers() {
		assert.Equal(t, llm.DefaultModel(p), cfg.Providers[p].Model, p)
	}
}

func TestLoad_Env(t *testing.T) {
	isolate(t)
	t.Setenv("MUNGER_LLM_PROVIDER", "Anthropic")
	t.Setenv("MUNGER_ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("MUNGER_LANGUAGE", "chinese")
	t.Setenv("MUNGER_RETRIEVAL_TOP_K", "8")
	t.Setenv("MUNGER_BACKUP_ENDPOINT", "localhost:9000")
	t.Setenv("MUNGER_BACKUP_ACCESS_KEY", "minio")
	t.Setenv("MUNGER_BACKUP_SECRET_KEY", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "chinese", cfg.Language)
	assert.Equal(t, 8, cfg.RetrievalTopK)
	assert.True(t, cfg.Backup.Configured())

	lc := cfg.LLM()
	assert.Equal(t, "anthropic", lc.Provider)
	assert.Equal(t, "sk-ant", lc.APIKey)
	assert.Equal(t, llm.DefaultModel("anthropic"), lc.Model)
	assert.Equal(t, 2, lc.Retries)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MUNGER_EMBEDDING_PROVIDER=hash\nMUNGER_EMBEDDING_DIMS=64\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("MUNGER_EMBEDDING_PROVIDER")
		os.Unsetenv("MUNGER_EMBEDDING_DIMS")
	})

	cfg, err := Load()
	require.NoError(t, err)
	ec := cfg.Embedding()
	assert.Equal(t, "hash", ec.Provider)
	assert.Equal(t, 64, ec.Dims)
}

func TestLoad_File(t *testing.T) {
	isolate(t)
	confDir := t.TempDir()
	yaml := `data_dir: ~/wisdom
llm_provider: gemini
gemini_model: gemini-2.5-pro
atomic_writes: true
backup:
  bucket: mine
  use_ssl: false
`
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load(confDir)
	require.NoError(t, err)
	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "wisdom"), cfg.DataDir)
	assert.Equal(t, "gemini-2.5-pro", cfg.LLM().Model)
	assert.True(t, cfg.AtomicWrites)
	assert.Equal(t, "mine", cfg.Backup.Bucket)
	assert.False(t, cfg.Backup.UseSSL)
	assert.Equal(t, "munger/", cfg.Backup.Prefix)
	assert.Equal(t, filepath.Join(confDir, "config.yaml"), cfg.File)
}

func TestLoad_BadFile(t *testing.T) {
	isolate(t)
	confDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "config.yaml"), []byte("language: [unclosed"), 0o644))

	_, err := Load(confDir)
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"language":     {"MUNGER_LANGUAGE", "klingon"},
		"llm provider": {"MUNGER_LLM_PROVIDER", "eliza"},
		"embedding":    {"MUNGER_EMBEDDING_PROVIDER", "word2vec"},
		"top k":        {"MUNGER_RETRIEVAL_TOP_K", "0"},
		"temperature":  {"MUNGER_LLM_TEMPERATURE", "3.5"},
		"retries":      {"MUNGER_LLM_RETRIES", "-1"},
		"max tokens":   {"MUNGER_LLM_MAX_TOKENS", "0"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestSetLanguage(t *testing.T) {
	cfg := &Config{Language: "english"}
	require.NoError(t, cfg.SetLanguage("Chinese"))
	assert.Equal(t, "chinese", cfg.Language)
	assert.ErrorIs(t, cfg.SetLanguage("french"), ErrInvalid)
	assert.Equal(t, "chinese", cfg.Language)
}
