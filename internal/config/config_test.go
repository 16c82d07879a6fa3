package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/poc-data")
	t.Setenv("TRANSLATE_PROVIDER", "")
	t.Setenv("CHUNK_INITIAL", "")
	t.Setenv("CHUNK_SUBSEQUENT", "")
	t.Setenv("RENDER_BOOTSTRAP_WINDOW", "")
	t.Setenv("TARGET_LANGUAGE", "")
	t.Setenv("OPENAI_TIMEOUT", "")
	t.Setenv("DEEPL_TIMEOUT", "")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.Translate.Provider)
	assert.Equal(t, 20, cfg.Translate.InitialChunk)
	assert.Equal(t, 50, cfg.Translate.SubsequentSize)
	assert.Equal(t, language.Korean, cfg.Translate.TargetLanguage)
	assert.Equal(t, 4*time.Second, cfg.Render.BootstrapWindow)
	assert.Equal(t, 500*time.Millisecond, cfg.Render.PollInterval)
	assert.Zero(t, cfg.OpenAI.Timeout, "translation requests have no timeout by default")
	assert.Zero(t, cfg.DeepL.Timeout)
	assert.Equal(t, filepath.Join("/tmp/poc-data", "captions.db"), cfg.DBPath())
}

func TestNewFromEnv_Overrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/poc-data")
	t.Setenv("TRANSLATE_PROVIDER", "DeepL")
	t.Setenv("TRANSLATE_STREAM", "false")
	t.Setenv("CHUNK_INITIAL", "5")
	t.Setenv("RENDER_POLL_INTERVAL", "100ms")
	t.Setenv("CORS_ORIGINS", "chrome-extension://abc, https://www.udemy.com")
	t.Setenv("TARGET_LANGUAGE", "ja")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ProviderDeepL, cfg.Translate.Provider)
	assert.False(t, cfg.Translate.Stream)
	assert.Equal(t, 5, cfg.Translate.InitialChunk)
	assert.Equal(t, 100*time.Millisecond, cfg.Render.PollInterval)
	assert.Equal(t, []string{"chrome-extension://abc", "https://www.udemy.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, language.Japanese, cfg.Translate.TargetLanguage)
}

func TestNewFromEnv_Invalid(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/poc-data")

	t.Run("provider", func(t *testing.T) {
		t.Setenv("TRANSLATE_PROVIDER", "google")
		_, err := NewFromEnv()
		assert.ErrorContains(t, err, "unknown TRANSLATE_PROVIDER")
	})

	t.Run("cron", func(t *testing.T) {
		t.Setenv("CACHE_MAINTENANCE_CRON", "every day")
		_, err := NewFromEnv()
		assert.ErrorContains(t, err, "CACHE_MAINTENANCE_CRON")
	})

	t.Run("timeout", func(t *testing.T) {
		t.Setenv("OPENAI_TIMEOUT", "-5")
		_, err := NewFromEnv()
		assert.ErrorContains(t, err, "timeouts")
	})

	t.Run("chunk", func(t *testing.T) {
		t.Setenv("CHUNK_SUBSEQUENT", "0")
		_, err := NewFromEnv()
		assert.ErrorContains(t, err, "chunk sizes")
	})
}

func TestRequireProvider(t *testing.T) {
	cfg := &Config{}
	assert.ErrorContains(t, cfg.RequireProvider(ProviderOpenAI), "OPENAI_API_KEY")
	assert.ErrorContains(t, cfg.RequireProvider(ProviderDeepL), "DEEPL_API_KEY")
	assert.Error(t, cfg.RequireProvider("papago"))

	cfg.OpenAI.APIKey = "sk-test"
	assert.NoError(t, cfg.RequireProvider(ProviderOpenAI))
}

func TestSettingsFileRoundTripAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.toml")
	t.Setenv("DATA_DIR", dir)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("TRANSLATE_PROVIDER", "")

	want := Settings{
		OpenAIAPIKey:   "sk-from-file",
		OpenAIModel:    "gpt-5-mini",
		DeepLAPIKey:    "deepl-key",
		Provider:       ProviderDeepL,
		TargetLanguage: "ko",
	}
	require.NoError(t, WriteSettingsFile(path, want))

	got, err := LoadSettingsFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-5-mini", cfg.OpenAI.Model)
	assert.Equal(t, ProviderDeepL, cfg.Translate.Provider)
}

func TestLoadSettingsFile_Missing(t *testing.T) {
	got, err := LoadSettingsFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Settings{}, got)
}

func TestWriteSettingsFile_RejectsBadProvider(t *testing.T) {
	err := WriteSettingsFile(filepath.Join(t.TempDir(), "s.toml"), Settings{Provider: "papago"})
	assert.Error(t, err)
}
