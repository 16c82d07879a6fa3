package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/text/language"

	"github.com/marte113/Player-On-Caption/pkg/log"
)

// Config holds all application configuration.
// Values come from environment variables (optionally a .env file) with sensible
// defaults; a settings file written by the options flow may override them.
//
// Environment Variables:
// OpenAI:
// - OPENAI_API_KEY: API key (required for the openai provider)
// - OPENAI_API_URL: API base URL (default: https://api.openai.com/v1)
// - OPENAI_MODEL: model used for streaming whole-transcript translation (default: gpt-5-nano)
// - OPENAI_CHAT_MODEL: model used for chunked chat completions (default: gpt-4o-mini)
// - OPENAI_TIMEOUT: timeout in seconds for chunked requests, 0 for none (default: 0)
//
// DeepL:
// - DEEPL_API_KEY: API key (required for the deepl provider)
// - DEEPL_API_URL: endpoint (default: https://api-free.deepl.com/v2/translate)
// - DEEPL_RATE_PER_SEC: request pacing (default: 2)
// - DEEPL_TIMEOUT: per-request timeout, 0 for none (default: 0)
//
// Translation:
// - TRANSLATE_PROVIDER: openai or deepl (default: openai)
// - TRANSLATE_STREAM: stream the whole transcript instead of chunking (default: true)
// - TARGET_LANGUAGE: BCP 47 tag (default: ko)
// - CHUNK_INITIAL / CHUNK_SUBSEQUENT: chunk sizes (default: 20 / 50)
//
// Rendering:
// - RENDER_BOOTSTRAP_WINDOW: initial polling window (default: 4s)
// - RENDER_POLL_INTERVAL: polling tick (default: 500ms)
//
// System:
// - DATA_DIR: cache and lock directory (default: ~/.player-on-caption)
// - LOG_LEVEL: debug, info, warn, error (default: info)
// - SERVER_ADDR: bridge listen address (default: 127.0.0.1:5004)
// - CORS_ORIGINS: comma separated allowed origins (default: *)
// - CACHE_MAINTENANCE_CRON: cache maintenance schedule (default: 0 4 * * *)
type Config struct {
	OpenAI    OpenAIConfig    `json:"openai"`
	DeepL     DeepLConfig     `json:"deepl"`
	Translate TranslateConfig `json:"translate"`
	Render    RenderConfig    `json:"render"`
	System    SystemConfig    `json:"system"`
	HTTP      HTTPConfig      `json:"http"`
}

const (
	ProviderOpenAI = "openai"
	ProviderDeepL  = "deepl"
)

type OpenAIConfig struct {
	APIKey    string `json:"-"`
	APIURL    string `json:"api_url"`
	Model     string `json:"model"`
	ChatModel string `json:"chat_model"`
	Timeout   int    `json:"timeout"`
}

type DeepLConfig struct {
	APIKey     string        `json:"-"`
	APIURL     string        `json:"api_url"`
	RatePerSec float64       `json:"rate_per_sec"`
	Timeout    time.Duration `json:"timeout"`
}

type TranslateConfig struct {
	Provider       string       `json:"provider"`
	Stream         bool         `json:"stream"`
	TargetLanguage language.Tag `json:"target_language"`
	InitialChunk   int          `json:"initial_chunk"`
	SubsequentSize int          `json:"subsequent_chunk"`
}

type RenderConfig struct {
	BootstrapWindow time.Duration `json:"bootstrap_window"`
	PollInterval    time.Duration `json:"poll_interval"`
}

type SystemConfig struct {
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
}

type HTTPConfig struct {
	Addr            string   `json:"addr"`
	CORSOrigins     []string `json:"cors_origins"`
	MaintenanceCron string   `json:"maintenance_cron"`
}

// DBPath is the sqlite cache location.
func (c *Config) DBPath() string {
	return filepath.Join(c.System.DataDir, "captions.db")
}

// LockPath guards a data dir against two bridge processes.
func (c *Config) LockPath() string {
	return filepath.Join(c.System.DataDir, "serve.lock")
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a Config from the environment, a .env file in the working
// directory if present, and the given options.
func NewFromEnv(opts ...Option) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		OpenAI: OpenAIConfig{
			APIKey:    getEnvString("OPENAI_API_KEY", ""),
			APIURL:    getEnvString("OPENAI_API_URL", "https://api.openai.com/v1"),
			Model:     getEnvString("OPENAI_MODEL", "gpt-5-nano"),
			ChatModel: getEnvString("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			Timeout:   getEnvInt("OPENAI_TIMEOUT", 0),
		},
		DeepL: DeepLConfig{
			APIKey:     getEnvString("DEEPL_API_KEY", ""),
			APIURL:     getEnvString("DEEPL_API_URL", "https://api-free.deepl.com/v2/translate"),
			RatePerSec: getEnvFloat("DEEPL_RATE_PER_SEC", 2),
			Timeout:    getEnvDuration("DEEPL_TIMEOUT", 0),
		},
		Translate: TranslateConfig{
			Provider:       strings.ToLower(getEnvString("TRANSLATE_PROVIDER", ProviderOpenAI)),
			Stream:         getEnvBool("TRANSLATE_STREAM", true),
			TargetLanguage: getEnvLanguage("TARGET_LANGUAGE", language.Korean),
			InitialChunk:   getEnvInt("CHUNK_INITIAL", 20),
			SubsequentSize: getEnvInt("CHUNK_SUBSEQUENT", 50),
		},
		Render: RenderConfig{
			BootstrapWindow: getEnvDuration("RENDER_BOOTSTRAP_WINDOW", 4*time.Second),
			PollInterval:    getEnvDuration("RENDER_POLL_INTERVAL", 500*time.Millisecond),
		},
		System: SystemConfig{
			DataDir:  getEnvString("DATA_DIR", defaultDataDir()),
			LogLevel: getEnvString("LOG_LEVEL", "info"),
		},
		HTTP: HTTPConfig{
			Addr:            getEnvString("SERVER_ADDR", "127.0.0.1:5004"),
			CORSOrigins:     getEnvList("CORS_ORIGINS", []string{"*"}),
			MaintenanceCron: getEnvString("CACHE_MAINTENANCE_CRON", "0 4 * * *"),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: provider=%s stream=%v target=%s data_dir=%s", config.Translate.Provider, config.Translate.Stream, config.Translate.TargetLanguage, config.System.DataDir)
	return config, nil
}

// validate checks structural settings. API keys are checked per provider by
// RequireProvider, since cache commands run without any.
func (c *Config) validate() error {
	switch c.Translate.Provider {
	case ProviderOpenAI, ProviderDeepL:
	default:
		return fmt.Errorf("unknown TRANSLATE_PROVIDER %q", c.Translate.Provider)
	}
	if c.Translate.InitialChunk < 1 || c.Translate.SubsequentSize < 1 {
		return fmt.Errorf("chunk sizes must be greater than 0")
	}
	if c.OpenAI.Timeout < 0 || c.DeepL.Timeout < 0 {
		return fmt.Errorf("request timeouts must not be negative")
	}
	if c.Render.PollInterval <= 0 {
		return fmt.Errorf("RENDER_POLL_INTERVAL must be positive")
	}
	if c.Render.BootstrapWindow < 0 {
		return fmt.Errorf("RENDER_BOOTSTRAP_WINDOW must not be negative")
	}
	if strings.TrimSpace(c.System.DataDir) == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.HTTP.MaintenanceCron != "" {
		if _, err := cron.ParseStandard(c.HTTP.MaintenanceCron); err != nil {
			return fmt.Errorf("invalid CACHE_MAINTENANCE_CRON: %w", err)
		}
	}
	return nil
}

// RequireProvider reports whether the credentials for provider are present.
func (c *Config) RequireProvider(provider string) error {
	switch provider {
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is not set")
		}
	case ProviderDeepL:
		if c.DeepL.APIKey == "" {
			return fmt.Errorf("DEEPL_API_KEY is not set")
		}
	default:
		return fmt.Errorf("unknown provider %q", provider)
	}
	return nil
}

// DataDirFromEnv resolves DATA_DIR without loading the rest of the config.
func DataDirFromEnv() string {
	return getEnvString("DATA_DIR", defaultDataDir())
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".player-on-caption"
	}
	return filepath.Join(home, ".player-on-caption")
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvLanguage(key string, defaultValue language.Tag) language.Tag {
	if value := os.Getenv(key); value != "" {
		if tag, err := language.Parse(value); err == nil {
			return tag
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var ret []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			ret = append(ret, p)
		}
	}
	if len(ret) == 0 {
		return defaultValue
	}
	return ret
}
