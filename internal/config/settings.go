package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// Settings is what the options flow persists: provider keys and the user's
// model and language choices. Non-empty fields override the environment.
type Settings struct {
	OpenAIAPIKey   string `toml:"openai_api_key"`
	OpenAIModel    string `toml:"openai_model"`
	DeepLAPIKey    string `toml:"deepl_api_key"`
	Provider       string `toml:"provider"`
	TargetLanguage string `toml:"target_language"`
}

// SettingsFilePath honours SETTINGS_FILE, defaulting next to the cache.
func SettingsFilePath(dataDir string) string {
	return getEnvString("SETTINGS_FILE", filepath.Join(dataDir, "settings.toml"))
}

func (s Settings) Validate() error {
	if p := strings.TrimSpace(s.Provider); p != "" && p != ProviderOpenAI && p != ProviderDeepL {
		return fmt.Errorf("provider must be %q or %q", ProviderOpenAI, ProviderDeepL)
	}
	if t := strings.TrimSpace(s.TargetLanguage); t != "" {
		if _, err := language.Parse(t); err != nil {
			return fmt.Errorf("invalid target_language: %w", err)
		}
	}
	return nil
}

func WithSettings(settings Settings) Option {
	return func(c *Config) {
		if v := strings.TrimSpace(settings.OpenAIAPIKey); v != "" {
			c.OpenAI.APIKey = v
		}
		if v := strings.TrimSpace(settings.OpenAIModel); v != "" {
			c.OpenAI.Model = v
		}
		if v := strings.TrimSpace(settings.DeepLAPIKey); v != "" {
			c.DeepL.APIKey = v
		}
		if v := strings.ToLower(strings.TrimSpace(settings.Provider)); v != "" {
			c.Translate.Provider = v
		}
		if tag, err := language.Parse(settings.TargetLanguage); err == nil {
			c.Translate.TargetLanguage = tag
		}
	}
}

// LoadSettingsFile reads a TOML settings file. A missing file yields zero
// Settings and no error.
func LoadSettingsFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Settings{}, nil
		}
		return Settings{}, err
	}
	var settings Settings
	if err := toml.NewDecoder(bytes.NewReader(data)).Decode(&settings); err != nil {
		return Settings{}, fmt.Errorf("invalid settings file: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func WriteSettingsFile(path string, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	content, err := toml.Marshal(settings)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// Load builds the Config from the environment overlaid with the settings file.
func Load(settingsPath string, opts ...Option) (*Config, error) {
	if settingsPath == "" {
		settingsPath = SettingsFilePath(DataDirFromEnv())
	}
	settings, err := LoadSettingsFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("load settings %s: %w", settingsPath, err)
	}
	return NewFromEnv(append([]Option{WithSettings(settings)}, opts...)...)
}
