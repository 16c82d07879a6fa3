package llm

import (
	"fmt"
)

// Config holds the configuration for the OpenAI client.
//
// APIKey: bearer token (required)
// APIURL: base URL, e.g. https://api.openai.com/v1
// Model: model for streamed whole-transcript translation (Responses API)
// ChatModel: model for chunked chat completions; falls back to Model
// Temperature: sampling temperature for chat completions
// Timeout: seconds allowed for a single-shot request, 0 for no limit; streams
// are bounded by their context instead
type Config struct {
	APIKey      string  `json:"api_key"`
	APIURL      string  `json:"api_url"`
	Model       string  `json:"model"`
	ChatModel   string  `json:"chat_model"`
	Temperature float64 `json:"temperature"`
	Timeout     int     `json:"timeout"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

// GetHeaders returns the headers for an API request
func (c *Config) GetHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.APIKey,
		"Content-Type":  "application/json",
	}
}

func (c *Config) chatModel() string {
	if c.ChatModel != "" {
		return c.ChatModel
	}
	return c.Model
}
