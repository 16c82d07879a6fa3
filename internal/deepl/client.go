// Package deepl is a minimal client for the DeepL v2 translate endpoint.
package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/time/rate"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

const provider = "deepl"

// Config for the DeepL client.
//
// APIKey: authentication key (required)
// APIURL: translate endpoint, free or pro
// RatePerSec: request pacing; 0 disables the limiter
// Timeout: per-request limit; 0 leaves requests bounded only by their context
type Config struct {
	APIKey     string
	APIURL     string
	RatePerSec float64
	Timeout    time.Duration
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if c.APIURL == "" {
		return fmt.Errorf("API URL is required")
	}
	if c.RatePerSec < 0 {
		return fmt.Errorf("rate must not be negative")
	}
	return nil
}

type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RatePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RatePerSec), 1)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    limiter,
	}, nil
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate sends each line as its own text value and returns translations in
// the same order. source may be language.Und to let DeepL detect it.
func (c *Client) Translate(ctx context.Context, lines []string, source, target language.Tag) ([]string, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	for _, line := range lines {
		form.Add("text", line)
	}
	form.Set("target_lang", LanguageCode(target))
	if source != language.Und {
		form.Set("source_lang", LanguageCode(source))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Info("DeepL request: lines=%d target=%s", len(lines), form.Get("target_lang"))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("DeepL error: %d %.200s", resp.StatusCode, raw)
		return nil, errs.Upstream(provider, resp.StatusCode, string(raw))
	}

	var parsed translateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Translations) != len(lines) {
		return nil, errs.New(errs.KindUpstream, "translation count mismatch").
			WithContext("provider", provider).
			WithContext("sent", len(lines)).
			WithContext("received", len(parsed.Translations))
	}

	out := make([]string, len(parsed.Translations))
	for i, t := range parsed.Translations {
		out[i] = t.Text
	}
	return out, nil
}

// LanguageCode maps a tag to DeepL's uppercase base language code.
func LanguageCode(tag language.Tag) string {
	base, _ := tag.Base()
	return strings.ToUpper(base.String())
}
