package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

const provider = "openai"

// Client is an OpenAI API client for translation requests.
// Safe for concurrent use.
//
// httpClient: bounded by Config.Timeout, used for single-shot requests
// streamClient: unbounded, a stream lives as long as its context
type Client struct {
	config       *Config
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
}

// NewClient creates a new client with the given configuration
//
// Example:
//
//	client, err := llm.NewClient(&llm.Config{APIKey: key, APIURL: url, Model: "gpt-5-nano", Timeout: 120})
//	if err != nil {
//		log.Fatal(err)
//	}
//	text, err := client.Complete(ctx, instructions, transcript)
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Client{
		config:  config,
		baseURL: config.APIURL,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
		streamClient: &http.Client{},
	}, nil
}

// Complete sends instructions and input as one chat completion and returns the
// assistant's text. A non-2xx status yields an upstream error carrying the
// status and body.
func (c *Client) Complete(ctx context.Context, instructions, input string) (string, error) {
	request := ChatRequest{
		Model: c.config.chatModel(),
		Messages: []Message{
			{Role: "system", Content: instructions},
			{Role: "user", Content: input},
		},
		MaxTokens:   PickMaxOutput(instructions, input),
		Temperature: c.config.Temperature,
	}

	response, err := c.makeRequest(ctx, http.MethodPost, "/chat/completions", request)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", errs.New(errs.KindUpstream, "no choices in response").
			WithContext("provider", provider)
	}
	return response.Choices[0].Message.Content, nil
}

// makeRequest makes a raw HTTP request to the API
func (c *Client) makeRequest(ctx context.Context, method, path string, payload any) (*ChatResponse, error) {
	resp, err := c.do(ctx, c.httpClient, method, path, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error("OpenAI bad response: %d %s", resp.StatusCode, truncate(string(responseBody), 200))
		return nil, errs.Upstream(provider, resp.StatusCode, string(responseBody))
	}

	var chatResponse ChatResponse
	if err := json.Unmarshal(responseBody, &chatResponse); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if chatResponse.Error != nil && chatResponse.Error.Message != "" {
		return nil, errs.Wrap(chatResponse.Error, errs.KindUpstream, "API returned an error").
			WithContext("provider", provider)
	}
	return &chatResponse, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := hc.Do(req)
	if err != nil {
		if os.IsTimeout(err) {
			return nil, fmt.Errorf("request timed out: %w", err)
		}
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	return resp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
