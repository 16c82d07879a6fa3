package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marte113/Player-On-Caption/internal/errs"
)

func testConfig(url string) *Config {
	return &Config{
		APIKey:  "test-key",
		APIURL:  url,
		Model:   "test-model",
		Timeout: 30,
	}
}

func TestNewClient(t *testing.T) {
	config := testConfig("https://api.example.com")

	client, err := NewClient(config)
	require.NoError(t, err)
	assert.Equal(t, config, client.config)
	assert.Equal(t, config.APIURL, client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.Zero(t, client.streamClient.Timeout)

	_, err = NewClient(&Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestNewClientTimeout(t *testing.T) {
	config := testConfig("https://api.example.com")
	client, err := NewClient(config)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, client.httpClient.Timeout)

	config = testConfig("https://api.example.com")
	config.Timeout = 0
	client, err = NewClient(config)
	require.NoError(t, err, "zero means no limit")
	assert.Zero(t, client.httpClient.Timeout)

	config.Timeout = -1
	_, err = NewClient(config)
	assert.ErrorContains(t, err, "timeout")
}

func TestComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "chat-model", req.Model)
		if assert.Len(t, req.Messages, 2) {
			assert.Equal(t, "system", req.Messages[0].Role)
			assert.Equal(t, "translate please", req.Messages[0].Content)
			assert.Equal(t, "Hello", req.Messages[1].Content)
		}
		assert.Positive(t, req.MaxTokens)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "test-id",
			"model": "chat-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "Hello\n안녕"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 20, "total_tokens": 30}
		}`))
	}))
	defer server.Close()

	config := testConfig(server.URL)
	config.ChatModel = "chat-model"
	client, err := NewClient(config)
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), "translate please", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n안녕", text)
}

func TestCompleteUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Invalid API key", "type": "authentication_error"}}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "sys", "Hello")
	require.Error(t, err)
	assert.True(t, errs.IsKind(err, errs.KindUpstream))

	var e *errs.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, http.StatusUnauthorized, e.Status)
	assert.Contains(t, e.Body, "Invalid API key")
}

func TestCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "x", "choices": []}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "sys", "Hello")
	assert.True(t, errs.IsKind(err, errs.KindUpstream))
}

func TestCompleteInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "sys", "Hello")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func TestCompleteConcurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "ok"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.Complete(context.Background(), "sys", "Hello")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
}

func TestPickMaxOutput(t *testing.T) {
	assert.Equal(t, desiredOutput, PickMaxOutput("short", "input"))

	// Input that leaves less than the desired budget in the window.
	huge := make([]byte, (contextWindow-safetyMargin-1_000)*4)
	for i := range huge {
		huge[i] = 'a'
	}
	assert.Equal(t, 1_000, PickMaxOutput("", string(huge)))

	// Input past the window still gets the floor.
	overflow := string(huge) + string(huge)
	assert.Equal(t, minOutputTokens, PickMaxOutput("", overflow))
}

func TestApproxTokens(t *testing.T) {
	assert.Equal(t, 0, ApproxTokens(""))
	assert.Equal(t, 1, ApproxTokens("abc"))
	assert.Equal(t, 1, ApproxTokens("abcd"))
	assert.Equal(t, 2, ApproxTokens("abcde"))
}

// TestOpenAIIntegration talks to the real API.
// Skipped unless OPENAI_API_KEY is set.
func TestOpenAIIntegration(t *testing.T) {
	_ = godotenv.Load("../../.env")
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	client, err := NewClient(&Config{
		APIKey:    apiKey,
		APIURL:    "https://api.openai.com/v1",
		Model:     "gpt-5-nano",
		ChatModel: "gpt-4o-mini",
		Timeout:   60,
	})
	require.NoError(t, err)

	text, err := client.Complete(context.Background(),
		"Reply with the English line followed by its Korean translation on the next line.",
		"Hello world")
	require.NoError(t, err)
	assert.NotEmpty(t, text)
	t.Logf("response: %s", text)
}
