package llm

import "fmt"

// Message represents a chat message
//
// Role: "system", "user", or "assistant"
// Content: Text content of the message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_completion_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// ChatResponse represents a chat completion response
type ChatResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
	Error   *Error   `json:"error,omitempty"`
}

// Choice represents a completion choice
//
// FinishReason values: "stop", "length", "content_filter"
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage statistics
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Error represents an API error payload
type Error struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("OpenAI API error: %s (type: %s, code: %s)", e.Message, e.Type, e.Code)
}

// ResponsesRequest is the streaming request body for /responses.
type ResponsesRequest struct {
	Model           string         `json:"model"`
	Input           string         `json:"input"`
	Instructions    string         `json:"instructions,omitempty"`
	Stream          bool           `json:"stream"`
	MaxOutputTokens int            `json:"max_output_tokens,omitempty"`
	Text            *TextOptions   `json:"text,omitempty"`
	Reasoning       *ReasoningOpts `json:"reasoning,omitempty"`
}

type TextOptions struct {
	Verbosity string `json:"verbosity,omitempty"`
}

type ReasoningOpts struct {
	Effort string `json:"effort,omitempty"`
}

// EventKind tags a StreamEvent.
type EventKind int

const (
	EventDelta EventKind = iota
	EventDone
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventDelta:
		return "delta"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// StreamEvent is one decoded server-sent event. Text is set for deltas and Err
// for errors.
type StreamEvent struct {
	Kind EventKind
	Text string
	Err  error
}

// sseEvent covers the fields of the Responses streaming events we act on.
type sseEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
	// response.error carries "error"; the top-level "error" event carries
	// "message" directly.
	Error   *Error `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}
