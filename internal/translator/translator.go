// Package translator routes translation requests to the configured provider.
package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/internal/llm"
	"github.com/marte113/Player-On-Caption/internal/transcript"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

const (
	ProviderOpenAI = "openai"
	ProviderDeepL  = "deepl"
)

// ErrStreamingUnsupported is returned by Stream for providers without a
// streaming API.
var ErrStreamingUnsupported = errors.New("provider does not support streaming")

// OpenAI is the subset of the LLM client the translator uses.
type OpenAI interface {
	Complete(ctx context.Context, instructions, input string) (string, error)
	Stream(ctx context.Context, instructions, input string) (<-chan llm.StreamEvent, error)
}

// DeepL translates lines positionally.
type DeepL interface {
	Translate(ctx context.Context, lines []string, source, target language.Tag) ([]string, error)
}

// Request is one translation request as it arrives from a caller.
type Request struct {
	Provider string `json:"provider"`
	Text     string `json:"text"`
}

// Client translates transcript text with either provider. A nil provider
// client means that provider is not configured.
type Client struct {
	openai       OpenAI
	deepl        DeepL
	target       language.Tag
	instructions string
}

func New(openai OpenAI, deepl DeepL, target language.Tag) *Client {
	return &Client{
		openai:       openai,
		deepl:        deepl,
		target:       target,
		instructions: BuildInstructions(target),
	}
}

func (c *Client) Target() language.Tag {
	return c.target
}

// Do runs a single-shot request. The data of a successful result is always the
// alternating source/translation text the reconciler consumes.
func (c *Client) Do(ctx context.Context, req Request) Result {
	lines := SplitLines(req.Text)
	if len(lines) == 0 {
		return Failure(errs.New(errs.KindValidation, "no text to translate"))
	}

	text, pairs, err := c.TranslateLines(ctx, req.Provider, lines)
	if err != nil {
		return Failure(err)
	}
	if pairs != nil {
		text = JoinPairs(pairs)
	}
	return Success(text)
}

// TranslateLines translates one chunk. OpenAI returns its raw alternating text
// and nil pairs; DeepL returns pairs matched by position and empty text.
func (c *Client) TranslateLines(ctx context.Context, provider string, lines []string) (string, []transcript.Pair, error) {
	switch provider {
	case ProviderOpenAI:
		if c.openai == nil {
			return "", nil, notConfigured(provider)
		}
		text, err := c.openai.Complete(ctx, c.instructions, strings.Join(lines, "\n"))
		if err != nil {
			return "", nil, err
		}
		return text, nil, nil

	case ProviderDeepL:
		if c.deepl == nil {
			return "", nil, notConfigured(provider)
		}
		source := transcript.DetectLanguage(lines)
		log.Debug("DeepL source language: %s", source)
		out, err := c.deepl.Translate(ctx, lines, source, c.target)
		if err != nil {
			return "", nil, err
		}
		if len(out) != len(lines) {
			return "", nil, errs.New(errs.KindUpstream, "translation count mismatch").
				WithContext("provider", provider).
				WithContext("sent", len(lines)).
				WithContext("received", len(out))
		}
		pairs := make([]transcript.Pair, len(lines))
		for i := range lines {
			pairs[i] = transcript.Pair{Source: lines[i], Target: out[i]}
		}
		return "", pairs, nil

	default:
		return "", nil, unknownProvider(provider)
	}
}

// Stream translates the whole text as one streamed request.
func (c *Client) Stream(ctx context.Context, provider, text string) (<-chan llm.StreamEvent, error) {
	switch provider {
	case ProviderOpenAI:
		if c.openai == nil {
			return nil, notConfigured(provider)
		}
		return c.openai.Stream(ctx, c.instructions, text)
	case ProviderDeepL:
		return nil, ErrStreamingUnsupported
	default:
		return nil, unknownProvider(provider)
	}
}

// CanStream reports whether provider supports Stream.
func CanStream(provider string) bool {
	return provider == ProviderOpenAI
}

// SplitLines returns the trimmed, non-blank lines of text.
func SplitLines(text string) []string {
	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// JoinPairs renders pairs in the alternating line format.
func JoinPairs(pairs []transcript.Pair) string {
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(p.Source)
		b.WriteByte('\n')
		b.WriteString(p.Target)
		b.WriteByte('\n')
	}
	return b.String()
}

func notConfigured(provider string) error {
	return errs.New(errs.KindConfig, fmt.Sprintf("%s API key is not configured", provider)).
		WithContext("provider", provider)
}

func unknownProvider(provider string) error {
	return errs.New(errs.KindValidation, "unknown provider").
		WithContext("provider", provider)
}
