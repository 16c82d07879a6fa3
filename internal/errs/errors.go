package errs

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/marte113/Player-On-Caption/pkg/log"
)

type Kind int

const (
	// KindExtraction: a required page element is missing. Fatal to the action, never retried.
	KindExtraction Kind = iota
	// KindUpstream: a translation back-end answered with a non-success status.
	KindUpstream
	// KindStreaming: the stream failed after it started. Committed pairs are kept.
	KindStreaming
	// KindStorage: cache read/write failed. Callers treat it as a miss.
	KindStorage
	KindValidation
	KindConfig
	KindUnknown
)

func (k Kind) String() string {
	switch k {
	case KindExtraction:
		return "Extraction"
	case KindUpstream:
		return "Upstream"
	case KindStreaming:
		return "Streaming"
	case KindStorage:
		return "Storage"
	case KindValidation:
		return "Validation"
	case KindConfig:
		return "Config"
	default:
		return "Unknown"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error

	// Status and Body are set for KindUpstream.
	Status int
	Body   string
}

func New(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func Wrap(err error, kind Kind, message string) *Error {
	e := New(kind, message)
	e.Cause = err
	return e
}

func Extraction(message string) *Error {
	return New(KindExtraction, message)
}

// Upstream records a non-success HTTP answer together with the raw body.
func Upstream(provider string, status int, body string) *Error {
	e := New(KindUpstream, fmt.Sprintf("%s returned status %d", provider, status))
	e.Status = status
	e.Body = body
	return e.WithContext("provider", provider)
}

func Streaming(cause error) *Error {
	return Wrap(cause, KindStreaming, "translation stream failed")
}

func Storage(cause error, op string) *Error {
	return Wrap(cause, KindStorage, "cache "+op+" failed")
}

func (e *Error) Error() string {
	parts := []string{fmt.Sprintf("[%s] %s", e.Kind, e.Message)}

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, "context: "+strings.Join(ctxParts, ", "))
	}
	if e.Body != "" {
		parts = append(parts, "body: "+truncate(e.Body, 200))
	}
	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) WithContext(key string, value any) *Error {
	e.Context[key] = value
	return e
}

// IsKind reports whether any error in err's chain is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Fatal reports whether err must stop the current action. Storage failures never do.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) != KindStorage
}

// Handler turns failures from the top-level mode handler into user-facing notices.
type Handler interface {
	Handle(err error) string
	Advice(kind Kind) string
}

type DefaultHandler struct{}

func NewDefaultHandler() Handler {
	return DefaultHandler{}
}

// Handle logs err and returns the notice shown to the user.
func (h DefaultHandler) Handle(err error) string {
	if err == nil {
		return ""
	}
	kind := KindOf(err)
	advice := h.Advice(kind)
	if kind == KindStorage {
		log.Warn("%v", err)
	} else {
		log.Error("%v (advice: %s)", err, advice)
	}
	return fmt.Sprintf("%s: %s", kind, advice)
}

func (h DefaultHandler) Advice(kind Kind) string {
	switch kind {
	case KindExtraction:
		return "The lecture page is missing the title or transcript; open the lecture view and try again"
	case KindUpstream:
		return "The translation service rejected the request; check the API key, model and quota"
	case KindStreaming:
		return "The translation stream stopped early; subtitles translated so far are still shown"
	case KindStorage:
		return "The translation cache is unavailable; translating without it"
	case KindValidation:
		return "The request is malformed; check the mode, provider and input file"
	case KindConfig:
		return "Check the configuration file and environment variables"
	default:
		return "See the log for details"
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
