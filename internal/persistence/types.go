package persistence

import (
	"context"
	"time"

	"golang.org/x/text/language"

	"github.com/marte113/Player-On-Caption/internal/transcript"
)

// TranslationEntry is a lecture's translation map as cached under its title.
type TranslationEntry struct {
	Title          string
	Provider       string
	TargetLanguage language.Tag
	Map            *transcript.Map
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TranslationSummary describes a cached entry without loading its pairs.
type TranslationSummary struct {
	Title           string    `json:"title"`
	Provider        string    `json:"provider"`
	TargetLanguage  string    `json:"target_language"`
	LineCount       int       `json:"line_count"`
	TranslatedCount int       `json:"translated_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TranslationStore is the cache used by sessions and the bridge.
type TranslationStore interface {
	PutTranslation(ctx context.Context, entry TranslationEntry) error
	GetTranslation(ctx context.Context, title string) (TranslationEntry, bool, error)
}
