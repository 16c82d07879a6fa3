package transcript

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize produces the lookup key for a caption line: lowercased, with every
// rune other than ASCII letters, digits, Hangul syllables and whitespace removed,
// and surrounding whitespace trimmed. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	// A Caser keeps state, so one is built per call rather than shared.
	lowered := cases.Lower(language.Und).String(s)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		if keepRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

func keepRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r >= 0xAC00 && r <= 0xD7A3:
		return true
	default:
		return unicode.IsSpace(r)
	}
}
