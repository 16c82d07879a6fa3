// Package subtitle reads SRT caption tracks, replays them on their timing as
// caption changes, and writes bilingual SRT files.
package subtitle

import "time"

// Cue is one timed caption.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
	// Translated is filled by Bilingual; empty when there is no translation.
	Translated string
}

// Track is a parsed caption track in cue order.
type Track struct {
	Cues []Cue
}

func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Cues)
}
