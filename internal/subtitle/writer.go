package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marte113/Player-On-Caption/internal/transcript"
)

// Bilingual returns a copy of track with each cue's translation looked up in
// m. It reports how many cues got one.
func Bilingual(track *Track, m *transcript.Map) (*Track, int) {
	out := &Track{Cues: make([]Cue, len(track.Cues))}
	hits := 0
	for i, cue := range track.Cues {
		if translated, ok := m.Lookup(transcript.Normalize(cue.Text)); ok {
			cue.Translated = translated
			hits++
		}
		out.Cues[i] = cue
	}
	return out, hits
}

// Write renders track as SRT. A translated cue carries its translation on the
// line under the original.
func Write(w io.Writer, track *Track) error {
	bw := bufio.NewWriter(w)
	for i, cue := range track.Cues {
		index := cue.Index
		if index == 0 {
			index = i + 1
		}
		fmt.Fprintf(bw, "%d\n%s --> %s\n%s\n", index, formatTimestamp(cue.Start), formatTimestamp(cue.End), cue.Text)
		if cue.Translated != "" {
			fmt.Fprintf(bw, "%s\n", cue.Translated)
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func WriteFile(path string, track *Track) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := Write(f, track); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatTimestamp(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, milliseconds)
}
