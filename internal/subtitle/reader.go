package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var srtTiming = regexp.MustCompile(`(\d{2}):(\d{2}):(\d{2})[,.](\d{3})\s*-->\s*(\d{2}):(\d{2}):(\d{2})[,.](\d{3})`)

type parseState int

const (
	stateIndex parseState = iota
	stateTiming
	stateText
)

// IsSRT reports whether path looks like an SRT file.
func IsSRT(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), ".srt")
}

// ReadFile parses the SRT file at path.
func ReadFile(path string) (*Track, error) {
	if !IsSRT(path) {
		return nil, fmt.Errorf("only SRT caption files are supported: %s", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open caption file: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads an SRT track. Multi-line cue text is joined with a space, since
// the player shows one caption line at a time. Blocks without a valid index
// are skipped.
func Parse(r io.Reader) (*Track, error) {
	var (
		cues  []Cue
		cur   Cue
		text  []string
		state = stateIndex
	)
	flush := func() {
		if len(text) > 0 {
			cur.Text = strings.Join(text, " ")
			cues = append(cues, cur)
		}
		cur, text = Cue{}, nil
		state = stateIndex
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))

		switch state {
		case stateIndex:
			if line == "" {
				continue
			}
			index, err := strconv.Atoi(line)
			if err != nil {
				continue
			}
			cur.Index = index
			state = stateTiming

		case stateTiming:
			if line == "" {
				continue
			}
			start, end, err := parseTiming(line)
			if err != nil {
				return nil, fmt.Errorf("cue %d: %w", cur.Index, err)
			}
			cur.Start, cur.End = start, end
			state = stateText

		case stateText:
			if line == "" {
				flush()
				continue
			}
			text = append(text, line)
		}
	}
	if state == stateText {
		flush()
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read caption file: %w", err)
	}
	return &Track{Cues: cues}, nil
}

func parseTiming(s string) (time.Duration, time.Duration, error) {
	m := srtTiming.FindStringSubmatch(s)
	if len(m) != 9 {
		return 0, 0, fmt.Errorf("invalid timing line: %q", s)
	}
	return timestamp(m[1:5]), timestamp(m[5:9]), nil
}

func timestamp(parts []string) time.Duration {
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	s, _ := strconv.Atoi(parts[2])
	ms, _ := strconv.Atoi(parts[3])
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(ms)*time.Millisecond
}
