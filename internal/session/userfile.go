package session

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/marte113/Player-On-Caption/internal/transcript"
)

// ParseUserFile reads a user-supplied translation file: non-blank lines
// alternate between a source line and its translation. Source lines are
// normalized into keys; a trailing source line without a translation is
// ignored.
func ParseUserFile(r io.Reader) (*transcript.Map, error) {
	m := transcript.NewMap()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var source string
	var haveSource bool
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !haveSource {
			source, haveSource = transcript.Normalize(line), true
			continue
		}
		if source != "" {
			m.Set(source, line)
		}
		haveSource = false
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read translation file: %w", err)
	}
	return m, nil
}
