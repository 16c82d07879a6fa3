package render

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// CaptionSource exposes the caption currently on screen and whether the video
// is playing.
type CaptionSource interface {
	Current() (string, bool)
	Playing() bool
}

// LineFeed turns a reader with one caption per line into change events. It is
// also a CaptionSource reporting the latest line; it counts as playing until
// the reader is exhausted.
type LineFeed struct {
	r       io.Reader
	changes chan string

	mu      sync.Mutex
	current string
	done    bool
}

func NewLineFeed(r io.Reader) *LineFeed {
	return &LineFeed{r: r, changes: make(chan string)}
}

func (f *LineFeed) Changes() <-chan string {
	return f.changes
}

// Run reads until EOF or ctx ends, then closes the change channel.
func (f *LineFeed) Run(ctx context.Context) error {
	defer close(f.changes)
	defer f.finish()

	scanner := bufio.NewScanner(f.r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		f.mu.Lock()
		f.current = line
		f.mu.Unlock()

		select {
		case f.changes <- line:
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}

func (f *LineFeed) finish() {
	f.mu.Lock()
	f.done = true
	f.mu.Unlock()
}

func (f *LineFeed) Current() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.current != ""
}

func (f *LineFeed) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.done
}
