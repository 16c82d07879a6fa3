package render

import (
	"context"
	"sync"
	"time"

	"github.com/marte113/Player-On-Caption/internal/transcript"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

const (
	DefaultBootstrapWindow = 4 * time.Second
	DefaultPollInterval    = 500 * time.Millisecond
)

// Synchronizer looks each caption change up in the translation map and shows
// the pair on a hit. A miss leaves the display as it is, so the overlay never
// flickers to blank between lines that have not been translated yet.
type Synchronizer struct {
	display  Display
	window   time.Duration
	interval time.Duration

	mu             sync.Mutex
	m              *transcript.Map
	lastOriginal   string
	lastTranslated string
	closed         bool
}

type Option func(*Synchronizer)

// WithBootstrap sets how long, and how often, Bootstrap polls the caption
// source. A zero window disables polling.
func WithBootstrap(window, interval time.Duration) Option {
	return func(s *Synchronizer) {
		s.window = window
		if interval > 0 {
			s.interval = interval
		}
	}
}

func NewSynchronizer(m *transcript.Map, display Display, opts ...Option) *Synchronizer {
	s := &Synchronizer{
		m:        m,
		display:  display,
		window:   DefaultBootstrapWindow,
		interval: DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Update handles one caption change and reports whether the display was written.
func (s *Synchronizer) Update(caption string) bool {
	key := transcript.Normalize(caption)
	if key == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.m == nil {
		return false
	}

	translated, ok := s.m.Lookup(key)
	if !ok {
		return false
	}
	if caption == s.lastOriginal && translated == s.lastTranslated {
		return false
	}
	if err := s.display.Show(caption, translated); err != nil {
		log.Warn("failed to show caption: %v", err)
		return false
	}
	s.lastOriginal, s.lastTranslated = caption, translated
	return true
}

// Close stops all further display writes.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Run renders each caption change until ctx ends or changes is closed. The
// synchronizer is closed on return. A nil changes channel returns at once and
// leaves the synchronizer open.
func (s *Synchronizer) Run(ctx context.Context, changes <-chan string) error {
	if changes == nil {
		return nil
	}
	defer s.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case caption, ok := <-changes:
			if !ok {
				return nil
			}
			s.Update(caption)
		}
	}
}

// Bootstrap polls src for the bootstrap window while the video plays, so a
// caption that was already on screen when the first translations landed is
// shown without waiting for the next change. Callers start it once the map has
// its first translated pair.
func (s *Synchronizer) Bootstrap(ctx context.Context, src CaptionSource) error {
	if src == nil || s.window <= 0 {
		return nil
	}
	s.poll(src)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.window)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return nil
		case <-ticker.C:
			s.poll(src)
		}
	}
}

func (s *Synchronizer) poll(src CaptionSource) {
	if !src.Playing() {
		return
	}
	if caption, ok := src.Current(); ok {
		s.Update(caption)
	}
}
