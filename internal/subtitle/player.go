package subtitle

import (
	"context"
	"sync"
	"time"
)

// Player replays a track on its cue timing, emitting each cue's text as a
// caption change. It is also a caption source for the synchronizer's polling
// pass: it counts as playing until the last cue has been emitted.
type Player struct {
	track   *Track
	speed   float64
	changes chan string

	mu      sync.Mutex
	current string
	done    bool
}

// NewPlayer replays track at speed times real time. A speed of 0 or less
// emits every cue without waiting.
func NewPlayer(track *Track, speed float64) *Player {
	return &Player{track: track, speed: speed, changes: make(chan string)}
}

func (p *Player) Changes() <-chan string {
	return p.changes
}

// Run replays the track until it ends or ctx is done, then closes Changes.
func (p *Player) Run(ctx context.Context) error {
	defer close(p.changes)
	defer p.finish()

	var at time.Duration
	for _, cue := range p.track.Cues {
		if wait := p.scale(cue.Start - at); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil
			}
		}
		at = max(at, cue.Start)

		p.mu.Lock()
		p.current = cue.Text
		p.mu.Unlock()

		select {
		case p.changes <- cue.Text:
		case <-ctx.Done():
			return nil
		}
	}
	return nil
}

func (p *Player) scale(d time.Duration) time.Duration {
	if p.speed <= 0 || d <= 0 {
		return 0
	}
	return time.Duration(float64(d) / p.speed)
}

func (p *Player) finish() {
	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
}

func (p *Player) Current() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.current != ""
}

func (p *Player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.done
}
