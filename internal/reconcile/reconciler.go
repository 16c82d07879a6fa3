// Package reconcile rebuilds (source, translation) line pairs from text that
// arrives in fragments whose boundaries have nothing to do with line breaks.
package reconcile

import (
	"context"
	"strings"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/internal/llm"
	"github.com/marte113/Player-On-Caption/internal/transcript"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

// Stats counts what a reconciler did.
type Stats struct {
	Pairs      int `json:"pairs"`
	Dropped    int `json:"dropped"`
	Collisions int `json:"collisions"`
}

// Reconciler pairs complete lines strictly by position: line 2k is a source
// line and line 2k+1 its translation. Each pair is written to the target map
// as soon as both halves are known. A Reconciler is driven by one goroutine.
type Reconciler struct {
	target      *transcript.Map
	onReady     func()
	accumulated strings.Builder
	pending     []string
	ready       bool
	stats       Stats
}

// New returns a Reconciler writing into target. onReady, if set, is called once
// when the first pair is committed.
func New(target *transcript.Map, onReady func()) *Reconciler {
	return &Reconciler{target: target, onReady: onReady}
}

// Feed consumes one fragment and returns how many pairs it committed.
func (r *Reconciler) Feed(fragment string) int {
	if fragment == "" {
		return 0
	}
	r.accumulated.WriteString(fragment)

	buf := r.accumulated.String()
	last := strings.LastIndexByte(buf, '\n')
	if last < 0 {
		return 0
	}
	r.accumulated.Reset()
	r.accumulated.WriteString(buf[last+1:])

	r.push(buf[:last])
	return r.drain()
}

// Finish flushes the in-progress line and pairs what remains. A single
// unpaired trailing line cannot form a pair and is dropped; it is returned so
// the caller can log it.
func (r *Reconciler) Finish() (dropped string) {
	rest := r.accumulated.String()
	r.accumulated.Reset()
	r.push(rest)
	r.drain()

	if len(r.pending) == 1 {
		dropped = r.pending[0]
		r.pending = r.pending[:0]
		r.stats.Dropped++
		log.Warn("dropping unpaired trailing line: %q", dropped)
	}
	return dropped
}

// Fail reports a stream failure. Pairs already committed stay in the map.
func (r *Reconciler) Fail(cause error) error {
	log.Error("translation stream failed after %d pairs: %v", r.stats.Pairs, cause)
	if errs.IsKind(cause, errs.KindStreaming) {
		return cause
	}
	return errs.Streaming(cause)
}

// ApplyAll reconciles a complete response in one pass.
func (r *Reconciler) ApplyAll(text string) (committed int, dropped string) {
	committed = r.Feed(text)
	before := r.stats.Pairs
	dropped = r.Finish()
	return committed + r.stats.Pairs - before, dropped
}

// Consume drives the reconciler from a stream until its terminal event. It
// returns nil on Done, a streaming error on Error, and ctx.Err() once ctx is
// cancelled, after which nothing more is committed.
func (r *Reconciler) Consume(ctx context.Context, events <-chan llm.StreamEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if !ok {
				r.Finish()
				return nil
			}
			switch ev.Kind {
			case llm.EventDelta:
				r.Feed(ev.Text)
			case llm.EventDone:
				r.Finish()
				return nil
			case llm.EventError:
				return r.Fail(ev.Err)
			}
		}
	}
}

func (r *Reconciler) Stats() Stats {
	return r.stats
}

// Ready reports whether at least one pair has been committed.
func (r *Reconciler) Ready() bool {
	return r.ready
}

func (r *Reconciler) push(block string) {
	for line := range strings.SplitSeq(block, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			r.pending = append(r.pending, line)
		}
	}
}

func (r *Reconciler) drain() int {
	n := 0
	for len(r.pending) >= 2 {
		source, translated := r.pending[0], r.pending[1]
		r.pending = r.pending[2:]
		r.commit(source, translated)
		n++
	}
	if len(r.pending) == 0 {
		r.pending = nil
	}
	return n
}

func (r *Reconciler) commit(source, translated string) {
	r.stats.Pairs++
	key := transcript.Normalize(source)
	if key == "" {
		log.Debug("source line %q has no key after normalization, skipping", source)
		return
	}
	if prev, had := r.target.Lookup(key); had && prev != translated {
		r.stats.Collisions++
		log.Debug("normalized key %q translated again, keeping latest", key)
	}
	r.target.Set(key, translated)

	if !r.ready {
		r.ready = true
		if r.onReady != nil {
			r.onReady()
		}
	}
}
