// Package render shows translated captions next to the original ones as the
// player's caption changes.
package render

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// Display is the overlay surface.
type Display interface {
	Show(original, translated string) error
	SetLoading(loading bool)
}

// TerminalDisplay prints each caption pair as two lines, the translation
// highlighted when the writer is a terminal.
type TerminalDisplay struct {
	mu       sync.Mutex
	w        io.Writer
	colorize bool
	loading  bool
}

func NewTerminalDisplay(w io.Writer) *TerminalDisplay {
	return &TerminalDisplay{w: w, colorize: shouldColorize(w)}
}

var (
	originalColors   = text.Colors{text.FgHiBlack}
	translatedColors = text.Colors{text.FgHiYellow, text.Bold}
	loadingColors    = text.Colors{text.FgCyan}
)

func (d *TerminalDisplay) Show(original, translated string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.colorize {
		original = originalColors.Sprint(original)
		translated = translatedColors.Sprint(translated)
	}
	_, err := fmt.Fprintf(d.w, "%s\n%s\n\n", original, translated)
	return err
}

func (d *TerminalDisplay) SetLoading(loading bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.loading == loading {
		return
	}
	d.loading = loading
	if !loading {
		return
	}
	msg := "translating transcript..."
	if d.colorize {
		msg = loadingColors.Sprint(msg)
	}
	_, _ = fmt.Fprintln(d.w, msg)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Shown is one pair written to a Recorder.
type Shown struct {
	Original   string `json:"original"`
	Translated string `json:"translated"`
}

// Recorder is a Display that keeps everything shown, for tests and for
// relaying overlay updates elsewhere through OnShow.
type Recorder struct {
	mu      sync.Mutex
	shown   []Shown
	loading bool
	OnShow  func(Shown)
}

func (r *Recorder) Show(original, translated string) error {
	r.mu.Lock()
	s := Shown{Original: original, Translated: translated}
	r.shown = append(r.shown, s)
	hook := r.OnShow
	r.mu.Unlock()

	if hook != nil {
		hook(s)
	}
	return nil
}

func (r *Recorder) SetLoading(loading bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading = loading
}

func (r *Recorder) Shown() []Shown {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Shown(nil), r.shown...)
}

func (r *Recorder) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loading
}

// Last returns the most recent pair, if any.
func (r *Recorder) Last() (Shown, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.shown) == 0 {
		return Shown{}, false
	}
	return r.shown[len(r.shown)-1], true
}
