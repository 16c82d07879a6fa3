package session

import (
	"fmt"
	"io"
	"sync"

	"github.com/marte113/Player-On-Caption/internal/errs"
)

// Notifier surfaces a failure to the user.
type Notifier interface {
	Notify(err error)
}

// WriterNotifier writes one line per failure, with advice for its kind.
type WriterNotifier struct {
	mu      sync.Mutex
	w       io.Writer
	handler errs.Handler
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w, handler: errs.NewDefaultHandler()}
}

func (n *WriterNotifier) Notify(err error) {
	if err == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, _ = fmt.Fprintf(n.w, "error: %s (%v)\n", n.handler.Handle(err), err)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(err error)

func (f NotifierFunc) Notify(err error) { f(err) }
