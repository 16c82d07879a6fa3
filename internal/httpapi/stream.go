package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/internal/llm"
	"github.com/marte113/Player-On-Caption/internal/translator"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

const (
	msgStart = "start"
	msgDelta = "delta"
	msgDone  = "done"
	msgError = "error"
)

// streamMessage is the websocket frame in both directions. The client sends
// one start frame; the server answers with deltas and exactly one done or
// error frame.
type streamMessage struct {
	Type     string `json:"type"`
	Provider string `json:"provider,omitempty"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

func (s *Server) acceptOptions() *websocket.AcceptOptions {
	var patterns []string
	for _, o := range s.origins {
		if o == "*" {
			return &websocket.AcceptOptions{InsecureSkipVerify: true}
		}
		if u, err := url.Parse(o); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		} else {
			patterns = append(patterns, o)
		}
	}
	return &websocket.AcceptOptions{OriginPatterns: patterns}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, s.acceptOptions())
	if err != nil {
		log.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxRequestBody)

	ctx := r.Context()
	var start streamMessage
	if err := wsjson.Read(ctx, conn, &start); err != nil {
		log.Debug("stream client left before start: %v", err)
		return
	}
	if start.Type != msgStart || strings.TrimSpace(start.Text) == "" {
		_ = writeStreamError(ctx, conn, errs.New(errs.KindValidation, "expected a start frame with text"))
		_ = conn.Close(websocket.StatusPolicyViolation, "expected start")
		return
	}
	provider := strings.ToLower(strings.TrimSpace(start.Provider))
	if provider == "" {
		provider = translator.ProviderOpenAI
	}

	// the peer closing the socket cancels the upstream request
	ctx = conn.CloseRead(ctx)

	events, err := s.translator.Stream(ctx, provider, start.Text)
	if err != nil {
		log.Warn("stream via %s failed to start: %v", provider, err)
		_ = writeStreamError(ctx, conn, err)
		_ = conn.Close(websocket.StatusNormalClosure, msgError)
		return
	}

	for ev := range events {
		var msg streamMessage
		switch ev.Kind {
		case llm.EventDelta:
			msg = streamMessage{Type: msgDelta, Text: ev.Text}
		case llm.EventDone:
			msg = streamMessage{Type: msgDone}
		case llm.EventError:
			log.Warn("stream via %s failed: %v", provider, ev.Err)
			if err := writeStreamError(ctx, conn, ev.Err); err != nil {
				return
			}
			continue
		}
		if err := wsjson.Write(ctx, conn, msg); err != nil {
			log.Debug("stream client went away: %v", err)
			return
		}
	}
	if ctx.Err() != nil {
		return
	}
	_ = conn.Close(websocket.StatusNormalClosure, msgDone)
}

func writeStreamError(ctx context.Context, conn *websocket.Conn, err error) error {
	return wsjson.Write(ctx, conn, streamMessage{
		Type:  msgError,
		Error: err.Error(),
		Kind:  errs.KindOf(err).String(),
	})
}
