package llm

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/marte113/Player-On-Caption/internal/errs"
	"github.com/marte113/Player-On-Caption/pkg/log"
)

const maxFrameBytes = 1 << 20

// Stream starts a streamed Responses request and returns its decoded events.
// The channel carries zero or more deltas followed by exactly one Done or Error
// and is then closed. Cancelling ctx aborts the request and closes the channel
// without a terminal event. A non-2xx status is reported here as an upstream
// error and no channel is returned.
func (c *Client) Stream(ctx context.Context, instructions, input string) (<-chan StreamEvent, error) {
	request := ResponsesRequest{
		Model:           c.config.Model,
		Input:           input,
		Instructions:    instructions,
		Stream:          true,
		MaxOutputTokens: PickMaxOutput(instructions, input),
		Text:            &TextOptions{Verbosity: "medium"},
		Reasoning:       &ReasoningOpts{Effort: "minimal"},
	}
	log.Info("OpenAI stream request: model=%s maxOut=%d inputLen=%d",
		request.Model, request.MaxOutputTokens, len(input))

	resp, err := c.do(ctx, c.streamClient, http.MethodPost, "/responses", request)
	if err != nil {
		return nil, fmt.Errorf("stream request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		log.Error("OpenAI bad response: %d %s", resp.StatusCode, truncate(string(raw), 200))
		return nil, errs.Upstream(provider, resp.StatusCode, string(raw))
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		defer resp.Body.Close()
		readEvents(ctx, resp.Body, events)
	}()
	return events, nil
}

// readEvents decodes SSE frames from r until a terminal event, EOF, or ctx
// cancellation.
func readEvents(ctx context.Context, r io.Reader, out chan<- StreamEvent) {
	send := func(ev StreamEvent) bool {
		if ctx.Err() != nil {
			return false
		}
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)

	var data []string
	deltas := 0
	// dispatch handles one complete frame and reports whether reading should stop.
	dispatch := func() bool {
		if len(data) == 0 {
			return false
		}
		payload := strings.Join(data, "\n")
		data = data[:0]

		ev, ok := decodeFrame(payload)
		if !ok {
			return false
		}
		if ev.Kind == EventDelta {
			deltas++
		} else {
			log.Debug("OpenAI stream %s after %d deltas", ev.Kind, deltas)
		}
		if !send(ev) {
			return true
		}
		return ev.Kind != EventDelta
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			if dispatch() {
				return
			}
			continue
		}
		if value, found := strings.CutPrefix(line, "data:"); found {
			data = append(data, strings.TrimSpace(value))
		}
	}
	if dispatch() {
		return
	}

	if ctx.Err() != nil {
		return
	}
	if err := scanner.Err(); err != nil {
		send(StreamEvent{Kind: EventError, Err: errs.Streaming(err)})
		return
	}
	send(StreamEvent{Kind: EventDone})
}

// decodeFrame maps one data payload to an event. Frames we do not act on and
// malformed JSON report ok=false.
func decodeFrame(payload string) (StreamEvent, bool) {
	if payload == "" || payload == "[DONE]" {
		return StreamEvent{Kind: EventDone}, true
	}

	var evt sseEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		log.Warn("OpenAI stream: skipping malformed frame: %v", err)
		return StreamEvent{}, false
	}

	switch evt.Type {
	case "response.output_text.delta":
		return StreamEvent{Kind: EventDelta, Text: evt.Delta}, true
	case "response.completed":
		return StreamEvent{Kind: EventDone}, true
	case "response.error", "response.failed", "error":
		return StreamEvent{Kind: EventError, Err: errs.Streaming(streamFailure(evt))}, true
	default:
		return StreamEvent{}, false
	}
}

func streamFailure(evt sseEvent) error {
	switch {
	case evt.Error != nil && evt.Error.Message != "":
		return evt.Error
	case evt.Message != "":
		return errors.New(evt.Message)
	default:
		return errors.New("streaming error")
	}
}
