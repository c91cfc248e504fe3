// Package stream writes answers to the client as server-sent events.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Chin-mayyy/votebank/internal/models"
	"github.com/Chin-mayyy/votebank/internal/observability"
)

// Mode selects how an answer is split into frames.
type Mode string

const (
	ModeWhole Mode = "whole"
	ModeWords Mode = "words"
	ModeDelta Mode = "delta"
)

// ErrNotFlushable is returned when the ResponseWriter cannot flush.
var ErrNotFlushable = errors.New("response writer does not support flushing")

// Emitter frames payloads as `data: <json>\n\n` and flushes each one.
type Emitter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func NewEmitter(w http.ResponseWriter) (*Emitter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrNotFlushable
	}
	return &Emitter{w: w, flusher: f}, nil
}

// Start writes the event-stream headers. It is called implicitly by the
// first frame.
func (e *Emitter) Start() {
	if e.started {
		return
	}
	h := e.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	e.w.WriteHeader(http.StatusOK)
	e.flusher.Flush()
	e.started = true
}

// Started reports whether headers have gone out.
func (e *Emitter) Started() bool { return e.started }

func (e *Emitter) frame(kind string, payload any) error {
	e.Start()
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	if _, err := fmt.Fprintf(e.w, "data: %s\n\n", b); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	e.flusher.Flush()
	observability.StreamFramesTotal.WithLabelValues(kind).Inc()
	return nil
}

// Send writes one response chunk.
func (e *Emitter) Send(chunk string) error {
	return e.frame("response", models.StreamFrame{Response: chunk})
}

// SendError writes an in-band streaming error.
func (e *Emitter) SendError(msg string, debug map[string]any) error {
	return e.frame("error", models.StreamErrorFrame{
		Error:     msg,
		Type:      models.ErrStreaming,
		DebugInfo: debug,
	})
}

// Whole sends text as a single frame.
func (e *Emitter) Whole(text string) error {
	return e.Send(text)
}

// Words sends each whitespace-separated word followed by a space, pausing
// delay between frames. It stops at the next frame boundary once ctx is done.
func (e *Emitter) Words(ctx context.Context, text string, delay time.Duration) error {
	for i, word := range strings.Fields(text) {
		if i > 0 && delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return err
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.Send(word + " "); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
