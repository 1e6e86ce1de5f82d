// CLAUDE:SUMMARY Server-sent event writer: one "data: <json>" frame per event, flushed immediately.
package scan

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Stream is an Emitter writing server-sent events to an HTTP response.
// The first failed write marks the stream broken; later Emit calls return
// the same error without touching the connection.
type Stream struct {
	w   http.ResponseWriter
	rc  *http.ResponseController
	err error
}

// OpenStream sends the event-stream headers and a 200 status. The server
// write deadline is lifted for this response: a scan outlives any sane
// request timeout.
func OpenStream(w http.ResponseWriter) *Stream {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	w.WriteHeader(http.StatusOK)
	s := &Stream{w: w, rc: rc}
	s.flush()
	return s
}

// Emit writes e as one "data:" frame and flushes it.
func (s *Stream) Emit(e Event) error {
	if s.err != nil {
		return s.err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("scan: encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		s.err = err
		return err
	}
	s.flush()
	return s.err
}

// Err returns the error that broke the stream, if any.
func (s *Stream) Err() error { return s.err }

func (s *Stream) flush() {
	if err := s.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		s.err = err
	}
}
