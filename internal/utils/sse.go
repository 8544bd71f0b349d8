package utils

import (
	"encoding/json"
	"fmt"
	"net/http"

	"snnap-backend/internal/model"
)

// SSEWriter emits the relay's outbound wire format: every logical chunk is
// one `data: {"choices":[{"delta":{"content":...}}]}` line, the stream ends
// with `data: [DONE]`.
type SSEWriter struct {
	w http.ResponseWriter
}

func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &SSEWriter{w: w}
}

// WriteDelta wraps content into the OpenAI delta shape and flushes it as one
// SSE frame. A write error means the client went away.
func (s *SSEWriter) WriteDelta(content string) error {
	data, err := json.Marshal(model.NewStreamFrame(content))
	if err != nil {
		return err
	}
	return s.writeData(string(data))
}

// Done terminates the stream. Exactly one is written per response.
func (s *SSEWriter) Done() error {
	return s.writeData("[DONE]")
}

func (s *SSEWriter) writeData(data string) error {
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}

	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}

	return nil
}
