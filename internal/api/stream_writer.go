package api

import (
	"fmt"
	"io"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
)

// SSEStreamWriter emits answer.delta events per word followed by one
// answer.completed or answer.failed event.
type SSEStreamWriter struct {
	w       io.Writer
	flusher func()
	seq     int
	begun   bool
}

func NewSSEStreamWriter(c *echo.Context) (*SSEStreamWriter, error) {
	res := c.Response()
	flusher, ok := res.(interface{ Flush() })
	if !ok {
		return nil, fmt.Errorf("streaming unsupported")
	}
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	return &SSEStreamWriter{
		w:       res,
		flusher: flusher.Flush,
		seq:     1,
	}, nil
}

// Started reports whether any event has been written, after which the
// status code can no longer change.
func (s *SSEStreamWriter) Started() bool {
	return s.begun
}

func (s *SSEStreamWriter) Delta(word string) error {
	return s.send(streamEvent{Type: "answer.delta", Delta: word})
}

func (s *SSEStreamWriter) Complete(resp AnswerResponse) error {
	return s.send(streamEvent{Type: "answer.completed", Answer: &resp})
}

func (s *SSEStreamWriter) Fail(e ResponseError) error {
	return s.send(streamEvent{Type: "answer.failed", Error: &e})
}

func (s *SSEStreamWriter) send(ev streamEvent) error {
	s.begun = true
	ev.SequenceNumber = s.seq
	s.seq++
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Type, b); err != nil {
		return err
	}
	s.flusher()
	return nil
}
