package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// WriterSink serializes each capsule as a single line of JSON and writes it
// to an underlying io.Writer. It is a reference implementation for tests
// and the CLI, not a production log transport — concrete sink
// implementations (file, stream, network) are an external collaborator per
// spec.md §1.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink returns a WriterSink writing newline-delimited JSON to w.
// Writes are serialized with an internal mutex so concurrent RecordEvent
// callers sharing one sink don't interleave partial lines.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Accept writes capsule to the underlying writer as one line of JSON.
func (s *WriterSink) Accept(capsule map[string]any) error {
	raw, err := json.Marshal(capsule)
	if err != nil {
		return fmt.Errorf("encoding capsule: %w", err)
	}
	raw = append(raw, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(raw)
	return err
}
