package singer

import (
	"fmt"
	"io"
	"sync"

	json "github.com/goccy/go-json"
)

// Writer emits Singer messages as one compact JSON object per line.
// It is safe for concurrent use.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter returns a Writer emitting to w. In production w is os.Stdout;
// anything else a plugin prints must go to stderr.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes m and appends a newline.
func (w *Writer) Write(m Message) error {
	buf, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", m.Kind(), err)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	buf = append(buf, '\n')
	if _, err := w.w.Write(buf); err != nil {
		return fmt.Errorf("write %s message: %w", m.Kind(), err)
	}
	return nil
}
