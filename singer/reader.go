package singer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"
)

// maxLineBytes bounds a single message line. Wide records from database
// taps can run to megabytes.
const maxLineBytes = 64 * 1024 * 1024

// Reader decodes Singer messages from a line-oriented stream.
type Reader struct {
	s    *bufio.Scanner
	line int
}

// NewReader returns a Reader over r (os.Stdin for a target).
func NewReader(r io.Reader) *Reader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &Reader{s: s}
}

// Next returns the next message. It skips blank lines and returns io.EOF
// once the stream is exhausted.
func (r *Reader) Next() (Message, error) {
	for r.s.Scan() {
		r.line++
		raw := strings.TrimSpace(r.s.Text())
		if raw == "" {
			continue
		}
		m, err := ParseMessage([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", r.line, err)
		}
		return m, nil
	}
	if err := r.s.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return nil, io.EOF
}

// ParseMessage decodes a single JSON-encoded Singer message.
func ParseMessage(raw []byte) (Message, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	switch probe.Type {
	case TypeSchema:
		var m SchemaMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse SCHEMA message: %w", err)
		}
		if m.Stream == "" {
			return nil, fmt.Errorf("SCHEMA message missing stream")
		}
		if m.Schema == nil {
			return nil, fmt.Errorf("SCHEMA message for %q missing schema", m.Stream)
		}
		return &m, nil
	case TypeRecord:
		var m RecordMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse RECORD message: %w", err)
		}
		if m.Stream == "" {
			return nil, fmt.Errorf("RECORD message missing stream")
		}
		return &m, nil
	case TypeState:
		var m StateMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse STATE message: %w", err)
		}
		return &m, nil
	case TypeActivateVersion:
		var m ActivateVersionMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse ACTIVATE_VERSION message: %w", err)
		}
		return &m, nil
	case TypeBatch:
		var m BatchMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("parse BATCH message: %w", err)
		}
		return &m, nil
	case "":
		return nil, fmt.Errorf("message missing type field")
	default:
		return nil, fmt.Errorf("unknown message type %q", probe.Type)
	}
}
