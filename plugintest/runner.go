// Package plugintest runs taps and targets in-process and captures their
// sync output for assertions.
package plugintest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tapkit/tapkit/singer"
	"github.com/tapkit/tapkit/tap"
	"github.com/tapkit/tapkit/target"
)

// TapResult holds the classified output of a tap sync.
type TapResult struct {
	Raw            []map[string]any
	SchemaMessages []map[string]any
	RecordMessages []map[string]any
	StateMessages  []map[string]any
	// Records groups raw record payloads by stream name.
	Records map[string][]map[string]any
}

// SyncTap runs a full sync of t and returns its classified output.
func SyncTap(ctx context.Context, t *tap.Tap) (*TapResult, error) {
	var buf bytes.Buffer
	t.SetOutput(&buf)
	if err := t.SyncAll(ctx); err != nil {
		return nil, err
	}
	return classify(buf.String())
}

// TargetResult holds the output of a target run.
type TargetResult struct {
	StateMessages []map[string]any
	Stdout        string
}

// RunTarget feeds input to tg and returns the state messages it emitted.
// finalize controls whether open batches are drained at end of input.
func RunTarget(ctx context.Context, tg *target.Target, input io.Reader, finalize bool) (*TargetResult, error) {
	var buf bytes.Buffer
	tg.SetOutput(&buf)
	if err := tg.ProcessLines(ctx, input); err != nil {
		return nil, err
	}
	if finalize {
		if err := tg.Drain(); err != nil {
			return nil, err
		}
	}
	res, err := classify(buf.String())
	if err != nil {
		return nil, err
	}
	return &TargetResult{StateMessages: res.StateMessages, Stdout: buf.String()}, nil
}

// classify splits raw sync output into per-type message lists.
func classify(out string) (*TapResult, error) {
	res := &TapResult{Records: map[string][]map[string]any{}}
	for i, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			return nil, fmt.Errorf("output line %d: %w", i+1, err)
		}
		res.Raw = append(res.Raw, m)
		switch m["type"] {
		case singer.TypeSchema:
			res.SchemaMessages = append(res.SchemaMessages, m)
		case singer.TypeRecord:
			res.RecordMessages = append(res.RecordMessages, m)
			stream, _ := m["stream"].(string)
			if rec, ok := m["record"].(map[string]any); ok {
				res.Records[stream] = append(res.Records[stream], rec)
			}
		case singer.TypeState:
			res.StateMessages = append(res.StateMessages, m)
		}
	}
	return res, nil
}
