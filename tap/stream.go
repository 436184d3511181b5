// Package tap is the framework for Singer taps: plugins that extract
// records from a source and emit them as a message stream on stdout.
package tap

import (
	"context"
	"io"

	"github.com/tapkit/tapkit/singer"
)

// RecordIter yields rows from a source. Next returns io.EOF when the
// iterator is exhausted.
type RecordIter interface {
	Next(ctx context.Context) (map[string]any, error)
	Close() error
}

// Stream is one extractable stream of a tap. Implementations hold their
// own source handles (database connections, API clients).
type Stream interface {
	// Name is the stream name, also used as the tap_stream_id.
	Name() string
	// Schema declares the record shape.
	Schema() *singer.Schema
	// KeyProperties lists primary-key property names, or nil.
	KeyProperties() []string
	// ReplicationKey names the incremental cursor property. Empty means
	// FULL_TABLE replication.
	ReplicationKey() string
	// Records opens an iterator over the source. bookmark is the writable
	// stream (or partition) state; implementations read
	// "replication_key_value" from it to resume.
	Records(ctx context.Context, bookmark map[string]any) (RecordIter, error)
}

// Partitioned is implemented by streams that sync per-partition, e.g. one
// API call per account. Each context identifies a partition and is stored
// in state alongside its bookmark.
type Partitioned interface {
	Partitions() []map[string]any
}

// PostProcessor is implemented by streams that transform rows after
// extraction. Returning a nil row drops the record.
type PostProcessor interface {
	PostProcess(row, bookmark map[string]any) (map[string]any, error)
}

// sliceIter serves a fixed set of rows, mostly for tests and fixtures.
type sliceIter struct {
	rows []map[string]any
	pos  int
}

// IterRows returns a RecordIter over rows.
func IterRows(rows ...map[string]any) RecordIter {
	return &sliceIter{rows: rows}
}

func (it *sliceIter) Next(context.Context) (map[string]any, error) {
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	row := it.rows[it.pos]
	it.pos++
	return row, nil
}

func (it *sliceIter) Close() error { return nil }
