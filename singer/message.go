// Package singer implements the Singer message protocol: typed messages,
// a line-oriented writer and reader, schemas, and catalogs.
package singer

import (
	"time"
)

// Message type discriminators as they appear on the wire.
const (
	TypeSchema          = "SCHEMA"
	TypeRecord          = "RECORD"
	TypeState           = "STATE"
	TypeActivateVersion = "ACTIVATE_VERSION"
	TypeBatch           = "BATCH"
)

// Message is any Singer protocol message.
type Message interface {
	// Kind returns the wire type discriminator, e.g. "RECORD".
	Kind() string
}

// SchemaMessage announces the schema for a stream. It must precede any
// RECORD message for that stream.
type SchemaMessage struct {
	Type               string   `json:"type"`
	Stream             string   `json:"stream"`
	Schema             *Schema  `json:"schema"`
	KeyProperties      []string `json:"key_properties"`
	BookmarkProperties []string `json:"bookmark_properties,omitempty"`
}

// NewSchemaMessage builds a SCHEMA message for stream.
func NewSchemaMessage(stream string, schema *Schema, keyProperties, bookmarkProperties []string) *SchemaMessage {
	if keyProperties == nil {
		keyProperties = []string{}
	}
	return &SchemaMessage{
		Type:               TypeSchema,
		Stream:             stream,
		Schema:             schema,
		KeyProperties:      keyProperties,
		BookmarkProperties: bookmarkProperties,
	}
}

// Kind implements Message.
func (m *SchemaMessage) Kind() string { return TypeSchema }

// RecordMessage carries a single extracted record.
type RecordMessage struct {
	Type          string         `json:"type"`
	Stream        string         `json:"stream"`
	Record        map[string]any `json:"record"`
	Version       *int64         `json:"version,omitempty"`
	TimeExtracted *time.Time     `json:"time_extracted,omitempty"`
}

// NewRecordMessage builds a RECORD message stamped with extracted.
// A zero extracted time omits the field on the wire.
func NewRecordMessage(stream string, record map[string]any, extracted time.Time) *RecordMessage {
	m := &RecordMessage{Type: TypeRecord, Stream: stream, Record: record}
	if !extracted.IsZero() {
		utc := extracted.UTC()
		m.TimeExtracted = &utc
	}
	return m
}

// Kind implements Message.
func (m *RecordMessage) Kind() string { return TypeRecord }

// StateMessage carries the full tap state tree.
type StateMessage struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

// NewStateMessage builds a STATE message wrapping value.
func NewStateMessage(value map[string]any) *StateMessage {
	return &StateMessage{Type: TypeState, Value: value}
}

// Kind implements Message.
func (m *StateMessage) Kind() string { return TypeState }

// ActivateVersionMessage signals that records with an older version for the
// stream may be discarded by the target.
type ActivateVersionMessage struct {
	Type    string `json:"type"`
	Stream  string `json:"stream"`
	Version int64  `json:"version"`
}

// NewActivateVersionMessage builds an ACTIVATE_VERSION message.
func NewActivateVersionMessage(stream string, version int64) *ActivateVersionMessage {
	return &ActivateVersionMessage{Type: TypeActivateVersion, Stream: stream, Version: version}
}

// Kind implements Message.
func (m *ActivateVersionMessage) Kind() string { return TypeActivateVersion }

// BatchEncoding describes the file format of batch manifest entries.
type BatchEncoding struct {
	Format      string `json:"format"`
	Compression string `json:"compression,omitempty"`
}

// BatchMessage points the target at files of pre-encoded records instead of
// sending them inline as RECORD messages.
type BatchMessage struct {
	Type     string        `json:"type"`
	Stream   string        `json:"stream"`
	Encoding BatchEncoding `json:"encoding"`
	Manifest []string      `json:"manifest"`
}

// NewBatchMessage builds a BATCH message for stream referencing the
// manifest paths.
func NewBatchMessage(stream string, encoding BatchEncoding, manifest []string) *BatchMessage {
	return &BatchMessage{Type: TypeBatch, Stream: stream, Encoding: encoding, Manifest: manifest}
}

// Kind implements Message.
func (m *BatchMessage) Kind() string { return TypeBatch }
