package singer

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
)

// Metadata keys used in catalog entries.
const (
	MetaSelected           = "selected"
	MetaReplicationMethod  = "replication-method"
	MetaReplicationKey     = "replication-key"
	MetaTableKeyProperties = "table-key-properties"
	MetaInclusion          = "inclusion"
)

// Replication methods.
const (
	ReplicationFullTable   = "FULL_TABLE"
	ReplicationIncremental = "INCREMENTAL"
	ReplicationLogBased    = "LOG_BASED"
)

// MetadataEntry attaches metadata to a breadcrumb within a stream. An
// empty breadcrumb addresses the stream itself; ["properties", <name>]
// addresses a single property.
type MetadataEntry struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

// CatalogEntry describes one stream in a catalog.
type CatalogEntry struct {
	TapStreamID   string          `json:"tap_stream_id"`
	Stream        string          `json:"stream"`
	Schema        *Schema         `json:"schema"`
	KeyProperties []string        `json:"key_properties,omitempty"`
	Metadata      []MetadataEntry `json:"metadata,omitempty"`
}

// StreamMetadata returns the stream-level metadata map, creating the entry
// when absent.
func (e *CatalogEntry) StreamMetadata() map[string]any {
	for i := range e.Metadata {
		if len(e.Metadata[i].Breadcrumb) == 0 {
			if e.Metadata[i].Metadata == nil {
				e.Metadata[i].Metadata = map[string]any{}
			}
			return e.Metadata[i].Metadata
		}
	}
	m := map[string]any{}
	e.Metadata = append(e.Metadata, MetadataEntry{Breadcrumb: []string{}, Metadata: m})
	return m
}

// Selected reports whether the stream is selected for sync. Streams with
// no selection metadata default to selected.
func (e *CatalogEntry) Selected() bool {
	v, ok := e.StreamMetadata()[MetaSelected]
	if !ok {
		return true
	}
	b, ok := v.(bool)
	return !ok || b
}

// ReplicationMethod returns the forced replication method, or "".
func (e *CatalogEntry) ReplicationMethod() string {
	s, _ := e.StreamMetadata()[MetaReplicationMethod].(string)
	return s
}

// ReplicationKey returns the configured replication key, or "".
func (e *CatalogEntry) ReplicationKey() string {
	s, _ := e.StreamMetadata()[MetaReplicationKey].(string)
	return s
}

// TableKeyProperties returns key properties configured via metadata,
// falling back to the entry's key_properties field.
func (e *CatalogEntry) TableKeyProperties() []string {
	if v, ok := e.StreamMetadata()[MetaTableKeyProperties]; ok {
		switch vv := v.(type) {
		case []string:
			return vv
		case []any:
			out := make([]string, 0, len(vv))
			for _, item := range vv {
				if s, ok := item.(string); ok {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return e.KeyProperties
}

// Catalog is the discoverable stream inventory of a tap.
type Catalog struct {
	Streams []*CatalogEntry `json:"streams"`
}

// GetStream returns the entry whose tap_stream_id (or stream name) matches
// name, or nil.
func (c *Catalog) GetStream(name string) *CatalogEntry {
	for _, e := range c.Streams {
		if e.TapStreamID == name || e.Stream == name {
			return e
		}
	}
	return nil
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// LoadCatalog reads and decodes a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(raw)
}
