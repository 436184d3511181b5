// Package state manipulates the tap state tree carried by STATE messages.
//
// The tree is a plain map shared across all streams of a tap:
//
//	{"bookmarks": {"<stream>": {"replication_key": ..., "partitions": [...]}}}
package state

import (
	"fmt"
	"reflect"
)

// Keys that survive an interim wipe between sync phases.
var (
	// InterimKeepKeys are preserved when a sync starts over. The
	// replication bookmark stays so a resumed run can pick up its cursor.
	InterimKeepKeys = []string{"last_pk_fetched", "max_pk_values", "version", "initial_full_table_complete", "replication_key", "replication_key_value"}
	// FinalKeepKeys are preserved before the closing STATE message. The
	// replication bookmark must survive or the next run loses its cursor.
	FinalKeepKeys = []string{"last_pk_fetched", "max_pk_values", "replication_key", "replication_key_value"}
)

// Bookmarks returns the tree's bookmarks map, creating it when absent.
func Bookmarks(tree map[string]any) map[string]any {
	if b, ok := tree["bookmarks"].(map[string]any); ok {
		return b
	}
	b := map[string]any{}
	tree["bookmarks"] = b
	return b
}

// StreamState returns the writable state map for stream, creating a blank
// entry when one does not exist.
func StreamState(tree map[string]any, stream string) map[string]any {
	b := Bookmarks(tree)
	if s, ok := b[stream].(map[string]any); ok {
		return s
	}
	s := map[string]any{}
	b[stream] = s
	return s
}

// PartitionState returns the writable state map for the partition of
// stream identified by context, creating it when absent. Contexts are
// matched by deep equality.
func PartitionState(tree map[string]any, stream string, context map[string]any) map[string]any {
	ss := StreamState(tree, stream)
	parts, _ := ss["partitions"].([]any)
	for _, p := range parts {
		pm, ok := p.(map[string]any)
		if !ok {
			continue
		}
		if reflect.DeepEqual(pm["context"], context) {
			return pm
		}
	}
	pm := map[string]any{"context": context}
	ss["partitions"] = append(parts, any(pm))
	return pm
}

// Partitions returns the partition contexts recorded for stream, or nil
// when the stream has none.
func Partitions(tree map[string]any, stream string) []map[string]any {
	ss := StreamState(tree, stream)
	parts, ok := ss["partitions"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(parts))
	for _, p := range parts {
		if pm, ok := p.(map[string]any); ok {
			if ctx, ok := pm["context"].(map[string]any); ok {
				out = append(out, ctx)
			}
		}
	}
	return out
}

// WipeKeys removes all keys from the stream's state except those listed.
// Partition entries are wiped the same way, keeping their context.
func WipeKeys(tree map[string]any, stream string, except []string) {
	ss := StreamState(tree, stream)
	wipeMap(ss, append(except, "partitions"))
	parts, _ := ss["partitions"].([]any)
	for _, p := range parts {
		if pm, ok := p.(map[string]any); ok {
			wipeMap(pm, append(except, "context"))
		}
	}
}

func wipeMap(m map[string]any, keep []string) {
	keepSet := map[string]bool{}
	for _, k := range keep {
		keepSet[k] = true
	}
	for k := range m {
		if !keepSet[k] {
			delete(m, k)
		}
	}
}

// Bookmark returns the value stored under key for stream, or def.
func Bookmark(tree map[string]any, stream, key string, def any) any {
	ss := StreamState(tree, stream)
	if v, ok := ss[key]; ok {
		return v
	}
	return def
}

// SetBookmark stores value under key for stream.
func SetBookmark(tree map[string]any, stream, key string, value any) {
	StreamState(tree, stream)[key] = value
}

// Advance records the replication-key value of the latest record into the
// given stream or partition state map. The record must contain the
// replication key.
func Advance(target map[string]any, stream, replicationKey string, record map[string]any) error {
	if replicationKey == "" {
		return fmt.Errorf("stream %q has no replication key to advance", stream)
	}
	v, ok := record[replicationKey]
	if !ok {
		return fmt.Errorf("record for stream %q missing replication key %q", stream, replicationKey)
	}
	target["replication_key"] = replicationKey
	target["replication_key_value"] = v
	return nil
}
