package tap_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tapkit/tapkit/plugintest"
	"github.com/tapkit/tapkit/singer"
	"github.com/tapkit/tapkit/tap"
)

// memStream is a fixture stream over in-memory rows.
type memStream struct {
	name           string
	schema         *singer.Schema
	keyProps       []string
	replicationKey string
	rows           []map[string]any
	partitions     []map[string]any
	recordsErr     error
}

func (s *memStream) Name() string                 { return s.name }
func (s *memStream) Schema() *singer.Schema       { return s.schema }
func (s *memStream) KeyProperties() []string      { return s.keyProps }
func (s *memStream) ReplicationKey() string       { return s.replicationKey }
func (s *memStream) Partitions() []map[string]any { return s.partitions }

func (s *memStream) Records(context.Context, map[string]any) (tap.RecordIter, error) {
	if s.recordsErr != nil {
		return nil, s.recordsErr
	}
	return tap.IterRows(s.rows...), nil
}

func usersSchema() *singer.Schema {
	return &singer.Schema{
		Type: singer.TypeSet{"object"},
		Properties: map[string]*singer.Schema{
			"id":         {Type: singer.TypeSet{"integer"}},
			"updated_at": {Type: singer.TypeSet{"string"}, Format: "date-time"},
		},
	}
}

func TestSyncEmitsSchemaRecordsAndFinalState(t *testing.T) {
	tp := tap.New("tap-test")
	tp.AddStream(&memStream{
		name:     "users",
		schema:   usersSchema(),
		keyProps: []string{"id"},
		rows: []map[string]any{
			{"id": int64(1), "updated_at": "2024-01-01T00:00:00Z"},
			{"id": int64(2), "updated_at": "2024-01-02T00:00:00Z"},
		},
	})

	res, err := plugintest.SyncTap(context.Background(), tp)
	require.NoError(t, err)

	require.Len(t, res.SchemaMessages, 1)
	require.Equal(t, "users", res.SchemaMessages[0]["stream"])
	require.Len(t, res.Records["users"], 2)
	require.NotEmpty(t, res.StateMessages, "final STATE must always be emitted")

	// schema precedes records, state comes last
	require.Equal(t, singer.TypeSchema, res.Raw[0]["type"])
	require.Equal(t, singer.TypeState, res.Raw[len(res.Raw)-1]["type"])
}

func TestSyncAdvancesIncrementalBookmark(t *testing.T) {
	tp := tap.New("tap-test")
	tp.AddStream(&memStream{
		name:           "orders",
		schema:         usersSchema(),
		replicationKey: "updated_at",
		rows: []map[string]any{
			{"id": int64(1), "updated_at": "2024-01-01T00:00:00Z"},
			{"id": int64(2), "updated_at": "2024-03-01T00:00:00Z"},
		},
	})

	res, err := plugintest.SyncTap(context.Background(), tp)
	require.NoError(t, err)

	// bookmark_properties advertises the replication key
	require.Equal(t, []any{"updated_at"}, res.SchemaMessages[0]["bookmark_properties"])

	last := res.StateMessages[len(res.StateMessages)-1]
	value := last["value"].(map[string]any)
	bookmarks := value["bookmarks"].(map[string]any)
	orders := bookmarks["orders"].(map[string]any)
	require.Equal(t, "updated_at", orders["replication_key"])
	require.Equal(t, "2024-03-01T00:00:00Z", orders["replication_key_value"])
}

func TestSyncInterimStateCadence(t *testing.T) {
	rows := make([]map[string]any, 25)
	for i := range rows {
		rows[i] = map[string]any{"id": int64(i)}
	}
	tp := tap.New("tap-test")
	tp.StateInterval = 10
	tp.AddStream(&memStream{name: "users", schema: usersSchema(), rows: rows})

	res, err := plugintest.SyncTap(context.Background(), tp)
	require.NoError(t, err)
	require.Len(t, res.Records["users"], 25)
	// interim states after records 10 and 20, plus the final state
	require.Len(t, res.StateMessages, 3)

	// the first interim state must not precede the interval
	var recordsSeen int
	for _, m := range res.Raw {
		switch m["type"] {
		case singer.TypeRecord:
			recordsSeen++
		case singer.TypeState:
			if recordsSeen > 0 && recordsSeen < 25 {
				require.Zero(t, recordsSeen%10, "interim state after %d records", recordsSeen)
			}
		}
	}
}

// filterStream post-processes rows, dropping those its keep func rejects.
type filterStream struct {
	memStream
	keep func(row map[string]any) bool
}

func (s *filterStream) PostProcess(row, _ map[string]any) (map[string]any, error) {
	if !s.keep(row) {
		return nil, nil
	}
	return row, nil
}

func TestSyncPostProcessorDropsNilRows(t *testing.T) {
	tp := tap.New("tap-test")
	tp.AddStream(&filterStream{
		memStream: memStream{
			name:   "users",
			schema: usersSchema(),
			rows: []map[string]any{
				{"id": int64(1)},
				{"id": int64(2)},
				{"id": int64(3)},
			},
		},
		keep: func(row map[string]any) bool { return row["id"] != int64(2) },
	})

	res, err := plugintest.SyncTap(context.Background(), tp)
	require.NoError(t, err)
	require.Len(t, res.Records["users"], 2)
	for _, rec := range res.Records["users"] {
		require.NotEqual(t, float64(2), rec["id"])
	}
}

func TestTestConnectionPullsOneRecordPerStream(t *testing.T) {
	tp := tap.New("tap-test")
	tp.AddStream(&memStream{name: "users", schema: usersSchema(), rows: []map[string]any{{"id": int64(1)}}})
	tp.AddStream(&memStream{name: "empty", schema: usersSchema()})
	require.NoError(t, tp.TestConnection(context.Background()))

	broken := tap.New("tap-test")
	broken.AddStream(&memStream{name: "down", schema: usersSchema(), recordsErr: fmt.Errorf("connection refused")})
	err := broken.TestConnection(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), `"down"`)
	require.Contains(t, err.Error(), "connection refused")
}

func TestSyncRejectsInvalidStreamName(t *testing.T) {
	tp := tap.New("tap-test")
	tp.AddStream(&memStream{name: "bad\x00name", schema: usersSchema()})
	_, err := plugintest.SyncTap(context.Background(), tp)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid stream name")
}

func TestSyncPartitionedStreamKeepsPerPartitionBookmarks(t *testing.T) {
	tp := tap.New("tap-test")
	tp.AddStream(&memStream{
		name:           "events",
		schema:         usersSchema(),
		replicationKey: "updated_at",
		partitions: []map[string]any{
			{"region": "us"},
			{"region": "eu"},
		},
		rows: []map[string]any{
			{"id": int64(1), "updated_at": "2024-02-01T00:00:00Z"},
		},
	})

	res, err := plugintest.SyncTap(context.Background(), tp)
	require.NoError(t, err)
	// one row served per partition
	require.Len(t, res.Records["events"], 2)

	last := res.StateMessages[len(res.StateMessages)-1]
	events := last["value"].(map[string]any)["bookmarks"].(map[string]any)["events"].(map[string]any)
	parts := events["partitions"].([]any)
	require.Len(t, parts, 2)
	for _, p := range parts {
		pm := p.(map[string]any)
		require.Contains(t, pm, "context")
		require.Equal(t, "2024-02-01T00:00:00Z", pm["replication_key_value"])
	}
}

func TestSyncSkipsDeselectedStreams(t *testing.T) {
	tp := tap.New("tap-test")
	tp.AddStream(&memStream{name: "users", schema: usersSchema(), rows: []map[string]any{{"id": int64(1)}}})
	tp.AddStream(&memStream{name: "logs", schema: usersSchema(), rows: []map[string]any{{"id": int64(2)}}})

	catalog := tp.Discover()
	catalog.GetStream("logs").StreamMetadata()[singer.MetaSelected] = false
	tp.ApplyCatalog(catalog)

	res, err := plugintest.SyncTap(context.Background(), tp)
	require.NoError(t, err)
	require.Len(t, res.Records["users"], 1)
	require.Empty(t, res.Records["logs"])
}

func TestSyncStreamErrorNamesTheStream(t *testing.T) {
	tp := tap.New("tap-test")
	tp.AddStream(&memStream{name: "broken", schema: usersSchema(), recordsErr: fmt.Errorf("connection refused")})

	_, err := plugintest.SyncTap(context.Background(), tp)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"broken"`)
	require.Contains(t, err.Error(), "connection refused")
}

func TestApplyCatalogOverridesReplication(t *testing.T) {
	s := &memStream{name: "users", schema: usersSchema()}
	tp := tap.New("tap-test")
	tp.AddStream(s)
	require.Equal(t, singer.ReplicationFullTable, tp.ReplicationMethod(s))

	catalog := tp.Discover()
	md := catalog.GetStream("users").StreamMetadata()
	md[singer.MetaReplicationMethod] = singer.ReplicationIncremental
	md[singer.MetaReplicationKey] = "updated_at"
	tp.ApplyCatalog(catalog)

	require.Equal(t, singer.ReplicationIncremental, tp.ReplicationMethod(s))
}

func TestDiscoverCatalogShape(t *testing.T) {
	tp := tap.New("tap-test")
	tp.AddStream(&memStream{
		name:           "orders",
		schema:         usersSchema(),
		keyProps:       []string{"id"},
		replicationKey: "updated_at",
	})
	c := tp.Discover()
	require.Len(t, c.Streams, 1)
	e := c.GetStream("orders")
	require.NotNil(t, e)
	require.True(t, e.Selected())
	require.Equal(t, singer.ReplicationIncremental, e.ReplicationMethod())
	require.Equal(t, "updated_at", e.ReplicationKey())
	require.Equal(t, []string{"id"}, e.KeyProperties)
}
