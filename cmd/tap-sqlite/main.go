// Command tap-sqlite extracts every user table of a SQLite database as a
// Singer stream.
//
// Config keys:
//
//	database_path    path to the SQLite file (required)
//	replication_keys optional map of table name to incremental cursor column
package main

import (
	"fmt"

	"github.com/tapkit/tapkit/internal/sqlitex"
	"github.com/tapkit/tapkit/tap"
)

func main() {
	tap.Execute("tap-sqlite", buildStreams)
}

func buildStreams(t *tap.Tap) ([]tap.Stream, error) {
	path := t.ConfigString("database_path")
	if path == "" {
		return nil, fmt.Errorf("config key \"database_path\" is required")
	}
	db, err := sqlitex.Open(path)
	if err != nil {
		return nil, err
	}

	tables, err := sqlitex.Tables(db)
	if err != nil {
		return nil, err
	}

	replicationKeys := map[string]string{}
	if raw, ok := t.Config["replication_keys"].(map[string]any); ok {
		for table, key := range raw {
			if s, ok := key.(string); ok {
				replicationKeys[table] = s
			}
		}
	}

	streams := make([]tap.Stream, 0, len(tables))
	for _, tbl := range tables {
		streams = append(streams, sqlitex.NewTableStream(db, tbl, replicationKeys[tbl.Name]))
	}
	return streams, nil
}
