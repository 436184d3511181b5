// Command target-sqlite loads a Singer message stream into a SQLite
// database, one table per stream.
//
// Config keys:
//
//	database_path    path to the SQLite file (required)
//	batch_size       records per transaction (default 10000)
//	validate_formats enable strict date/time format checks
package main

import (
	"fmt"

	"github.com/tapkit/tapkit/internal/sqlitex"
	"github.com/tapkit/tapkit/singer"
	"github.com/tapkit/tapkit/target"
)

func main() {
	target.Execute("target-sqlite", nil, configure)
}

func configure(t *target.Target) error {
	path := t.ConfigString("database_path")
	if path == "" {
		return fmt.Errorf("config key \"database_path\" is required")
	}
	db, err := sqlitex.Open(path)
	if err != nil {
		return err
	}

	if n, ok := t.Config["batch_size"].(float64); ok && n > 0 {
		t.MaxBatchSize = int(n)
	}
	if v, ok := t.Config["validate_formats"].(bool); ok && v {
		t.Checker.Register("date-time", target.CheckDateTime)
		t.Checker.Register("date", target.CheckDate)
		t.Checker.Register("time", target.CheckTime)
	}

	t.NewSink = func(stream string, schema *singer.Schema, keyProperties []string) (target.Sink, error) {
		return sqlitex.NewSink(db, stream, schema, keyProperties)
	}
	return nil
}
