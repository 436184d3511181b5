// Package sqlitex backs the SQLite reference plugins: table discovery for
// the tap side and schema-driven table management for the target side.
package sqlitex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	// _ import for sqlite driver registration
	_ "modernc.org/sqlite"

	"github.com/tapkit/tapkit/singer"
)

// Open opens the SQLite database at path, creating the parent directory
// when needed.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	return db, nil
}

// Column describes one column of a discovered table.
type Column struct {
	Name       string
	DeclType   string
	NotNull    bool
	PrimaryKey bool
}

// Table describes one discovered user table.
type Table struct {
	Name    string
	Columns []Column
}

// Tables lists user tables with their columns. Internal sqlite_* tables
// are skipped.
func Tables(db *sql.DB) ([]Table, error) {
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		cols, err := tableColumns(db, name)
		if err != nil {
			return nil, err
		}
		tables = append(tables, Table{Name: name, Columns: cols})
	}
	return tables, nil
}

func tableColumns(db *sql.DB, table string) ([]Column, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("introspect table %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var cols []Column
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols = append(cols, Column{Name: name, DeclType: ctype, NotNull: notnull != 0, PrimaryKey: pk != 0})
	}
	return cols, rows.Err()
}

// Schema builds the stream schema for the table.
func (t Table) Schema() *singer.Schema {
	props := make(map[string]*singer.Schema, len(t.Columns))
	var required []string
	for _, c := range t.Columns {
		typ, format := jsonType(c.DeclType)
		ts := singer.TypeSet{typ}
		if !c.NotNull {
			ts = singer.TypeSet{"null", typ}
		} else {
			required = append(required, c.Name)
		}
		props[c.Name] = &singer.Schema{Type: ts, Format: format}
	}
	return &singer.Schema{Type: singer.TypeSet{"object"}, Properties: props, Required: required}
}

// KeyProperties returns the primary-key column names.
func (t Table) KeyProperties() []string {
	var keys []string
	for _, c := range t.Columns {
		if c.PrimaryKey {
			keys = append(keys, c.Name)
		}
	}
	return keys
}

// jsonType maps a SQLite declared type to a JSON-schema type and optional
// format, following SQLite's affinity rules. Exact numerics are carried as
// strings so precision survives the trip through JSON.
func jsonType(declType string) (typ, format string) {
	d := strings.ToUpper(declType)
	switch {
	case strings.Contains(d, "INT"):
		return "integer", ""
	case strings.Contains(d, "DEC"), strings.Contains(d, "NUMERIC"):
		return "string", "singer.decimal"
	case strings.Contains(d, "REAL"), strings.Contains(d, "FLOA"), strings.Contains(d, "DOUB"):
		return "number", ""
	case strings.Contains(d, "DATETIME"), strings.Contains(d, "TIMESTAMP"):
		return "string", "date-time"
	case strings.Contains(d, "DATE"):
		return "string", "date"
	case strings.Contains(d, "BOOL"):
		return "boolean", ""
	default:
		// TEXT, CHAR, CLOB, BLOB, and untyped columns
		return "string", ""
	}
}

// quoteIdent quotes a SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
