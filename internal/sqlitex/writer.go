package sqlitex

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/tapkit/tapkit/internal/nameutil"
	"github.com/tapkit/tapkit/singer"
)

// Bookkeeping column recording which ACTIVATE_VERSION generation a row
// belongs to.
const versionColumn = "_sdc_table_version"

// Sink loads one stream into a SQLite table named after the stream.
type Sink struct {
	db      *sql.DB
	table   string
	schema  *singer.Schema
	columns []string // conformed, sorted property order
	props   []string // original property names matching columns
	version int64
	buf     []map[string]any
}

// NewSink ensures the destination table exists and matches the schema,
// adding missing columns when the schema evolved.
func NewSink(db *sql.DB, stream string, schema *singer.Schema, keyProperties []string) (*Sink, error) {
	s := &Sink{db: db, table: nameutil.ConformIdentifier(stream), schema: schema}

	props := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		props = append(props, name)
	}
	sort.Strings(props)
	s.props = props
	s.columns = make([]string, len(props))
	for i, p := range props {
		s.columns[i] = nameutil.ConformIdentifier(p)
	}

	if err := s.ensureTable(keyProperties); err != nil {
		return nil, err
	}
	if err := s.ensureColumns(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) ensureTable(keyProperties []string) error {
	defs := make([]string, 0, len(s.props)+1)
	for i, p := range s.props {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(s.columns[i]), sqlType(s.schema.Property(p))))
	}
	defs = append(defs, fmt.Sprintf("%s INTEGER NOT NULL DEFAULT 0", quoteIdent(versionColumn)))
	if len(keyProperties) > 0 {
		keys := make([]string, len(keyProperties))
		for i, k := range keyProperties {
			keys[i] = quoteIdent(nameutil.ConformIdentifier(k))
		}
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(keys, ", ")))
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(s.table), strings.Join(defs, ", "))
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// ensureColumns adds columns the table is missing, so evolved schemas load
// without manual migration.
func (s *Sink) ensureColumns() error {
	existing, err := tableColumns(s.db, s.table)
	if err != nil {
		return err
	}
	have := map[string]bool{}
	for _, c := range existing {
		have[c.Name] = true
	}
	for i, col := range s.columns {
		if have[col] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(s.table), quoteIdent(col), sqlType(s.schema.Property(s.props[i])))
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("add column %s.%s: %w", s.table, col, err)
		}
	}
	return nil
}

// ProcessRecord buffers a record for the open batch.
func (s *Sink) ProcessRecord(record map[string]any, _ map[string]any) error {
	s.buf = append(s.buf, record)
	return nil
}

// ProcessBatch writes the buffered records in one transaction.
func (s *Sink) ProcessBatch(_ map[string]any) error {
	if len(s.buf) == 0 {
		return nil
	}
	trx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = trx.Rollback() }()

	cols := make([]string, 0, len(s.columns)+1)
	for _, c := range s.columns {
		cols = append(cols, quoteIdent(c))
	}
	cols = append(cols, quoteIdent(versionColumn))
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt, err := trx.Prepare(fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		quoteIdent(s.table), strings.Join(cols, ", "), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", s.table, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, rec := range s.buf {
		args := make([]any, 0, len(cols))
		for _, p := range s.props {
			args = append(args, sqlValue(rec[p]))
		}
		args = append(args, s.version)
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("insert into %s: %w", s.table, err)
		}
	}
	if err := trx.Commit(); err != nil {
		return fmt.Errorf("commit batch for %s: %w", s.table, err)
	}
	s.buf = nil
	return nil
}

// ActivateVersion retires rows from generations before version. Rows
// loaded afterwards carry the new version.
func (s *Sink) ActivateVersion(version int64) error {
	if _, err := s.db.Exec(fmt.Sprintf("DELETE FROM %s WHERE %s < ?", quoteIdent(s.table), quoteIdent(versionColumn)), version); err != nil {
		return fmt.Errorf("activate version %d for %s: %w", version, s.table, err)
	}
	s.version = version
	return nil
}

// sqlType maps a property schema to a SQLite column type.
func sqlType(prop *singer.Schema) string {
	if prop == nil {
		return "TEXT"
	}
	switch {
	case prop.Type.Contains("integer"):
		return "INTEGER"
	case prop.Type.Contains("number"):
		return "REAL"
	case prop.Type.Contains("boolean"):
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// sqlValue flattens nested values to a storable form.
func sqlValue(v any) any {
	switch vv := v.(type) {
	case map[string]any, []any:
		buf, err := json.Marshal(vv)
		if err != nil {
			return fmt.Sprintf("%v", vv)
		}
		return string(buf)
	case bool:
		if vv {
			return 1
		}
		return 0
	default:
		return v
	}
}
