package sqlitex

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/tapkit/tapkit/singer"
	"github.com/tapkit/tapkit/tap"
)

// TableStream serves one discovered table as a tap stream.
type TableStream struct {
	db             *sql.DB
	table          Table
	replicationKey string
}

// NewTableStream returns a stream over table. replicationKey may be empty
// for FULL_TABLE replication.
func NewTableStream(db *sql.DB, table Table, replicationKey string) *TableStream {
	return &TableStream{db: db, table: table, replicationKey: replicationKey}
}

// Name implements tap.Stream.
func (s *TableStream) Name() string { return s.table.Name }

// Schema implements tap.Stream.
func (s *TableStream) Schema() *singer.Schema { return s.table.Schema() }

// KeyProperties implements tap.Stream.
func (s *TableStream) KeyProperties() []string { return s.table.KeyProperties() }

// ReplicationKey implements tap.Stream.
func (s *TableStream) ReplicationKey() string { return s.replicationKey }

// Records implements tap.Stream. With a replication key, rows already
// covered by the bookmark are skipped and output is ordered by the key so
// the bookmark stays monotonic.
func (s *TableStream) Records(ctx context.Context, bookmark map[string]any) (tap.RecordIter, error) {
	cols := make([]string, len(s.table.Columns))
	for i, c := range s.table.Columns {
		cols[i] = quoteIdent(c.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(cols, ", "), quoteIdent(s.table.Name))

	var args []any
	if s.replicationKey != "" {
		if v, ok := bookmark["replication_key_value"]; ok && v != nil {
			query += fmt.Sprintf(" WHERE %s > ?", quoteIdent(s.replicationKey))
			args = append(args, v)
		}
		query += fmt.Sprintf(" ORDER BY %s", quoteIdent(s.replicationKey))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", s.table.Name, err)
	}
	return &rowIter{rows: rows, table: s.table}, nil
}

type rowIter struct {
	rows  *sql.Rows
	table Table
}

func (it *rowIter) Next(ctx context.Context) (map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return nil, fmt.Errorf("scan table %s: %w", it.table.Name, err)
		}
		return nil, io.EOF
	}
	values := make([]any, len(it.table.Columns))
	ptrs := make([]any, len(values))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := it.rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan table %s: %w", it.table.Name, err)
	}
	row := make(map[string]any, len(values))
	for i, c := range it.table.Columns {
		row[c.Name] = convertValue(c, values[i])
	}
	return row, nil
}

func (it *rowIter) Close() error { return it.rows.Close() }

// convertValue normalizes driver values. Exact numerics become
// decimal.Decimal so downstream conformance renders them as exact strings.
func convertValue(c Column, v any) any {
	d := strings.ToUpper(c.DeclType)
	exact := strings.Contains(d, "DEC") || strings.Contains(d, "NUMERIC")
	switch vv := v.(type) {
	case []byte:
		if exact {
			if dec, err := decimal.NewFromString(string(vv)); err == nil {
				return dec
			}
		}
		return vv
	case string:
		if exact {
			if dec, err := decimal.NewFromString(vv); err == nil {
				return dec
			}
		}
		return vv
	case float64:
		if exact {
			return decimal.NewFromFloat(vv)
		}
		return vv
	case int64:
		if exact {
			return decimal.NewFromInt(vv)
		}
		if strings.Contains(d, "BOOL") {
			return vv != 0
		}
		return vv
	default:
		return v
	}
}
