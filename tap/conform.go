package tap

import (
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tapkit/tapkit/singer"
)

// ConformRecord translates row values into protocol-compatible types
// according to schema. Properties not declared in the schema are dropped;
// warn is called for each dropped property name. The input row is not
// mutated.
func ConformRecord(schema *singer.Schema, row map[string]any, warn func(property string)) map[string]any {
	rec := make(map[string]any, len(row))
	for name, value := range row {
		prop := schema.Property(name)
		if prop == nil {
			if warn != nil {
				warn(name)
			}
			continue
		}
		rec[name] = conformValue(prop, value)
	}
	return rec
}

func conformValue(prop *singer.Schema, value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case time.Duration:
		// durations are carried as a timestamp offset from the epoch
		return time.Unix(0, 0).UTC().Add(v).Format(time.RFC3339)
	case []byte:
		if prop.IsBoolean() {
			// BIT-style values: a single zero byte is false
			return !allZero(v)
		}
		return hex.EncodeToString(v)
	case decimal.Decimal:
		return v.String()
	}
	if prop.IsBoolean() {
		return conformBoolean(value)
	}
	return value
}

func conformBoolean(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case bool:
		return v
	case int:
		return v != 0
	case int32:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case float32:
		return v != 0
	default:
		return value
	}
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
