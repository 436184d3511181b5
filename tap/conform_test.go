package tap

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tapkit/tapkit/singer"
)

func testSchema() *singer.Schema {
	return &singer.Schema{
		Type: singer.TypeSet{"object"},
		Properties: map[string]*singer.Schema{
			"id":         {Type: singer.TypeSet{"integer"}},
			"name":       {Type: singer.TypeSet{"null", "string"}},
			"active":     {Type: singer.TypeSet{"null", "boolean"}},
			"created_at": {Type: singer.TypeSet{"string"}, Format: "date-time"},
			"payload":    {Type: singer.TypeSet{"string"}},
			"amount":     {Type: singer.TypeSet{"string"}},
		},
	}
}

func TestConformRecordDropsUnmappedProperties(t *testing.T) {
	var warned []string
	rec := ConformRecord(testSchema(), map[string]any{
		"id":      int64(1),
		"unknown": "x",
	}, func(p string) { warned = append(warned, p) })

	if _, ok := rec["unknown"]; ok {
		t.Fatalf("unmapped property survived: %v", rec)
	}
	if len(warned) != 1 || warned[0] != "unknown" {
		t.Fatalf("warn calls = %v", warned)
	}
	if rec["id"] != int64(1) {
		t.Fatalf("id = %v", rec["id"])
	}
}

func TestConformRecordTimestamps(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	rec := ConformRecord(testSchema(), map[string]any{
		"created_at": time.Date(2024, 5, 1, 12, 0, 0, 0, loc),
	}, nil)
	if rec["created_at"] != "2024-05-01T10:00:00Z" {
		t.Fatalf("created_at = %v", rec["created_at"])
	}
}

func TestConformRecordBytes(t *testing.T) {
	rec := ConformRecord(testSchema(), map[string]any{
		"payload": []byte{0xde, 0xad},
		"active":  []byte{0x00},
	}, nil)
	if rec["payload"] != "dead" {
		t.Fatalf("payload = %v", rec["payload"])
	}
	if rec["active"] != false {
		t.Fatalf("zero byte should conform to false, got %v", rec["active"])
	}

	rec = ConformRecord(testSchema(), map[string]any{"active": []byte{0x01}}, nil)
	if rec["active"] != true {
		t.Fatalf("non-zero byte should conform to true, got %v", rec["active"])
	}
}

func TestConformRecordBooleanCoercion(t *testing.T) {
	cases := []struct {
		in   any
		want any
	}{
		{nil, nil},
		{0, false},
		{int64(0), false},
		{1, true},
		{float64(2), true},
		{true, true},
	}
	for _, c := range cases {
		rec := ConformRecord(testSchema(), map[string]any{"active": c.in}, nil)
		if rec["active"] != c.want {
			t.Fatalf("active(%v) = %v, want %v", c.in, rec["active"], c.want)
		}
	}
}

func TestConformRecordDecimal(t *testing.T) {
	d := decimal.RequireFromString("1234.56")
	rec := ConformRecord(testSchema(), map[string]any{"amount": d}, nil)
	if rec["amount"] != "1234.56" {
		t.Fatalf("amount = %v", rec["amount"])
	}
}
