package store

import (
	"errors"
	"strings"
	"testing"

	"kadaipos/engine/internal/domain"
)

func TestBillItemsRoundTrip(t *testing.T) {
	items := []domain.BillItem{
		{ProductID: "p1", NameEN: "Ponni Rice 1kg", NameTA: "பொன்னி அரிசி", Price: 60, TaxPercentage: 5, Qty: 2},
		{ProductID: "p2", NameEN: "Tea Powder", Price: 140, TaxPercentage: 18, TaxInclusive: true, Unit: "pack", Qty: 1},
	}
	raw, err := EncodeBillItems(items)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(raw), `"version":2`) {
		t.Fatalf("payload is not a tagged envelope: %s", raw)
	}

	decoded, err := DecodeBillItems(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("got %d items, want 2", len(decoded))
	}
	if decoded[0] != items[0] || decoded[1] != items[1] {
		t.Fatalf("round trip changed items: %+v", decoded)
	}
}

// Rows written before the envelope existed are a bare JSON array without
// tax fields. They must decode with tax defaults, not fail.
func TestDecodeLegacyBillItems(t *testing.T) {
	raw := []byte(`[{"product_id":"p1","name":"Sugar 1kg","price":45,"qty":3}]`)
	items, err := DecodeBillItems(raw)
	if err != nil {
		t.Fatalf("decode legacy: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	got := items[0]
	if got.ProductID != "p1" || got.NameEN != "Sugar 1kg" || got.Price != 45 || got.Qty != 3 {
		t.Fatalf("legacy fields not mapped: %+v", got)
	}
	if got.TaxPercentage != 0 || got.TaxInclusive {
		t.Fatalf("legacy items must default to zero tax: %+v", got)
	}
}

func TestDecodeBillItemsFailures(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not json", "{{{"},
		{"unknown version", `{"version":9,"items":[]}`},
		{"missing product id", `{"version":2,"items":[{"product_id":"","qty":1}]}`},
		{"zero quantity", `{"version":2,"items":[{"product_id":"p1","qty":0}]}`},
		{"legacy zero quantity", `[{"product_id":"p1","qty":0}]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeBillItems([]byte(tc.raw)); !errors.Is(err, ErrDecode) {
				t.Fatalf("err = %v, want ErrDecode", err)
			}
		})
	}
}

func TestEncodeBillItemsNil(t *testing.T) {
	raw, err := EncodeBillItems(nil)
	if err != nil {
		t.Fatalf("encode nil: %v", err)
	}
	if string(raw) != `{"version":2,"items":[]}` {
		t.Fatalf("got %s", raw)
	}
}
