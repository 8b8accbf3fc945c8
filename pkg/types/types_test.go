package types

import (
	"encoding/json"
	"testing"
)

func TestNullableUUIDUnmarshal(t *testing.T) {
	type payload struct {
		ID NullableUUID `json:"id"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"id": "00000000-0000-0000-0000-000000000001"}`), &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !got.ID.Valid || got.ID.Value == nil || got.ID.Value.String() != "00000000-0000-0000-0000-000000000001" {
		t.Fatalf("unexpected uuid %+v", got.ID)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"id": null}`), &got); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !got.ID.Valid || got.ID.Value != nil {
		t.Fatalf("expected null to be valid but nil, got %+v", got.ID)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{}`), &got); err != nil {
		t.Fatalf("unmarshal missing: %v", err)
	}
	if got.ID.Valid {
		t.Fatalf("expected invalid flag for missing field, got %+v", got.ID)
	}
}

func TestNullableInt64Unmarshal(t *testing.T) {
	type payload struct {
		Price NullableInt64 `json:"discountPrice"`
	}

	var got payload
	if err := json.Unmarshal([]byte(`{"discountPrice": 7500}`), &got); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !got.Price.Valid || got.Price.Value == nil || *got.Price.Value != 7500 {
		t.Fatalf("unexpected value %+v", got.Price)
	}

	got = payload{}
	if err := json.Unmarshal([]byte(`{"discountPrice": "cheap"}`), &got); err == nil {
		t.Fatalf("expected string to be rejected")
	}
}

func TestShippingAddressRoundTripThroughScan(t *testing.T) {
	notes := "leave at the door"
	addr := ShippingAddress{Name: "Dewi", Phone: "0812", Address: "Jl. Merdeka 1", City: "Bandung", Province: "Jawa Barat", PostalCode: "40111", Notes: &notes}

	raw, err := addr.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var scanned ShippingAddress
	if err := scanned.Scan([]byte(raw.(string))); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scanned.City != "Bandung" || scanned.Notes == nil || *scanned.Notes != notes {
		t.Fatalf("unexpected scanned address %+v", scanned)
	}

	if err := scanned.Scan(42); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestNewPageMeta(t *testing.T) {
	meta := NewPageMeta(2, 20, 41)
	if meta.TotalPages != 3 {
		t.Fatalf("expected 3 pages, got %d", meta.TotalPages)
	}
	if NewPageMeta(1, 0, 10).TotalPages != 0 {
		t.Fatalf("expected zero pages when limit is zero")
	}
}
