package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCursorEncodeParse(t *testing.T) {
	original := Cursor{CreatedAt: time.Date(2024, 3, 9, 10, 0, 0, 123, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(original))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.CreatedAt.Equal(original.CreatedAt) || parsed.ID != original.ID {
		t.Fatalf("cursor mismatch %+v vs %+v", parsed, original)
	}
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	if c, err := ParseCursor(""); c != nil || err != nil {
		t.Fatalf("empty cursor should be nil without error")
	}
	for _, raw := range []string{"%%%", "bm8tcGlwZQ", "eHx5"} {
		if _, err := ParseCursor(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestPageNormalize(t *testing.T) {
	p := Page{Number: 0, Limit: 500}.Normalize()
	if p.Number != 1 || p.Limit != MaxLimit {
		t.Fatalf("unexpected normalized page %+v", p)
	}
	if got := (Page{Number: 3, Limit: 20}).Offset(); got != 40 {
		t.Fatalf("expected offset 40, got %d", got)
	}
	if got := (Page{}).Offset(); got != 0 {
		t.Fatalf("expected offset 0, got %d", got)
	}
	if NormalizeLimit(0) != DefaultLimit || LimitWithBuffer(10) != 11 {
		t.Fatalf("unexpected limit helpers")
	}
}
