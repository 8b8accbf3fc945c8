package money

import "testing"

func TestFormat(t *testing.T) {
	if got := Format(170000); got != "170000.00" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := Format(0); got != "0.00" {
		t.Fatalf("unexpected format %q", got)
	}
}

func TestParseMinor(t *testing.T) {
	cases := map[string]int64{
		"170000.00": 170000,
		"170000":    170000,
		" 5000.0 ":  5000,
	}
	for raw, want := range cases {
		got, err := ParseMinor(raw)
		if err != nil {
			t.Fatalf("ParseMinor(%q) error: %v", raw, err)
		}
		if got != want {
			t.Fatalf("ParseMinor(%q) = %d, want %d", raw, got, want)
		}
	}

	for _, bad := range []string{"", "abc", "10.50", "-1", "99999999999999999999999"} {
		if _, err := ParseMinor(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
