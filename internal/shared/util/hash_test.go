package util

import "testing"

func TestShortHash(t *testing.T) {
	ip := "203.0.113.7"
	got := ShortHash(ip)
	if got != ShortHash(ip) {
		t.Fatalf("expected stable hash, got %s", got)
	}
	if len(got) != 12 {
		t.Fatalf("expected 12 hex characters, got %d", len(got))
	}
	for _, ch := range got {
		if !((ch >= 'a' && ch <= 'f') || (ch >= '0' && ch <= '9')) {
			t.Fatalf("hash contains non-hex character: %c", ch)
		}
	}
	if ShortHash("") != "" {
		t.Fatalf("expected empty input to stay empty")
	}
	if ShortHash("198.51.100.1") == got {
		t.Fatalf("expected distinct inputs to differ")
	}
}

func TestShortHashNormalizesCase(t *testing.T) {
	if ShortHash(" Jane@Example.com") != ShortHash("jane@example.com") {
		t.Fatalf("expected case and space insensitive hash")
	}
	if ShortHash("   ") != "" {
		t.Fatalf("expected blank input to stay empty")
	}
}
