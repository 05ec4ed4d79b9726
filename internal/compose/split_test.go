package compose

import (
	"strings"
	"testing"
)

func TestSplitMinimalParts(t *testing.T) {
	limits := Limits{GSM7: 140, UCS2: 70}
	body := strings.Repeat("a", 400)

	parts := Split(body, limits)
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	for i, part := range parts {
		if got := EncodedLength(part, CharsetGSM7); got > 140 {
			t.Errorf("part %d length = %d, exceeds limit", i+1, got)
		}
	}
	if strings.Join(parts, "") != body {
		t.Error("reassembly does not reproduce the body")
	}
}

func TestSplitSinglePart(t *testing.T) {
	parts := Split("short message", DefaultLimits)
	if len(parts) != 1 || parts[0] != "short message" {
		t.Errorf("parts = %v", parts)
	}
}

func TestSplitEmpty(t *testing.T) {
	if parts := Split("", DefaultLimits); parts != nil {
		t.Errorf("parts = %v, want nil", parts)
	}
}

func TestDetectCharset(t *testing.T) {
	tests := []struct {
		body string
		want Charset
	}{
		{"plain ascii", CharsetGSM7},
		{"déjà vu à Zürich", CharsetGSM7}, // all in GSM-7 basic set
		{"curly brace {ok}", CharsetGSM7}, // extension set
		{"смс", CharsetUCS2},
		{"emoji 😀", CharsetUCS2},
		{"中文", CharsetUCS2},
	}
	for _, tt := range tests {
		if got := DetectCharset(tt.body); got != tt.want {
			t.Errorf("DetectCharset(%q) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestExtensionCharsCostTwo(t *testing.T) {
	// 80 euro signs cost 160 septets: exactly one full part.
	body := strings.Repeat("€", 80)
	parts := Split(body, DefaultLimits)
	if len(parts) != 1 {
		t.Fatalf("parts = %d, want 1", len(parts))
	}

	// One more septet forces a second part, and the two-septet char is
	// never split across the boundary.
	parts = Split(body+"a", DefaultLimits)
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if strings.Join(parts, "") != body+"a" {
		t.Error("reassembly mismatch")
	}
}

func TestUCS2BodyUsesUCS2Limit(t *testing.T) {
	// 100 cyrillic chars at a 70 unit limit: two parts.
	body := strings.Repeat("ж", 100)
	parts := Split(body, DefaultLimits)
	if len(parts) != 2 {
		t.Fatalf("parts = %d, want 2", len(parts))
	}
	if got := EncodedLength(parts[0], CharsetUCS2); got != 70 {
		t.Errorf("first part = %d units, want 70", got)
	}

	// Surrogate pairs count as two UTF-16 units.
	if got := EncodedLength("😀", CharsetUCS2); got != 2 {
		t.Errorf("emoji cost = %d, want 2", got)
	}
}
