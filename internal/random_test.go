package internal

import (
	"testing"
)

func TestNewSessionIDIsUnique(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		sid, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID: %v", err)
		}
		s := sid.String()
		if len(s) != 22 {
			t.Fatalf("expected 22-char id, got %d (%q)", len(s), s)
		}
		if _, dup := seen[s]; dup {
			t.Fatalf("duplicate session id %q", s)
		}
		seen[s] = struct{}{}
	}
}

func TestParseSessionID(t *testing.T) {
	sid, err := NewSessionID()
	if err != nil {
		t.Fatalf("NewSessionID: %v", err)
	}
	parsed, err := ParseSessionID(sid.String())
	if err != nil {
		t.Fatalf("ParseSessionID(%q): %v", sid.String(), err)
	}
	if parsed != sid {
		t.Fatal("round-trip mismatch")
	}

	rejected := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"short", "AAAA"},
		{"padded", "AAAAAAAAAAAAAAAAAAAAAA=="},
		{"std alphabet", "AAAAAAAAAAAAAAAAAAAA+/"},
		{"trailing bits", "AAAAAAAAAAAAAAAAAAAAAB"},
		{"embedded newline", "AAAAAAAAAA\nAAAAAAAAAAA"},
		{"uuid", "3f0c2a6e-1c2d-4f41-9d0e-6c1b5b0f9a11"},
	}
	for _, tc := range rejected {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseSessionID(tc.input); err == nil {
				t.Fatalf("expected %q to be rejected", tc.input)
			}
		})
	}
}

// FuzzParseSessionID exercises session id decoding with arbitrary strings.
// Goal: no panics; a successful parse must round-trip.
func FuzzParseSessionID(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("!!!not-base64!!!")
	f.Add("AAAAAAAAAAAAAAAAAAAAAA")

	if sid, err := NewSessionID(); err == nil {
		f.Add(sid.String())
	}

	f.Fuzz(func(t *testing.T, input string) {
		sid, err := ParseSessionID(input)
		if err != nil {
			return
		}
		if sid.String() != input {
			t.Fatalf("round-trip mismatch: %q -> %q", input, sid.String())
		}
	})
}
