package refresh

import (
	"testing"
	"time"
)

func TestNewPolicyDefaults(t *testing.T) {
	p, err := NewPolicy(0)
	if err != nil {
		t.Fatalf("NewPolicy(0): %v", err)
	}
	if p.Threshold() != DefaultThreshold {
		t.Fatalf("expected default threshold %v, got %v", DefaultThreshold, p.Threshold())
	}
	if _, err := NewPolicy(-time.Second); err == nil {
		t.Fatal("expected negative threshold to be rejected")
	}
}

func TestDecide(t *testing.T) {
	p, err := NewPolicy(86400 * time.Second)
	if err != nil {
		t.Fatalf("NewPolicy: %v", err)
	}
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name      string
		remaining time.Duration
		rotate    bool
	}{
		{"fresh token", 7 * 24 * time.Hour, false},
		{"exactly at threshold", 86400 * time.Second, false},
		{"one second under threshold", 86399 * time.Second, true},
		{"almost expired", time.Second, true},
		{"already expired", -time.Second, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := p.Decide(now.Add(tc.remaining), now)
			if d.Rotate != tc.rotate {
				t.Fatalf("expected rotate=%v, got %v", tc.rotate, d.Rotate)
			}
			if d.Remaining != tc.remaining {
				t.Fatalf("expected remaining %v, got %v", tc.remaining, d.Remaining)
			}
		})
	}
}
