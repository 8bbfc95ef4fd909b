package refresh

import (
	"errors"
	"time"
)

// DefaultThreshold is the remaining lifetime below which a refresh token rotates.
const DefaultThreshold = 24 * time.Hour

// Policy is a pure rotation rule. The zero value is not usable; use NewPolicy.
type Policy struct {
	threshold time.Duration
}

// Decision is the outcome of Decide.
type Decision struct {
	Rotate    bool
	Remaining time.Duration
}

// NewPolicy returns a Policy. threshold 0 selects DefaultThreshold; negative is invalid.
func NewPolicy(threshold time.Duration) (Policy, error) {
	if threshold < 0 {
		return Policy{}, errors.New("rotation threshold must be positive")
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	return Policy{threshold: threshold}, nil
}

// Threshold returns the configured rotation threshold.
func (p Policy) Threshold() time.Duration { return p.threshold }

// Decide reports whether a token expiring at expiresAt should rotate at now.
// remaining >= threshold keeps the token; remaining < threshold rotates it.
func (p Policy) Decide(expiresAt, now time.Time) Decision {
	remaining := expiresAt.Sub(now)
	return Decision{
		Rotate:    remaining < p.threshold,
		Remaining: remaining,
	}
}
