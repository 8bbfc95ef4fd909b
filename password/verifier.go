package password

import (
	"strings"
	"sync"
)

// Verifier is the credential verifier used by the engine. It hashes with bcrypt and
// verifies bcrypt or legacy argon2id hashes.
type Verifier struct {
	bcrypt *Bcrypt

	dummyOnce sync.Once
	dummyHash string
}

// NewVerifier returns a Verifier hashing at the given bcrypt cost (0 = DefaultCost).
func NewVerifier(cost int) (*Verifier, error) {
	b, err := NewBcrypt(cost)
	if err != nil {
		return nil, err
	}
	return &Verifier{bcrypt: b}, nil
}

// Hash returns a new bcrypt hash of password.
func (v *Verifier) Hash(password string) (string, error) {
	return v.bcrypt.Hash(password)
}

// Verify reports whether password matches hash. An empty or unrecognised hash never matches.
func (v *Verifier) Verify(password, hash string) bool {
	switch {
	case hash == "":
		return false
	case strings.HasPrefix(hash, argon2Prefix):
		ok, err := verifyArgon2(password, hash)
		return err == nil && ok
	case isBcryptHash(hash):
		return v.bcrypt.Verify(password, hash)
	default:
		return false
	}
}

// NeedsRehash reports whether a stored hash should be replaced after a successful login.
func (v *Verifier) NeedsRehash(hash string) bool {
	if !isBcryptHash(hash) {
		return true
	}
	return v.bcrypt.NeedsRehash(hash)
}

// Burn performs a bcrypt comparison against a fixed hash so that a login for an unknown
// account costs as much as one for a known account.
func (v *Verifier) Burn(password string) {
	v.dummyOnce.Do(func() {
		h, err := v.bcrypt.Hash("ffauth-dummy-password")
		if err == nil {
			v.dummyHash = h
		}
	})
	if v.dummyHash == "" {
		return
	}
	_ = v.bcrypt.Verify(password, v.dummyHash)
}

func isBcryptHash(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") ||
		strings.HasPrefix(hash, "$2b$") ||
		strings.HasPrefix(hash, "$2y$")
}
