package password

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Accounts migrated from an earlier deployment may still carry argon2id PHC
// hashes. They verify here and are replaced with bcrypt on the next login;
// nothing in ffauth writes argon2id.

const argon2Prefix = "$argon2id$"

// Lower bounds below which a stored hash is treated as corrupt rather than weak.
const (
	legacyMinMemoryKB = 8 * 1024
	legacyMinSaltLen  = 16
)

var errLegacyHash = errors.New("malformed argon2id hash")

type legacyArgon2 struct {
	memory  uint32
	time    uint32
	threads uint8
	salt    []byte
	key     []byte
}

func (h legacyArgon2) matches(password string) bool {
	derived := argon2.IDKey([]byte(password), h.salt, h.time, h.memory, h.threads, uint32(len(h.key)))
	return subtle.ConstantTimeCompare(derived, h.key) == 1
}

func verifyArgon2(password, encoded string) (bool, error) {
	h, err := parseLegacyArgon2(encoded)
	if err != nil {
		return false, err
	}
	return h.matches(password), nil
}

// parseLegacyArgon2 reads "$argon2id$v=19$m=<kb>,t=<n>,p=<n>$<salt>$<key>".
func parseLegacyArgon2(encoded string) (legacyArgon2, error) {
	var h legacyArgon2

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return h, errLegacyHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return h, fmt.Errorf("%w: version %q", errLegacyHash, fields[2])
	}

	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.threads); err != nil {
		return h, fmt.Errorf("%w: params %q", errLegacyHash, fields[3])
	}
	if fmt.Sprintf("m=%d,t=%d,p=%d", h.memory, h.time, h.threads) != fields[3] {
		return h, fmt.Errorf("%w: params %q", errLegacyHash, fields[3])
	}
	if h.memory < legacyMinMemoryKB || h.time == 0 || h.threads == 0 {
		return h, fmt.Errorf("%w: params below minimum", errLegacyHash)
	}

	var err error
	if h.salt, err = decodeB64(fields[4]); err != nil || len(h.salt) < legacyMinSaltLen {
		return h, fmt.Errorf("%w: salt", errLegacyHash)
	}
	if h.key, err = decodeB64(fields[5]); err != nil || len(h.key) == 0 {
		return h, fmt.Errorf("%w: key", errLegacyHash)
	}

	return h, nil
}

// decodeB64 accepts the unpadded PHC alphabet and padded standard base64.
func decodeB64(v string) ([]byte, error) {
	if out, err := base64.RawStdEncoding.DecodeString(v); err == nil {
		return out, nil
	}
	return base64.StdEncoding.DecodeString(v)
}
