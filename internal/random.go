package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
)

// SessionID is the raw form of a session token id.
type SessionID [16]byte

// encodedSessionIDLen is the length of SessionID.String output.
var encodedSessionIDLen = base64.RawURLEncoding.EncodedLen(len(SessionID{}))

var errSessionIDFormat = errors.New("malformed session id")

func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID accepts only the exact form String produces. The length is
// checked up front because the decoder skips embedded newlines.
func ParseSessionID(encoded string) (SessionID, error) {
	var sid SessionID
	if len(encoded) != encodedSessionIDLen {
		return sid, errSessionIDFormat
	}
	n, err := base64.RawURLEncoding.Strict().Decode(sid[:], []byte(encoded))
	if err != nil || n != len(sid) {
		return SessionID{}, errSessionIDFormat
	}
	return sid, nil
}
