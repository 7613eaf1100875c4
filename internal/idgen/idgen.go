// Package idgen generates opaque session identifiers.
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const sessionIDPrefix = "session-"

// NewSessionID returns an id of the form "session-<url-safe-base64(16
// random bytes)>", unpadded. crypto/rand is used rather than a generic UUID
// library since the format is mandated precisely by the wire contract and a
// UUID would not produce it.
func NewSessionID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return sessionIDPrefix + base64.RawURLEncoding.EncodeToString(buf), nil
}
