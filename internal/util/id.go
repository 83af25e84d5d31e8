package util

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a short hex token, used to tag requests that arrive
// without an X-Request-Id header.
func NewID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
