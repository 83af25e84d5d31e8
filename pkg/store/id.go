package store

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID returns a 24-character hex id, the durable-store id format.
// The volatile store assigns UUIDs instead, so the two id spaces are
// distinguishable by format alone.
func NewID() string {
	var b [12]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "id-unknown"
	}
	return hex.EncodeToString(b[:])
}

// IsValidID reports whether id matches the durable-store id format.
// Ids that fail this check short-circuit to "not found" on the durable
// backend without querying it.
func IsValidID(id string) bool {
	if len(id) != 24 {
		return false
	}
	for _, r := range id {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}
