package model

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// IDLength is the length of a persisted identifier in hex characters.
const IDLength = 24

// NewID returns a new 24-character hex identifier: a 4-byte big-endian
// creation timestamp followed by 8 random bytes.
func NewID() string {
	var buf [12]byte
	binary.BigEndian.PutUint32(buf[:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(buf[4:]); err != nil {
		panic("model: reading random bytes: " + err.Error())
	}
	return hex.EncodeToString(buf[:])
}

// ValidID reports whether id is a well-formed identifier.
func ValidID(id string) bool {
	if len(id) != IDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
