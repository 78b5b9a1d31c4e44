// Package hexid generates and validates the 24-character lowercase hex
// identifiers used for users, products, carts and orders.
package hexid

import (
	"crypto/rand"
	"encoding/hex"
)

// Len is the length of a valid identifier.
const Len = 24

// New returns a fresh random identifier.
func New() string {
	var b [Len / 2]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand never fails on supported platforms.
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// Valid reports whether s is a well-formed identifier: exactly Len
// lowercase hex characters.
func Valid(s string) bool {
	if len(s) != Len {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
