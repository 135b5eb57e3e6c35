package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sha256Hex returns the SHA-256 digest of the input encoded as lowercase hex.
func Sha256Hex(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:])
}

// HashParts joins parts with a unit separator and hashes the result, so that
// ("ab","c") and ("a","bc") produce different digests.
func HashParts(parts ...string) string {
	return Sha256Hex(strings.Join(parts, "\x1f"))
}
