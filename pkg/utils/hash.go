package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// Digest returns the hex encoded sha256 of data.
// Callers pass canonical forms so equal content yields equal digests.
func Digest(data []byte) string {
	hasher := sha256.New()
	hasher.Write(data)
	return hex.EncodeToString(hasher.Sum(nil))
}
