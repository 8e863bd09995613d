package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns a hex-encoded SHA-256 hash for token/code storage.
// Token values carry enough entropy that a fast hash is sufficient.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// RandomToken returns a hex-encoded string of n random bytes.
func RandomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
