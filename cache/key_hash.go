package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey hashes a token string so caches key on a fixed-length value and
// never hold the raw credential as a key.
func HashKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
