package canon

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex hashes canonical JSON bytes and returns the lowercase hex digest.
func SHA256Hex(canonicalJSON []byte) string {
	sum := sha256.Sum256(canonicalJSON)
	return hex.EncodeToString(sum[:])
}

// HashOf is a convenience: canonicalize v, then SHA-256 it.
func HashOf(v any) string {
	return SHA256Hex(Marshal(v))
}
