// Package checksum provides content digests for asset fingerprinting.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Short returns a 12-character prefix of Sum, compact enough to embed in
// cache bucket version names while still collision-safe at this scale.
func Short(data []byte) string {
	return Sum(data)[:12]
}
