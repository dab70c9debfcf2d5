// Package fingerprint computes content digests used for change detection.
package fingerprint

import (
	"encoding/hex"

	sha256 "github.com/minio/sha256-simd"
)

// Digest returns the hex-encoded SHA-256 of data. Empty input is valid.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
