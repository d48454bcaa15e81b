// Package sha256 fingerprints fetched document bytes so cache entries
// and log lines can be correlated across runs.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher computes hex SHA-256 digests.
type Hasher struct{}

// New returns a digest hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the full hex digest of data.
func (h *Hasher) Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns a short digest prefix sized for log fields.
func (h *Hasher) Fingerprint(data []byte) string {
	const width = 12
	return h.Hash(data)[:width]
}
