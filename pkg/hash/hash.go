// Package hash implements the Content Hasher: a stable digest of a
// document's bytes used to suppress duplicate uploads within a batch.
//
// This is the one component in the repository built directly on the
// standard library rather than a third-party dependency — see DESIGN.md for
// why crypto/sha256 is the correct choice here, not a gap.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// SHA256 streams r into a SHA-256 digest and returns it hex-encoded,
// without buffering the whole file in memory.
func SHA256(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
