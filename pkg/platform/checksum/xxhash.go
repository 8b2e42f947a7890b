// Package checksum fingerprints uploaded and generated files.
package checksum

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

// Bytes returns the hex xxhash64 digest of b.
func Bytes(b []byte) string {
	digest := xxhash.New()
	_, _ = digest.Write(b)
	return hex.EncodeToString(digest.Sum(nil))
}

// Reader hashes everything read from r.
func Reader(r io.Reader) (string, error) {
	digest := xxhash.New()
	if _, err := io.Copy(digest, r); err != nil {
		return "", fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(digest.Sum(nil)), nil
}
