// Package contenthash computes the digest internal/ledger stores
// alongside each ingested file, so a repeated ingest run can tell an
// unchanged file from one that needs re-parsing.
package contenthash

import (
	"crypto/sha1"
	"encoding/hex"
)

// Hex returns data's SHA1 digest as a hex string.
func Hex(data []byte) string {
	h := sha1.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
