package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the lowercase hexadecimal SHA-256 digest of body. Archive
// entries are named from this digest, so it must stay stable across runs
// and platforms.
func Sum(body []byte) string {
	digest := sha256.Sum256(body)
	return hex.EncodeToString(digest[:])
}
