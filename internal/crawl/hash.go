package crawl

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentKey derives the blob store key for a page from its normalized URL.
// Keying by the URL hash makes duplicate deliveries overwrite the same
// object instead of accumulating copies.
func ContentKey(normalizedURL string) string {
	sum := sha256.Sum256([]byte(normalizedURL))
	return hex.EncodeToString(sum[:]) + ".html"
}
