// Package fingerprint deduplicates extraction work by content hash.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/formpipe/formpipe/constants"
)

// Compute derives the cache key for a document: sha256 over the raw bytes,
// a zero separator, and the normalized form-type label. Identical bytes
// under different declared types fingerprint differently.
func Compute(content []byte, formType string) string {
	hasher := sha256.New()
	_, _ = hasher.Write(content)
	_, _ = hasher.Write([]byte{0})
	_, _ = hasher.Write([]byte(constants.NormalizeFormType(formType)))
	return hex.EncodeToString(hasher.Sum(nil))
}
