// Package fileid derives deterministic template IDs from template content.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	prefix = "tpl_"
	// idHexLen keeps IDs short enough for URLs and logs; 64 bits of the hash.
	idHexLen = 16
)

// TemplateID returns a stable ID for a template. The same bytes always yield the same ID,
// so uploading an identical file again (by hand or through the inbox) updates one record.
func TemplateID(content []byte) string {
	hash := sha256.Sum256(content)
	return prefix + hex.EncodeToString(hash[:])[:idHexLen]
}
