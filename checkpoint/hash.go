package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashMemory returns the deterministic content hash tagged onto every
// checkpoint, used both to build the tag at upload time and to verify a
// downloaded payload against it.
func HashMemory(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
