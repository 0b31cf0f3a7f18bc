// Package identity maps string chunk identifiers to the unsigned integer
// point ids vector stores require.
package identity

import (
	"crypto/sha256"
	"encoding/binary"
)

// mask keeps the id within the positive range of a signed 32-bit integer.
const mask = 0x7FFFFFFF

// StableID returns a deterministic id for chunkID: the first eight bytes of
// its SHA-256 digest read big endian, masked to 31 bits. The same chunk id
// always maps to the same point, so re-indexing overwrites instead of
// duplicating. Distinct ids may collide; collisions are not detected.
func StableID(chunkID string) uint64 {
	sum := sha256.Sum256([]byte(chunkID))
	return binary.BigEndian.Uint64(sum[:8]) & mask
}
