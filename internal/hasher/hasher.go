// Package hasher provides the fixed-seed, non-cryptographic 64-bit hash used
// to decide record equality.
//
// The algorithm is xxhash64 (github.com/cespare/xxhash/v2), chosen for speed
// and distribution quality, not collision resistance. xxhash/v2's public API
// does not expose a seed parameter, so the seed is folded in by writing it
// ahead of the key bytes into a running digest, rather than by hashing
// seed||key as a single buffer (avoiding an extra allocation for short keys).
package hasher

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/bejglee/duplicate-finder/internal/types"
)

// Seed is the fixed seed mixed into every hash computed during a run.
const Seed uint64 = 2024

// Name identifies the algorithm for run-log recording.
const Name = "xxhash64-seeded"

// Hash64 computes the fixed-seed hash of key's UTF-8 bytes.
func Hash64(key []byte) types.Hash64 {
	var seedBuf [8]byte
	binary.LittleEndian.PutUint64(seedBuf[:], Seed)

	d := xxhash.New()
	_, _ = d.Write(seedBuf[:])
	_, _ = d.Write(key)
	return types.Hash64(d.Sum64())
}

// HexString renders h as the lowercase 16-hex-digit encoding used by the
// DISK engine's run files.
func HexString(h types.Hash64) string {
	const hexDigits = "0123456789abcdef"
	var buf [16]byte
	v := uint64(h)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf[:])
}
