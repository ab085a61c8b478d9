// Package hashutil defines the hash primitive used across seed
// derivation, validator shuffling, and proposer selection.
package hashutil

import (
	sha256 "github.com/minio/sha256-simd"
)

// Hash defines a function that returns the SHA-256 digest of the data
// passed in, backed by minio/sha256-simd's AVX2/SHA-extensions
// implementation rather than the standard library's crypto/sha256 —
// this hash is called on every validator in every committee shuffle, so
// the constant-factor speedup is not optional at mainnet validator
// counts.
func Hash(data []byte) [32]byte {
	var hash [32]byte
	h := sha256.Sum256(data)
	copy(hash[:], h[:])
	return hash
}

// RepeatHash applies Hash repeatedly numTimes on a 32-byte value.
func RepeatHash(data [32]byte, numTimes uint64) [32]byte {
	if numTimes == 0 {
		return data
	}
	return RepeatHash(Hash(data[:]), numTimes-1)
}

// MerkleRoot computes the root of a simple binary pairwise-hash tree
// over a power-of-two-sized leaf set. This is a generic helper, not the
// SSZ hash_tree_root (out of scope, see DESIGN.md) — it backs small
// fixed internal structures only.
func MerkleRoot(leaves [][32]byte) [32]byte {
	if len(leaves) == 0 {
		return [32]byte{}
	}
	layer := leaves
	for len(layer) > 1 {
		next := make([][32]byte, 0, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 < len(layer) {
				next = append(next, Hash(append(append([]byte{}, layer[i][:]...), layer[i+1][:]...)))
			} else {
				next = append(next, layer[i])
			}
		}
		layer = next
	}
	return layer[0]
}
