// Package bytesutil defines byte manipulation helpers used for
// little-endian slot/epoch encoding throughout the epoch transition's
// seed derivation code.
package bytesutil

import "encoding/binary"

// Bytes8 returns the little-endian byte representation of x in an
// 8-byte slice, matching the SSZ uint64 serialization used by
// int_to_bytes(x, length=8) in the spec pseudocode.
func Bytes8(x uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, x)
	return b
}
