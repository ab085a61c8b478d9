package helpers

import (
	"testing"
)

func TestShuffledIndex_WithinBounds(t *testing.T) {
	seed := [32]byte{1, 2, 3}
	count := uint64(100)
	seen := make(map[uint64]bool, count)
	for i := uint64(0); i < count; i++ {
		shuffled, err := ShuffledIndex(i, count, seed)
		if err != nil {
			t.Fatalf("ShuffledIndex(%d): %v", i, err)
		}
		if shuffled >= count {
			t.Fatalf("shuffled index %d out of bounds for count %d", shuffled, count)
		}
		if seen[shuffled] {
			t.Fatalf("shuffled index %d produced twice, permutation is not a bijection", shuffled)
		}
		seen[shuffled] = true
	}
}

func TestShuffledIndex_DifferentSeedsDiffer(t *testing.T) {
	count := uint64(64)
	seedA := [32]byte{1}
	seedB := [32]byte{2}
	same := 0
	for i := uint64(0); i < count; i++ {
		a, err := ShuffledIndex(i, count, seedA)
		if err != nil {
			t.Fatalf("ShuffledIndex: %v", err)
		}
		b, err := ShuffledIndex(i, count, seedB)
		if err != nil {
			t.Fatalf("ShuffledIndex: %v", err)
		}
		if a == b {
			same++
		}
	}
	if same == int(count) {
		t.Error("expected different seeds to produce a different permutation")
	}
}

func TestShuffledIndex_OutOfRange(t *testing.T) {
	if _, err := ShuffledIndex(10, 5, [32]byte{}); err == nil {
		t.Error("expected error for index >= indexCount")
	}
}
