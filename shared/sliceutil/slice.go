package sliceutil

// SplitOffset returns (listLen * index) / chunks, the boundary used to
// carve a committee's validator-index slice out of the full shuffled
// active set.
//
// Spec pseudocode definition (compute_committee's start/end):
//  start = (len(indices) * index) // count
func SplitOffset(listLen, chunks, index uint64) uint64 {
	return (listLen * index) / chunks
}
