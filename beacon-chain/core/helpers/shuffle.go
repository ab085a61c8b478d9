package helpers

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/eth2serenity/beacon-epoch/shared/hashutil"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

// ShuffledIndex returns the permuted index of index in a list of
// indexCount elements under seed, computed with the "swap or not"
// shuffling algorithm. ComputeCommittee and ComputeProposerIndex both
// sample from this permutation rather than shuffling the whole index
// list up front, since a single committee or proposer draw only ever
// needs a handful of entries out of it.
//
// Spec pseudocode definition:
//  def compute_shuffled_index(index: ValidatorIndex, index_count: uint64, seed: Bytes32) -> ValidatorIndex:
//    """
//    Return the shuffled index corresponding to ``seed`` (and ``index_count``).
//    """
//    assert index < index_count
//    for current_round in range(SHUFFLE_ROUND_COUNT):
//        pivot = bytes_to_uint64(hash(seed + int_to_bytes(current_round, length=1))[0:8]) % index_count
//        flip = (pivot + index_count - index) % index_count
//        position = max(index, flip)
//        source = hash(seed + int_to_bytes(current_round, length=1) + int_to_bytes(position // 256, length=4))
//        byte = source[(position % 256) // 8]
//        bit = (byte >> (position % 8)) % 2
//        index = flip if bit else index
//    return ValidatorIndex(index)
func ShuffledIndex(index, indexCount uint64, seed [32]byte) (uint64, error) {
	return shuffledIndex(index, indexCount, seed, true)
}

// ComputeShuffledIndex shuffles index forward through all rounds when
// shuffle is true, or unshuffles it by running the rounds in reverse
// when shuffle is false. The spec's compute_shuffled_index is the
// forward direction only, and proposer sampling and committee
// selection only ever use that direction; the reverse direction has
// no counterpart in the pseudocode.
func ComputeShuffledIndex(index, indexCount uint64, seed [32]byte, shuffle bool) (uint64, error) {
	return shuffledIndex(index, indexCount, seed, shuffle)
}

func shuffledIndex(index, indexCount uint64, seed [32]byte, shuffle bool) (uint64, error) {
	if indexCount == 0 {
		return 0, errors.New("index count must not be 0")
	}
	if index >= indexCount {
		return 0, errors.Errorf("index %d out of range for index count %d", index, indexCount)
	}

	rounds := params.BeaconConfig().ShuffleRoundCount

	round := uint8(0)
	if !shuffle {
		round = uint8(rounds) - 1
	}

	for {
		roundSeed := append(append([]byte{}, seed[:]...), round)
		pivotSource := hashutil.Hash(roundSeed)
		pivot := binary.LittleEndian.Uint64(pivotSource[:8]) % indexCount

		flip := (pivot + indexCount - index) % indexCount
		position := index
		if flip > position {
			position = flip
		}

		posSource := append(roundSeed, positionBytes(position/256)...)
		source := hashutil.Hash(posSource)
		b := source[(position%256)/8]
		bit := (b >> (position % 8)) % 2

		if bit == 1 {
			index = flip
		}

		if shuffle {
			round++
			if round >= uint8(rounds) {
				break
			}
		} else {
			if round == 0 {
				break
			}
			round--
		}
	}

	return index, nil
}

func positionBytes(x uint64) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(x))
	return b
}
