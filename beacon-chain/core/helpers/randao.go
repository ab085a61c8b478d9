package helpers

import (
	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/bytesutil"
	"github.com/eth2serenity/beacon-epoch/shared/hashutil"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

// RandaoMix returns the randao mix (xor'ed seed) of a given epoch. It
// reads directly out of the state's ring buffer rather than asserting
// the epoch is "recent" — final_updates is the only writer and it
// copies the current epoch's mix forward into the next epoch's entry, so the ring buffer entry
// for any already-stored epoch remains valid to read.
//
// Spec pseudocode definition:
//   def get_randao_mix(state: BeaconState, epoch: Epoch) -> Bytes32:
//    """
//    Return the randao mix at a recent ``epoch``.
//    """
//    return state.randao_mixes[epoch % EPOCHS_PER_HISTORICAL_VECTOR]
func RandaoMix(state *pb.BeaconState, epoch uint64) []byte {
	return state.RandaoMixes[epoch%params.BeaconConfig().EpochsPerHistoricalVector]
}

// Seed returns the seed used for committee shuffling and proposer
// selection for a given epoch and domain type.
//
// Spec pseudocode definition:
//  def get_seed(state: BeaconState, epoch: Epoch, domain_type: DomainType) -> Bytes32:
//    """
//    Return the seed at ``epoch``.
//    """
//    mix = get_randao_mix(state, Epoch(epoch + EPOCHS_PER_HISTORICAL_VECTOR - MIN_SEED_LOOKAHEAD - 1))
//    return hash(domain_type + uint_to_bytes(uint64(epoch)) + mix)
func Seed(state *pb.BeaconState, epoch uint64, domainType []byte) ([32]byte, error) {
	mixEpoch := epoch + params.BeaconConfig().EpochsPerHistoricalVector - params.BeaconConfig().MinSeedLookahead - 1
	mix := RandaoMix(state, mixEpoch)

	b := append([]byte{}, domainType...)
	b = append(b, bytesutil.Bytes8(epoch)...)
	b = append(b, mix...)
	return hashutil.Hash(b), nil
}
