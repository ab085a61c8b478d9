// Package blocks contains the block-root bookkeeping the epoch
// transition leans on for FFG target/head matching: the get_block_root
// family of lookups, read straight out of the state's ring buffer.
package blocks

import (
	"fmt"

	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

// BlockRootAtSlot returns the block root stored in the BeaconState for
// a given slot. It returns an error if the requested slot falls
// outside the window kept by the ring buffer.
//
// Spec pseudocode definition:
//  def get_block_root_at_slot(state: BeaconState, slot: Slot) -> Root:
//    """
//    Return the block root at a recent ``slot``.
//    """
//    assert slot < state.slot <= slot + SLOTS_PER_HISTORICAL_ROOT
//    return state.block_roots[slot % SLOTS_PER_HISTORICAL_ROOT]
func BlockRootAtSlot(state *pb.BeaconState, slot uint64) ([]byte, error) {
	var earliestSlot uint64
	if state.Slot > params.BeaconConfig().SlotsPerHistoricalRoot {
		earliestSlot = state.Slot - params.BeaconConfig().SlotsPerHistoricalRoot
	}

	if slot < earliestSlot || slot >= state.Slot {
		return nil, fmt.Errorf("slot %d is not within expected range of %d to %d",
			slot, earliestSlot, state.Slot)
	}

	return state.BlockRoots[slot%params.BeaconConfig().SlotsPerHistoricalRoot], nil
}

// BlockRoot returns the block root at the starting slot of the given
// epoch.
//
// Spec pseudocode definition:
//  def get_block_root(state: BeaconState, epoch: Epoch) -> Root:
//    """
//    Return the block root at the start of a recent ``epoch``.
//    """
//    return get_block_root_at_slot(state, compute_start_slot_at_epoch(epoch))
func BlockRoot(state *pb.BeaconState, epoch uint64) ([]byte, error) {
	return BlockRootAtSlot(state, epoch*params.BeaconConfig().SlotsPerEpoch)
}
