package precompute

import (
	"github.com/pkg/errors"

	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/blocks"
	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/helpers"
	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
)

// ProcessJustificationAndFinalization processes justification and
// finalization during epoch processing. prevAttestedBal and
// currAttestedBal are the total effective balance of unslashed
// validators whose attestations matched the previous/current epoch's
// target checkpoint, computed by the caller from the attestation
// pool before any phase has mutated the state.
//
// Spec pseudocode definition:
//  def process_justification_and_finalization(state: BeaconState) -> None:
//    if get_current_epoch(state) <= GENESIS_EPOCH + 1:
//        return
//
//    previous_epoch = get_previous_epoch(state)
//    current_epoch = get_current_epoch(state)
//    old_previous_justified_checkpoint = state.previous_justified_checkpoint
//    old_current_justified_checkpoint = state.current_justified_checkpoint
//
//    state.previous_justified_checkpoint = state.current_justified_checkpoint
//    state.justification_bits[1:] = state.justification_bits[:JUSTIFICATION_BITS_LENGTH - 1]
//    state.justification_bits[0] = 0b0
//    matching_target_attestations = get_matching_target_attestations(state, previous_epoch)
//    if get_attesting_balance(state, matching_target_attestations) * 3 >= get_total_active_balance(state) * 2:
//        state.current_justified_checkpoint = Checkpoint(epoch=previous_epoch, root=get_block_root(state, previous_epoch))
//        state.justification_bits[1] = 0b1
//    matching_target_attestations = get_matching_target_attestations(state, current_epoch)
//    if get_attesting_balance(state, matching_target_attestations) * 3 >= get_total_active_balance(state) * 2:
//        state.current_justified_checkpoint = Checkpoint(epoch=current_epoch, root=get_block_root(state, current_epoch))
//        state.justification_bits[0] = 0b1
//
//    if bits[1] and bits[2] and bits[3] and old_previous_justified_checkpoint.epoch + 3 == current_epoch:
//        state.finalized_checkpoint = old_previous_justified_checkpoint
//    if bits[1] and bits[2] and old_previous_justified_checkpoint.epoch + 2 == current_epoch:
//        state.finalized_checkpoint = old_previous_justified_checkpoint
//    if bits[0] and bits[1] and bits[2] and old_current_justified_checkpoint.epoch + 2 == current_epoch:
//        state.finalized_checkpoint = old_current_justified_checkpoint
//    if bits[0] and bits[1] and old_current_justified_checkpoint.epoch + 1 == current_epoch:
//        state.finalized_checkpoint = old_current_justified_checkpoint
func ProcessJustificationAndFinalization(
	state *pb.BeaconState,
	prevAttestedBal uint64,
	currAttestedBal uint64,
) (*pb.BeaconState, error) {
	currentEpoch := helpers.CurrentEpoch(state)
	if currentEpoch <= 1 {
		return state, nil
	}

	prevEpoch := helpers.PrevEpoch(state)
	totalBal := helpers.TotalActiveBalance(state)

	if len(state.JustificationBits) != 1 {
		return nil, errors.New("state justification bits is not exactly 1 byte")
	}

	oldPrevJustified := state.PreviousJustifiedCheckpoint
	oldCurrJustified := state.CurrentJustifiedCheckpoint

	state.PreviousJustifiedCheckpoint = state.CurrentJustifiedCheckpoint
	state.JustificationBits[0] <<= 1
	state.JustificationBits[0] &= 0x0F

	if 3*prevAttestedBal >= 2*totalBal {
		root, err := justifiedRoot(state, oldCurrJustified, prevEpoch)
		if err != nil {
			return nil, errors.Wrapf(err, "could not get block root for previous epoch %d", prevEpoch)
		}
		state.CurrentJustifiedCheckpoint = &pb.Checkpoint{Epoch: prevEpoch, Root: root}
		state.JustificationBits[0] |= 2
	}
	if 3*currAttestedBal >= 2*totalBal {
		root, err := justifiedRoot(state, state.CurrentJustifiedCheckpoint, currentEpoch)
		if err != nil {
			return nil, errors.Wrapf(err, "could not get block root for current epoch %d", currentEpoch)
		}
		state.CurrentJustifiedCheckpoint = &pb.Checkpoint{Epoch: currentEpoch, Root: root}
		state.JustificationBits[0] |= 1
	}

	bitfield := state.JustificationBits[0]
	if oldPrevJustified.Epoch+3 == currentEpoch && (bitfield>>1)%8 == 7 {
		state.FinalizedCheckpoint = oldPrevJustified
	}
	if oldPrevJustified.Epoch+2 == currentEpoch && (bitfield>>1)%4 == 3 {
		state.FinalizedCheckpoint = oldPrevJustified
	}
	if oldCurrJustified.Epoch+2 == currentEpoch && (bitfield>>0)%8 == 7 {
		state.FinalizedCheckpoint = oldCurrJustified
	}
	if oldCurrJustified.Epoch+1 == currentEpoch && (bitfield>>0)%4 == 3 {
		state.FinalizedCheckpoint = oldCurrJustified
	}
	return state, nil
}

// justifiedRoot avoids re-deriving a block root that is already known:
// if the epoch being newly justified is the same one already recorded
// in prior, its root hasn't changed and a fresh get_block_root call
// would only risk failing once history for that epoch has been
// pruned.
func justifiedRoot(state *pb.BeaconState, prior *pb.Checkpoint, epoch uint64) ([]byte, error) {
	if prior != nil && prior.Epoch == epoch {
		return prior.Root, nil
	}
	return blocks.BlockRoot(state, epoch)
}
