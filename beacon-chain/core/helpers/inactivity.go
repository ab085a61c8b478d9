package helpers

import "github.com/eth2serenity/beacon-epoch/shared/params"

// FinalityDelay returns the number of epochs since the last finalized
// checkpoint, measured from the previous epoch. A long finality delay
// is what triggers the inactivity leak.
//
// Spec pseudocode definition:
//  def get_finality_delay(state: BeaconState) -> uint64:
//    return get_previous_epoch(state) - state.finalized_checkpoint.epoch
func FinalityDelay(prevEpoch, finalizedEpoch uint64) uint64 {
	return prevEpoch - finalizedEpoch
}

// IsInInactivityLeak returns true when the chain has failed to
// finalize for longer than MIN_EPOCHS_TO_INACTIVITY_PENALTY, the
// condition under which the inactivity leak penalty applies on top of
// ordinary attestation rewards and penalties.
//
// Spec pseudocode definition:
//  def is_in_inactivity_leak(state: BeaconState) -> bool:
//    return get_finality_delay(state) > MIN_EPOCHS_TO_INACTIVITY_PENALTY
func IsInInactivityLeak(prevEpoch, finalizedEpoch uint64) bool {
	return FinalityDelay(prevEpoch, finalizedEpoch) > params.BeaconConfig().MinEpochsToInactivityPenalty
}
