// Package transition wires the epoch-boundary sub-phases together into
// the single process_epoch entry point, and decides when a slot
// advance has crossed an epoch boundary.
package transition

import (
	"context"

	ssz "github.com/ferranbt/fastssz"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"

	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/epoch"
	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/epoch/precompute"
	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/helpers"
	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

// FastSSZHasher adapts github.com/ferranbt/fastssz's generated
// HashTreeRootWith methods to the epoch package's StateRootHasher
// interface. Any value committed into state history (currently, a
// batch of SlotsPerHistoricalRoot block and state roots) must implement
// ssz.HashRoot; hash-tree-root Merkleization of the full BeaconState
// itself stays out of this module's scope.
type FastSSZHasher struct{}

// HashTreeRoot satisfies epoch.StateRootHasher.
func (FastSSZHasher) HashTreeRoot(val interface{}) ([32]byte, error) {
	hr, ok := val.(ssz.HashRoot)
	if !ok {
		return [32]byte{}, errors.Errorf("%T does not implement ssz.HashRoot", val)
	}
	return ssz.HashWithDefaultHasher(hr)
}

// CanProcessEpoch reports whether state.Slot is the last slot of its
// epoch, the point at which process_epoch runs.
//
// Spec pseudocode definition:
//    If (state.slot + 1) % SLOTS_PER_EPOCH == 0:
func CanProcessEpoch(state *pb.BeaconState) bool {
	return (state.Slot+1)%params.BeaconConfig().SlotsPerEpoch == 0
}

// ProcessEpoch runs the five epoch-boundary sub-phases in order:
// justification and finalization, rewards and penalties, registry
// updates, slashings, and final updates.
//
// Spec pseudocode definition:
//  def process_epoch(state: BeaconState) -> None:
//    process_justification_and_finalization(state)
//    process_rewards_and_penalties(state)
//    process_registry_updates(state)
//    process_slashings(state)
//    process_final_updates(state)
func ProcessEpoch(ctx context.Context, state *pb.BeaconState) (*pb.BeaconState, error) {
	_, span := trace.StartSpan(ctx, "beacon-chain.ChainService.state.ProcessEpoch")
	defer span.End()

	prevEpoch := helpers.PrevEpoch(state)
	currentEpoch := helpers.CurrentEpoch(state)

	prevEpochAtts, err := epoch.MatchAttestations(state, prevEpoch)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get matching attestations for previous epoch %d", prevEpoch)
	}
	currentEpochAtts, err := epoch.MatchAttestations(state, currentEpoch)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get matching attestations for current epoch %d", currentEpoch)
	}
	prevEpochAttestedBalance, err := epoch.AttestingBalance(state, prevEpochAtts.Target)
	if err != nil {
		return nil, errors.Wrap(err, "could not get attesting balance for previous epoch")
	}
	currentEpochAttestedBalance, err := epoch.AttestingBalance(state, currentEpochAtts.Target)
	if err != nil {
		return nil, errors.Wrap(err, "could not get attesting balance for current epoch")
	}

	state, err = precompute.ProcessJustificationAndFinalization(state, prevEpochAttestedBalance, currentEpochAttestedBalance)
	if err != nil {
		return nil, errors.Wrap(err, "could not process justification and finalization")
	}

	state, err = epoch.ProcessRewardsAndPenalties(state)
	if err != nil {
		return nil, errors.Wrap(err, "could not process rewards and penalties")
	}

	state, err = epoch.ProcessRegistryUpdates(state)
	if err != nil {
		return nil, errors.Wrap(err, "could not process registry updates")
	}

	state, err = epoch.ProcessSlashings(state)
	if err != nil {
		return nil, errors.Wrap(err, "could not process slashings")
	}

	state, err = epoch.ProcessFinalUpdates(state, FastSSZHasher{})
	if err != nil {
		return nil, errors.Wrap(err, "could not process final updates")
	}

	return state, nil
}
