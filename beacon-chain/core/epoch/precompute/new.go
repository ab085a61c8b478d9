package precompute

import (
	"github.com/pkg/errors"

	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/helpers"
	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

// New initializes the per-validator and per-epoch balance records
// that the rewards and penalties phase accumulates into. It fixes
// each validator's activity status for the current and previous
// epoch before any attestation is classified, since that
// classification itself depends on knowing who was active when. Both
// epoch balance totals are floored at EFFECTIVE_BALANCE_INCREMENT.
func New(state *pb.BeaconState) ([]*Validator, *Balance) {
	currentEpoch := helpers.CurrentEpoch(state)
	prevEpoch := helpers.PrevEpoch(state)

	vp := make([]*Validator, len(state.Validators))
	bal := &Balance{}
	for i, v := range state.Validators {
		p := &Validator{
			IsSlashed:                    v.Slashed,
			IsWithdrawableCurrentEpoch:   currentEpoch >= v.WithdrawableEpoch,
			IsActiveCurrentEpoch:         helpers.IsActiveValidator(v, currentEpoch),
			IsActivePrevEpoch:            helpers.IsActiveValidator(v, prevEpoch),
			CurrentEpochEffectiveBalance: v.EffectiveBalance,
		}
		vp[i] = p
		if p.IsActiveCurrentEpoch {
			bal.CurrentEpoch += v.EffectiveBalance
		}
		if p.IsActivePrevEpoch {
			bal.PrevEpoch += v.EffectiveBalance
		}
	}

	increment := params.BeaconConfig().EffectiveBalanceIncrement
	if bal.CurrentEpoch < increment {
		bal.CurrentEpoch = increment
	}
	if bal.PrevEpoch < increment {
		bal.PrevEpoch = increment
	}
	return vp, bal
}

// ProcessAttestations walks the previous epoch's source, target and
// head matching attestation sets and folds each one into the
// per-validator record and per-epoch balance accumulator. Only
// unslashed attesters count, mirroring the spec's
// get_unslashed_attesting_indices.
func ProcessAttestations(
	state *pb.BeaconState,
	vp []*Validator,
	bal *Balance,
	sourceAtts, targetAtts, headAtts []*pb.PendingAttestation,
) error {
	for _, att := range sourceAtts {
		committee, err := helpers.BeaconCommittee(state, att.Data.Slot, att.Data.Index)
		if err != nil {
			return errors.Wrap(err, "could not get attestation committee")
		}
		indices := helpers.AttestingIndices(att.AggregationBits, committee)
		for _, idx := range indices {
			v := vp[idx]
			if v.IsSlashed {
				continue
			}
			if !v.IsPrevEpochAttester || att.InclusionDelay < v.InclusionDistance {
				v.InclusionDistance = att.InclusionDelay
				v.ProposerIndex = att.ProposerIndex
			}
			if !v.IsPrevEpochAttester {
				v.IsPrevEpochAttester = true
				bal.PrevEpochAttesters += v.CurrentEpochEffectiveBalance
			}
		}
	}

	for _, att := range targetAtts {
		committee, err := helpers.BeaconCommittee(state, att.Data.Slot, att.Data.Index)
		if err != nil {
			return errors.Wrap(err, "could not get attestation committee")
		}
		for _, idx := range helpers.AttestingIndices(att.AggregationBits, committee) {
			v := vp[idx]
			if v.IsSlashed || v.IsPrevEpochTargetAttester {
				continue
			}
			v.IsPrevEpochTargetAttester = true
			bal.PrevEpochTargetAttesters += v.CurrentEpochEffectiveBalance
		}
	}
	for _, att := range headAtts {
		committee, err := helpers.BeaconCommittee(state, att.Data.Slot, att.Data.Index)
		if err != nil {
			return errors.Wrap(err, "could not get attestation committee")
		}
		for _, idx := range helpers.AttestingIndices(att.AggregationBits, committee) {
			v := vp[idx]
			if v.IsSlashed || v.IsPrevEpochHeadAttester {
				continue
			}
			v.IsPrevEpochHeadAttester = true
			bal.PrevEpochHeadAttesters += v.CurrentEpochEffectiveBalance
		}
	}
	return nil
}
