package precompute

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/helpers"
	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/mathutil"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

// ProcessRewardsAndPenaltiesPrecompute applies the rewards and
// penalties computed from the precomputed validator and balance
// records to every validator's balance.
func ProcessRewardsAndPenaltiesPrecompute(
	state *pb.BeaconState,
	bal *Balance,
	vp []*Validator,
) (*pb.BeaconState, error) {
	// Rewards and penalties are not applied in the genesis epoch: there
	// is no previous epoch to have attested to.
	if helpers.CurrentEpoch(state) == 0 {
		return state, nil
	}

	if len(vp) != len(state.Validators) || len(vp) != len(state.Balances) {
		return state, errors.New("precomputed registries not the same length as state registries")
	}

	attsRewards, attsPenalties := AttestationsDelta(state, bal, vp)
	proposerRewards, err := ProposersDelta(bal, vp, len(state.Validators))
	if err != nil {
		return nil, errors.Wrap(err, "could not compute proposer reward delta")
	}

	for i := range state.Validators {
		helpers.IncreaseBalance(state, uint64(i), attsRewards[i]+proposerRewards[i])
		helpers.DecreaseBalance(state, uint64(i), attsPenalties[i])
	}

	return state, nil
}

// AttestationsDelta computes and returns the reward and penalty
// deltas for every validator based on its previous-epoch attestation
// record.
func AttestationsDelta(state *pb.BeaconState, bal *Balance, vp []*Validator) ([]uint64, []uint64) {
	numOfVals := len(state.Validators)
	rewards := make([]uint64, numOfVals)
	penalties := make([]uint64, numOfVals)
	prevEpoch := helpers.PrevEpoch(state)
	finalizedEpoch := state.FinalizedCheckpoint.Epoch

	for i, v := range vp {
		rewards[i], penalties[i] = attestationDelta(bal, v, prevEpoch, finalizedEpoch)
	}
	return rewards, penalties
}

func attestationDelta(bal *Balance, v *Validator, prevEpoch, finalizedEpoch uint64) (uint64, uint64) {
	if !EligibleForRewards(v) || bal.CurrentEpoch == 0 {
		return 0, 0
	}

	cfg := params.BeaconConfig()
	increment := cfg.EffectiveBalanceIncrement
	vb := v.CurrentEpochEffectiveBalance
	br := vb * cfg.BaseRewardFactor / mathutil.IntegerSquareRoot(bal.CurrentEpoch) / cfg.BaseRewardsPerEpoch
	r, p := uint64(0), uint64(0)
	currentEpochBalanceInIncrements := bal.CurrentEpoch / increment
	leaking := helpers.IsInInactivityLeak(prevEpoch, finalizedEpoch)

	// Source (previous-epoch attester) reward / penalty.
	if v.IsPrevEpochAttester && !v.IsSlashed {
		proposerReward := br / cfg.ProposerRewardQuotient
		maxAttesterReward := br - proposerReward
		r += maxAttesterReward / v.InclusionDistance

		if leaking {
			r += br
		} else {
			r += br * (bal.PrevEpochAttesters / increment) / currentEpochBalanceInIncrements
		}
	} else {
		p += br
	}

	// Target reward / penalty.
	if v.IsPrevEpochTargetAttester && !v.IsSlashed {
		if leaking {
			r += br
		} else {
			r += br * (bal.PrevEpochTargetAttesters / increment) / currentEpochBalanceInIncrements
		}
	} else {
		p += br
	}

	// Head reward / penalty.
	if v.IsPrevEpochHeadAttester && !v.IsSlashed {
		if leaking {
			r += br
		} else {
			r += br * (bal.PrevEpochHeadAttesters / increment) / currentEpochBalanceInIncrements
		}
	} else {
		p += br
	}

	// Inactivity leak penalty: on top of the ordinary penalties above,
	// a validator loses ground proportional to its effective balance
	// and the finality delay while the chain is leaking.
	if leaking {
		proposerReward := br / cfg.ProposerRewardQuotient
		p += cfg.BaseRewardsPerEpoch*br - proposerReward
		if !v.IsPrevEpochTargetAttester || v.IsSlashed {
			finalityDelay := helpers.FinalityDelay(prevEpoch, finalizedEpoch)
			hi, lo := bits.Mul64(vb, finalityDelay)
			quotient, _ := bits.Div64(hi, lo, cfg.InactivityPenaltyQuotient)
			p += quotient
		}
	}
	return r, p
}

// ProposersDelta computes and returns the proposer micro-reward for
// every validator whose timely inclusion of another validator's
// attestation earns its proposer a cut of that attester's base
// reward.
func ProposersDelta(bal *Balance, vp []*Validator, numOfVals int) ([]uint64, error) {
	rewards := make([]uint64, numOfVals)

	balanceSqrt := mathutil.IntegerSquareRoot(bal.CurrentEpoch)
	if balanceSqrt == 0 {
		balanceSqrt = 1
	}

	cfg := params.BeaconConfig()
	for _, v := range vp {
		if v.ProposerIndex >= uint64(len(rewards)) {
			return nil, errors.New("proposer index out of range")
		}
		if v.IsPrevEpochAttester && !v.IsSlashed {
			baseReward := v.CurrentEpochEffectiveBalance * cfg.BaseRewardFactor / balanceSqrt / cfg.BaseRewardsPerEpoch
			rewards[v.ProposerIndex] += baseReward / cfg.ProposerRewardQuotient
		}
	}
	return rewards, nil
}

// EligibleForRewards reports whether a validator is in scope for the
// rewards and penalties phase at all.
//
// Spec pseudocode definition:
//  is_active_validator(v, previous_epoch) or (v.slashed and previous_epoch + 1 < v.withdrawable_epoch)
func EligibleForRewards(v *Validator) bool {
	return v.IsActivePrevEpoch || (v.IsSlashed && !v.IsWithdrawableCurrentEpoch)
}
