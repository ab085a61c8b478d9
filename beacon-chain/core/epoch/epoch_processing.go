// Package epoch contains epoch processing libraries. These libraries
// compute the per-epoch balance for validators, justify and finalize
// new checkpoints, rotate validators in and out of the active set,
// and apply slashing and bookkeeping resets at the epoch boundary.
package epoch

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"

	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/blocks"
	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/epoch/precompute"
	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/helpers"
	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/validators"
	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

// StateRootHasher computes the SSZ hash tree root of a value that
// epoch processing needs to commit into the state's history. It's
// defined here, at the point of use, because this package never
// performs Merkleization itself; a concrete SSZ implementation is
// injected by the caller.
type StateRootHasher interface {
	HashTreeRoot(val interface{}) ([32]byte, error)
}

// MatchedAttestations bundles the source, target and head matching
// attestation sets for a single epoch.
type MatchedAttestations struct {
	Source []*pb.PendingAttestation
	Target []*pb.PendingAttestation
	Head   []*pb.PendingAttestation
}

// MatchAttestations partitions the attestations recorded for a given
// epoch by whether each one correctly voted for that epoch's source,
// target and head. Source-matching is the full pool: an attestation
// only ever gets into previous/current_epoch_attestations once its
// source checkpoint has already been verified against the state.
//
// Spec pseudocode definition:
//  def get_matching_source_attestations(state: BeaconState, epoch: Epoch) -> Sequence[PendingAttestation]:
//    assert epoch in (get_previous_epoch(state), get_current_epoch(state))
//    return state.current_epoch_attestations if epoch == get_current_epoch(state) else state.previous_epoch_attestations
//
//  def get_matching_target_attestations(state: BeaconState, epoch: Epoch) -> Sequence[PendingAttestation]:
//    return [
//        a for a in get_matching_source_attestations(state, epoch)
//        if a.data.target.root == get_block_root(state, epoch)
//    ]
//
//  def get_matching_head_attestations(state: BeaconState, epoch: Epoch) -> Sequence[PendingAttestation]:
//    return [
//        a for a in get_matching_source_attestations(state, epoch)
//        if a.data.beacon_block_root == get_block_root_at_slot(state, a.data.slot)
//    ]
func MatchAttestations(state *pb.BeaconState, epoch uint64) (*MatchedAttestations, error) {
	currentEpoch := helpers.CurrentEpoch(state)
	previousEpoch := helpers.PrevEpoch(state)
	if epoch != currentEpoch && epoch != previousEpoch {
		return nil, errors.Errorf("input epoch: %d != current epoch: %d or previous epoch: %d",
			epoch, currentEpoch, previousEpoch)
	}

	var srcAtts []*pb.PendingAttestation
	if epoch == currentEpoch {
		srcAtts = state.CurrentEpochAttestations
	} else {
		srcAtts = state.PreviousEpochAttestations
	}

	targetRoot, err := blocks.BlockRoot(state, epoch)
	if err != nil {
		return nil, errors.Wrapf(err, "could not get block root for epoch %d", epoch)
	}

	tgtAtts := make([]*pb.PendingAttestation, 0, len(srcAtts))
	headAtts := make([]*pb.PendingAttestation, 0, len(srcAtts))
	for _, att := range srcAtts {
		if bytes.Equal(att.Data.TargetRoot, targetRoot) {
			tgtAtts = append(tgtAtts, att)
		}

		headRoot, err := blocks.BlockRootAtSlot(state, att.Data.Slot)
		if err != nil {
			return nil, errors.Wrapf(err, "could not get block root for slot %d", att.Data.Slot)
		}
		if bytes.Equal(att.Data.BeaconBlockRoot, headRoot) {
			headAtts = append(headAtts, att)
		}
	}

	return &MatchedAttestations{Source: srcAtts, Target: tgtAtts, Head: headAtts}, nil
}

// AttestingBalance returns the total effective balance of the
// unslashed validators attesting in the given set.
//
// Spec pseudocode definition:
//  def get_attesting_balance(state: BeaconState, attestations: Sequence[PendingAttestation]) -> Gwei:
//    return get_total_balance(state, get_unslashed_attesting_indices(state, attestations))
func AttestingBalance(state *pb.BeaconState, atts []*pb.PendingAttestation) (uint64, error) {
	indices, err := unslashedAttestingIndices(state, atts)
	if err != nil {
		return 0, errors.Wrap(err, "could not get attesting indices")
	}
	return helpers.TotalBalance(state, indices), nil
}

// ProcessRewardsAndPenalties processes the rewards and penalties of
// individual validators by delegating to the precomputed
// attestation-participation records built from the previous epoch's
// matching source, target and head attestations.
//
// Spec pseudocode definition:
//  def process_rewards_and_penalties(state: BeaconState) -> None:
//    if get_current_epoch(state) == GENESIS_EPOCH:
//        return
//
//    rewards, penalties = get_attestation_deltas(state)
//    for index in range(len(state.validators)):
//        increase_balance(state, ValidatorIndex(index), rewards[index])
//        decrease_balance(state, ValidatorIndex(index), penalties[index])
func ProcessRewardsAndPenalties(state *pb.BeaconState) (*pb.BeaconState, error) {
	if helpers.CurrentEpoch(state) == 0 {
		return state, nil
	}

	prevEpoch := helpers.PrevEpoch(state)
	matched, err := MatchAttestations(state, prevEpoch)
	if err != nil {
		return nil, errors.Wrap(err, "could not get previous epoch matching attestations")
	}

	vp, bal := precompute.New(state)
	if err := precompute.ProcessAttestations(state, vp, bal, matched.Source, matched.Target, matched.Head); err != nil {
		return nil, errors.Wrap(err, "could not process attesting records")
	}
	return precompute.ProcessRewardsAndPenaltiesPrecompute(state, bal, vp)
}

// ProcessRegistryUpdates rotates validators in and out of the active
// set: newly eligible validators are queued for activation, and
// validators whose effective balance has dropped to or below the
// ejection threshold are queued for exit.
//
// Spec pseudocode definition:
//  def process_registry_updates(state: BeaconState) -> None:
//    for index, validator in enumerate(state.validators):
//        if validator.activation_eligibility_epoch == FAR_FUTURE_EPOCH and validator.effective_balance >= MAX_EFFECTIVE_BALANCE:
//            validator.activation_eligibility_epoch = get_current_epoch(state) + 1
//        if is_active_validator(validator, get_current_epoch(state)) and validator.effective_balance <= EJECTION_BALANCE:
//            initiate_validator_exit(state, ValidatorIndex(index))
//
//    def is_eligible_for_activation(state: BeaconState, validator: Validator) -> bool:
//        return (validator.activation_eligibility_epoch <= state.finalized_checkpoint.epoch
//            and validator.activation_epoch == FAR_FUTURE_EPOCH)
//
//    activation_queue = sorted([
//        index for index, validator in enumerate(state.validators) if
//        is_eligible_for_activation(state, validator)
//    ], key=lambda index: (state.validators[index].activation_eligibility_epoch, index))
//    for index in activation_queue[:get_validator_churn_limit(state)]:
//        validator = state.validators[index]
//        if validator.activation_epoch == FAR_FUTURE_EPOCH:
//            validator.activation_epoch = compute_activation_exit_epoch(get_current_epoch(state))
func ProcessRegistryUpdates(state *pb.BeaconState) (*pb.BeaconState, error) {
	currentEpoch := helpers.CurrentEpoch(state)
	cfg := params.BeaconConfig()

	for idx, validator := range state.Validators {
		eligibleToActivate := validator.ActivationEligibilityEpoch == cfg.FarFutureEpoch
		properBalance := validator.EffectiveBalance >= cfg.MaxEffectiveBalance
		if eligibleToActivate && properBalance {
			validator.ActivationEligibilityEpoch = currentEpoch + 1
		}

		isActive := helpers.IsActiveValidator(validator, currentEpoch)
		belowEjectionBalance := validator.EffectiveBalance <= cfg.EjectionBalance
		if isActive && belowEjectionBalance {
			var err error
			state, err = validators.InitiateValidatorExit(state, uint64(idx))
			if err != nil {
				return nil, errors.Wrapf(err, "could not initiate exit for validator %d", idx)
			}
		}
	}

	// Queue validators eligible for activation, in order of eligibility
	// epoch, breaking ties by index to keep the ordering deterministic.
	var activationQ []uint64
	for idx, validator := range state.Validators {
		eligibleActivated := validator.ActivationEligibilityEpoch <= state.FinalizedCheckpoint.Epoch
		canBeActive := validator.ActivationEpoch == cfg.FarFutureEpoch
		if eligibleActivated && canBeActive {
			activationQ = append(activationQ, uint64(idx))
		}
	}
	sort.Slice(activationQ, func(i, j int) bool {
		vi, vj := state.Validators[activationQ[i]], state.Validators[activationQ[j]]
		if vi.ActivationEligibilityEpoch == vj.ActivationEligibilityEpoch {
			return activationQ[i] < activationQ[j]
		}
		return vi.ActivationEligibilityEpoch < vj.ActivationEligibilityEpoch
	})

	activeCount := helpers.ActiveValidatorCount(state, currentEpoch)
	churnLimit := helpers.ValidatorChurnLimit(activeCount)
	limit := uint64(len(activationQ))
	if churnLimit < limit {
		limit = churnLimit
	}
	for _, index := range activationQ[:limit] {
		validator := state.Validators[index]
		if validator.ActivationEpoch == cfg.FarFutureEpoch {
			validator.ActivationEpoch = helpers.DelayedActivationExitEpoch(currentEpoch)
		}
	}
	return state, nil
}

// ProcessSlashings applies the delayed penalty owed by validators
// that were slashed in the window ending at this epoch's midpoint,
// proportional to how much of the total active stake was slashed
// across that window.
//
// Spec pseudocode definition:
//  def process_slashings(state: BeaconState) -> None:
//    epoch = get_current_epoch(state)
//    total_balance = get_total_active_balance(state)
//    adjusted_total_slashing_balance = min(sum(state.slashings) * PROPORTIONAL_SLASHING_MULTIPLIER, total_balance)
//    for index, validator in enumerate(state.validators):
//        if validator.slashed and epoch + EPOCHS_PER_SLASHINGS_VECTOR // 2 == validator.withdrawable_epoch:
//            increment = EFFECTIVE_BALANCE_INCREMENT
//            penalty_numerator = validator.effective_balance // increment * adjusted_total_slashing_balance
//            penalty = penalty_numerator // total_balance * increment
//            decrease_balance(state, ValidatorIndex(index), penalty)
func ProcessSlashings(state *pb.BeaconState) (*pb.BeaconState, error) {
	currentEpoch := helpers.CurrentEpoch(state)
	totalBalance := helpers.TotalActiveBalance(state)
	cfg := params.BeaconConfig()

	var totalSlashings uint64
	for _, s := range state.Slashings {
		totalSlashings += s
	}
	adjustedTotal := totalSlashings * 3
	if adjustedTotal > totalBalance {
		adjustedTotal = totalBalance
	}

	increment := cfg.EffectiveBalanceIncrement
	slashingPeriod := cfg.EpochsPerSlashingsVector / 2
	for index, validator := range state.Validators {
		if !validator.Slashed || currentEpoch+slashingPeriod != validator.WithdrawableEpoch {
			continue
		}
		// Each division is floored separately, in this exact order; the
		// intermediate "/ increment" then "* adjustedTotal" is the
		// spec's rounding pattern and is not equivalent to reordering.
		penalty := validator.EffectiveBalance / increment * adjustedTotal / totalBalance * increment
		helpers.DecreaseBalance(state, uint64(index), penalty)
	}
	return state, nil
}

// ProcessFinalUpdates performs the epoch-boundary bookkeeping that
// doesn't fall under justification, rewards, registry updates or
// slashings: effective balance hysteresis, the ETH1 vote pool reset,
// RANDAO mix and slashings ring advancement, the historical batch
// commitment, and rotating the attestation pools.
//
// Spec pseudocode definition:
//  def process_final_updates(state: BeaconState) -> None:
//    current_epoch = get_current_epoch(state)
//    next_epoch = Epoch(current_epoch + 1)
//    if next_epoch % EPOCHS_PER_ETH1_VOTING_PERIOD == 0:
//        state.eth1_data_votes = []
//    for index, validator in enumerate(state.validators):
//        balance = state.balances[index]
//        HYSTERESIS_INCREMENT = EFFECTIVE_BALANCE_INCREMENT // HYSTERESIS_QUOTIENT
//        DOWNWARD_THRESHOLD = HYSTERESIS_INCREMENT * HYSTERESIS_DOWNWARD_MULTIPLIER
//        UPWARD_THRESHOLD = HYSTERESIS_INCREMENT * HYSTERESIS_UPWARD_MULTIPLIER
//        if balance + DOWNWARD_THRESHOLD < validator.effective_balance or validator.effective_balance + UPWARD_THRESHOLD < balance:
//            validator.effective_balance = min(balance - balance % EFFECTIVE_BALANCE_INCREMENT, MAX_EFFECTIVE_BALANCE)
//    state.slashings[next_epoch % EPOCHS_PER_SLASHINGS_VECTOR] = Gwei(0)
//    state.randao_mixes[next_epoch % EPOCHS_PER_HISTORICAL_VECTOR] = get_randao_mix(state, current_epoch)
//    if next_epoch % (SLOTS_PER_HISTORICAL_ROOT // SLOTS_PER_EPOCH) == 0:
//        historical_batch = HistoricalBatch(block_roots=state.block_roots, state_roots=state.state_roots)
//        state.historical_roots.append(hash_tree_root(historical_batch))
//    state.previous_epoch_attestations = state.current_epoch_attestations
//    state.current_epoch_attestations = []
func ProcessFinalUpdates(state *pb.BeaconState, hasher StateRootHasher) (*pb.BeaconState, error) {
	currentEpoch := helpers.CurrentEpoch(state)
	nextEpoch := currentEpoch + 1
	cfg := params.BeaconConfig()

	if nextEpoch%cfg.EpochsPerEth1VotingPeriod == 0 {
		state.Eth1DataVotes = nil
	}

	// Effective balance tracks real balance through a hysteresis band
	// so a validator oscillating right at a boundary doesn't flip its
	// effective balance (and thus its base reward) every epoch.
	hysteresisIncrement := cfg.EffectiveBalanceIncrement / cfg.HysteresisQuotient
	downwardThreshold := hysteresisIncrement * cfg.HysteresisDownwardMultiplier
	upwardThreshold := hysteresisIncrement * cfg.HysteresisUpwardMultiplier
	for i, v := range state.Validators {
		balance := state.Balances[i]
		if balance+downwardThreshold < v.EffectiveBalance || v.EffectiveBalance+upwardThreshold < balance {
			newEffective := balance - balance%cfg.EffectiveBalanceIncrement
			if newEffective > cfg.MaxEffectiveBalance {
				newEffective = cfg.MaxEffectiveBalance
			}
			v.EffectiveBalance = newEffective
		}
	}

	// The slashings ring resets to zero at the slot it's about to
	// start accumulating for; it does not carry the prior slot's
	// total forward.
	state.Slashings[nextEpoch%cfg.EpochsPerSlashingsVector] = 0

	mix := helpers.RandaoMix(state, currentEpoch)
	state.RandaoMixes[nextEpoch%cfg.EpochsPerHistoricalVector] = mix

	epochsPerHistoricalRoot := cfg.SlotsPerHistoricalRoot / cfg.SlotsPerEpoch
	if nextEpoch%epochsPerHistoricalRoot == 0 {
		batch := &pb.HistoricalBatch{BlockRoots: state.BlockRoots, StateRoots: state.StateRoots}
		root, err := hasher.HashTreeRoot(batch)
		if err != nil {
			return nil, errors.Wrap(err, "could not hash historical batch")
		}
		state.HistoricalRoots = append(state.HistoricalRoots, root[:])
	}

	state.PreviousEpochAttestations = state.CurrentEpochAttestations
	state.CurrentEpochAttestations = make([]*pb.PendingAttestation, 0)

	return state, nil
}

// unslashedAttestingIndices returns the sorted, deduplicated set of
// validator indices attesting across a list of attestations, with
// slashed validators excluded.
//
// Spec pseudocode definition:
//  def get_unslashed_attesting_indices(state: BeaconState, attestations: Sequence[PendingAttestation]) -> Set[ValidatorIndex]:
//    output = set()
//    for a in attestations:
//        output = output.union(get_attesting_indices(state, a.data, a.aggregation_bits))
//    return set(filter(lambda index: not state.validators[index].slashed, output))
func unslashedAttestingIndices(state *pb.BeaconState, atts []*pb.PendingAttestation) ([]uint64, error) {
	seen := make(map[uint64]bool)
	var indices []uint64
	for _, att := range atts {
		committee, err := helpers.BeaconCommittee(state, att.Data.Slot, att.Data.Index)
		if err != nil {
			return nil, errors.Wrap(err, "could not get attestation committee")
		}
		for _, idx := range helpers.AttestingIndices(att.AggregationBits, committee) {
			if seen[idx] || state.Validators[idx].Slashed {
				continue
			}
			seen[idx] = true
			indices = append(indices, idx)
		}
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })
	return indices, nil
}
