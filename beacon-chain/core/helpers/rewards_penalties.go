package helpers

import (
	"github.com/eth2serenity/beacon-epoch/beacon-chain/cache"
	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

var balanceCache = cache.NewBalanceCache()

// TotalBalance returns the combined effective balance of the given
// validator indices. Not attested to any particular set of validators
// in isolation; callers pass whichever index list the phase under
// processing needs (unslashed attesters, the full active set, etc).
//
// Spec pseudocode definition:
//  def get_total_balance(state: BeaconState, indices: Set[ValidatorIndex]) -> Gwei:
//    return Gwei(max(EFFECTIVE_BALANCE_INCREMENT, sum([state.validators[index].effective_balance for index in indices])))
func TotalBalance(state *pb.BeaconState, indices []uint64) uint64 {
	total := uint64(0)
	for _, idx := range indices {
		total += state.Validators[idx].EffectiveBalance
	}
	if increment := params.BeaconConfig().EffectiveBalanceIncrement; total < increment {
		return increment
	}
	return total
}

// TotalActiveBalance returns the combined effective balance of every
// validator active in the current epoch, memoized per epoch since it
// is recomputed by multiple phases of the same ProcessEpoch call.
//
// Spec pseudocode definition:
//  def get_total_active_balance(state: BeaconState) -> Gwei:
//    return get_total_balance(state, set(get_active_validator_indices(state, get_current_epoch(state))))
func TotalActiveBalance(state *pb.BeaconState) uint64 {
	epoch := CurrentEpoch(state)
	if cached, ok := balanceCache.ActiveBalance(epoch); ok {
		return cached
	}

	total := uint64(0)
	for _, v := range state.Validators {
		if IsActiveValidator(v, epoch) {
			total += v.EffectiveBalance
		}
	}
	if increment := params.BeaconConfig().EffectiveBalanceIncrement; total < increment {
		total = increment
	}

	if err := balanceCache.SetActiveBalance(epoch, total); err != nil {
		log.WithError(err).Debug("could not cache active balance")
	}
	return total
}

// IncreaseBalance increases validator with the given index's balance
// by delta in Gwei.
//
// Spec pseudocode definition:
//  def increase_balance(state: BeaconState, index: ValidatorIndex, delta: Gwei) -> None:
//    state.balances[index] += delta
func IncreaseBalance(state *pb.BeaconState, idx uint64, delta uint64) {
	state.Balances[idx] += delta
}

// DecreaseBalance decreases validator with the given index's balance
// by delta in Gwei, floored at zero rather than underflowing.
//
// Spec pseudocode definition:
//  def decrease_balance(state: BeaconState, index: ValidatorIndex, delta: Gwei) -> None:
//    state.balances[index] = 0 if delta > state.balances[index] else state.balances[index] - delta
func DecreaseBalance(state *pb.BeaconState, idx uint64, delta uint64) {
	if delta > state.Balances[idx] {
		state.Balances[idx] = 0
		return
	}
	state.Balances[idx] -= delta
}
