// Package validators contains the exit-queue protocol the epoch
// transition leans on when ejecting a validator from the active set.
package validators

import (
	"github.com/pkg/errors"

	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/helpers"
	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

// InitiateValidatorExit assigns the validator at idx an exit epoch
// and a withdrawable epoch, queuing it behind any validator that
// already has an exit epoch scheduled once the per-epoch churn limit
// would otherwise be exceeded. A validator already queued for exit is
// left untouched.
//
// Spec pseudocode definition:
//  def initiate_validator_exit(state: BeaconState, index: ValidatorIndex) -> None:
//    validator = state.validators[index]
//    if validator.exit_epoch != FAR_FUTURE_EPOCH:
//        return
//
//    exit_epochs = [v.exit_epoch for v in state.validators if v.exit_epoch != FAR_FUTURE_EPOCH]
//    exit_queue_epoch = max(exit_epochs + [compute_activation_exit_epoch(get_current_epoch(state))])
//    exit_queue_churn = len([v for v in state.validators if v.exit_epoch == exit_queue_epoch])
//    if exit_queue_churn >= get_validator_churn_limit(state):
//        exit_queue_epoch += Epoch(1)
//
//    validator.exit_epoch = exit_queue_epoch
//    validator.withdrawable_epoch = Epoch(validator.exit_epoch + MIN_VALIDATOR_WITHDRAWABILITY_DELAY)
func InitiateValidatorExit(state *pb.BeaconState, idx uint64) (*pb.BeaconState, error) {
	cfg := params.BeaconConfig()
	validator := state.Validators[idx]
	if validator.ExitEpoch != cfg.FarFutureEpoch {
		return state, nil
	}

	currentEpoch := helpers.CurrentEpoch(state)
	exitQueueEpoch := helpers.DelayedActivationExitEpoch(currentEpoch)
	for _, v := range state.Validators {
		if v.ExitEpoch != cfg.FarFutureEpoch && v.ExitEpoch > exitQueueEpoch {
			exitQueueEpoch = v.ExitEpoch
		}
	}

	exitQueueChurn := uint64(0)
	for _, v := range state.Validators {
		if v.ExitEpoch == exitQueueEpoch {
			exitQueueChurn++
		}
	}

	activeCount := helpers.ActiveValidatorCount(state, currentEpoch)
	if exitQueueChurn >= helpers.ValidatorChurnLimit(activeCount) {
		exitQueueEpoch++
	}

	if exitQueueEpoch >= cfg.FarFutureEpoch-cfg.MinValidatorWithdrawabilityDelay {
		return nil, errors.New("exit queue epoch overflows withdrawable epoch")
	}
	validator.ExitEpoch = exitQueueEpoch
	validator.WithdrawableEpoch = exitQueueEpoch + cfg.MinValidatorWithdrawabilityDelay
	return state, nil
}
