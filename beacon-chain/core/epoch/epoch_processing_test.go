package epoch

import (
	"testing"

	bitfield "github.com/prysmaticlabs/go-bitfield"

	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/blocks"
	"github.com/eth2serenity/beacon-epoch/beacon-chain/core/helpers"
	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/params"
)

func smallConfig(t *testing.T) {
	t.Helper()
	cfg := params.MainnetConfig()
	cfg.SlotsPerEpoch = 4
	cfg.TargetCommitteeSize = 4
	cfg.MaxCommitteesPerSlot = 1
	cfg.SlotsPerHistoricalRoot = 16
	params.OverrideBeaconConfig(cfg)
	t.Cleanup(func() { params.OverrideBeaconConfig(params.MainnetConfig()) })
}

func blockRootState(numVals int, slot uint64) *pb.BeaconState {
	cfg := params.BeaconConfig()
	vals := make([]*pb.Validator, numVals)
	balances := make([]uint64, numVals)
	for i := range vals {
		vals[i] = &pb.Validator{
			EffectiveBalance: cfg.MaxEffectiveBalance,
			ActivationEpoch:  0,
			ExitEpoch:        cfg.FarFutureEpoch,
		}
		balances[i] = cfg.MaxEffectiveBalance
	}
	mixes := make([][]byte, cfg.EpochsPerHistoricalVector)
	for i := range mixes {
		mixes[i] = make([]byte, 32)
	}
	blockRoots := make([][]byte, cfg.SlotsPerHistoricalRoot)
	for i := range blockRoots {
		root := make([]byte, 32)
		root[0] = byte(i + 1)
		blockRoots[i] = root
	}
	slashings := make([]uint64, cfg.EpochsPerSlashingsVector)
	return &pb.BeaconState{
		Slot:                        slot,
		Validators:                  vals,
		Balances:                    balances,
		RandaoMixes:                 mixes,
		BlockRoots:                  blockRoots,
		StateRoots:                  blockRoots,
		Slashings:                   slashings,
		JustificationBits:           []byte{0},
		CurrentJustifiedCheckpoint:  &pb.Checkpoint{Root: make([]byte, 32)},
		PreviousJustifiedCheckpoint: &pb.Checkpoint{Root: make([]byte, 32)},
		FinalizedCheckpoint:         &pb.Checkpoint{Root: make([]byte, 32)},
	}
}

func TestMatchAttestations_TargetAndHead(t *testing.T) {
	smallConfig(t)
	state := blockRootState(16, 2*params.BeaconConfig().SlotsPerEpoch)

	targetRoot, err := blocks.BlockRoot(state, 1)
	if err != nil {
		t.Fatalf("block root: %v", err)
	}
	headRoot, err := blocks.BlockRootAtSlot(state, params.BeaconConfig().SlotsPerEpoch)
	if err != nil {
		t.Fatalf("block root at slot: %v", err)
	}

	state.PreviousEpochAttestations = []*pb.PendingAttestation{
		{Data: &pb.AttestationData{Slot: params.BeaconConfig().SlotsPerEpoch, TargetRoot: targetRoot, BeaconBlockRoot: headRoot}},
		{Data: &pb.AttestationData{Slot: params.BeaconConfig().SlotsPerEpoch, TargetRoot: []byte("wrong-root-wrong-root-wrong-roo"), BeaconBlockRoot: headRoot}},
	}

	matched, err := MatchAttestations(state, 1)
	if err != nil {
		t.Fatalf("MatchAttestations: %v", err)
	}
	if len(matched.Source) != 2 {
		t.Errorf("len(Source) = %d, want 2", len(matched.Source))
	}
	if len(matched.Target) != 1 {
		t.Errorf("len(Target) = %d, want 1", len(matched.Target))
	}
	if len(matched.Head) != 2 {
		t.Errorf("len(Head) = %d, want 2", len(matched.Head))
	}
}

func TestProcessSlashings_AppliesProportionalPenalty(t *testing.T) {
	smallConfig(t)
	state := blockRootState(4, 0)
	cfg := params.BeaconConfig()

	currentEpoch := uint64(0)
	slashedIdx := 0
	state.Validators[slashedIdx].Slashed = true
	state.Validators[slashedIdx].WithdrawableEpoch = currentEpoch + cfg.EpochsPerSlashingsVector/2
	state.Slashings[0] = cfg.MaxEffectiveBalance

	got, err := ProcessSlashings(state)
	if err != nil {
		t.Fatalf("ProcessSlashings: %v", err)
	}
	if got.Balances[slashedIdx] >= cfg.MaxEffectiveBalance {
		t.Errorf("expected slashed validator's balance to be penalized, got %d", got.Balances[slashedIdx])
	}
	for i := 1; i < len(got.Balances); i++ {
		if got.Balances[i] != cfg.MaxEffectiveBalance {
			t.Errorf("unslashed validator %d balance changed: got %d, want %d", i, got.Balances[i], cfg.MaxEffectiveBalance)
		}
	}
}

func TestProcessSlashings_UntouchedOutsideWindow(t *testing.T) {
	smallConfig(t)
	state := blockRootState(2, 0)
	state.Validators[0].Slashed = true
	state.Validators[0].WithdrawableEpoch = 999
	state.Slashings[0] = params.BeaconConfig().MaxEffectiveBalance

	got, err := ProcessSlashings(state)
	if err != nil {
		t.Fatalf("ProcessSlashings: %v", err)
	}
	if got.Balances[0] != params.BeaconConfig().MaxEffectiveBalance {
		t.Errorf("validator penalized outside its slashing window: got %d", got.Balances[0])
	}
}

func TestProcessRegistryUpdates_ActivationQueueOrderedByEligibilityThenIndex(t *testing.T) {
	smallConfig(t)
	ffe := params.BeaconConfig().FarFutureEpoch
	state := blockRootState(3, 0)
	// Validator 0 and 2 share an eligibility epoch; 0 must win the tie-break by index.
	state.Validators[0].ActivationEligibilityEpoch = 3
	state.Validators[0].ActivationEpoch = ffe
	state.Validators[1].ActivationEligibilityEpoch = 1
	state.Validators[1].ActivationEpoch = ffe
	state.Validators[2].ActivationEligibilityEpoch = 3
	state.Validators[2].ActivationEpoch = ffe
	state.FinalizedCheckpoint.Epoch = 3

	cfg := params.MainnetConfig()
	cfg.SlotsPerEpoch = 4
	cfg.MinPerEpochChurnLimit = 2
	cfg.ChurnLimitQuotient = 1 << 16
	params.OverrideBeaconConfig(cfg)
	t.Cleanup(func() { params.OverrideBeaconConfig(params.MainnetConfig()) })

	got, err := ProcessRegistryUpdates(state)
	if err != nil {
		t.Fatalf("ProcessRegistryUpdates: %v", err)
	}
	// Churn limit 2: validator 1 (eligibility 1) and validator 0 (eligibility
	// 3, index 0) should activate; validator 2 (eligibility 3, index 2) queues.
	if got.Validators[1].ActivationEpoch == ffe {
		t.Error("validator 1 should have activated")
	}
	if got.Validators[0].ActivationEpoch == ffe {
		t.Error("validator 0 should have activated ahead of validator 2 on the index tie-break")
	}
	if got.Validators[2].ActivationEpoch != ffe {
		t.Error("validator 2 should still be queued behind the churn limit")
	}
}

func TestProcessRegistryUpdates_EjectsAtEjectionBalance(t *testing.T) {
	smallConfig(t)
	state := blockRootState(2, 0)
	state.Validators[0].EffectiveBalance = params.BeaconConfig().EjectionBalance

	got, err := ProcessRegistryUpdates(state)
	if err != nil {
		t.Fatalf("ProcessRegistryUpdates: %v", err)
	}
	if got.Validators[0].ExitEpoch == params.BeaconConfig().FarFutureEpoch {
		t.Error("expected validator at ejection balance to be queued for exit")
	}
}

type stubHasher struct{}

func (stubHasher) HashTreeRoot(interface{}) ([32]byte, error) {
	return [32]byte{0xAB}, nil
}

func TestProcessFinalUpdates_ResetsSlashingsRingAndRotatesAttestations(t *testing.T) {
	smallConfig(t)
	cfg := params.BeaconConfig()
	state := blockRootState(2, cfg.SlotsPerEpoch)
	nextEpoch := helpers.CurrentEpoch(state) + 1
	state.Slashings[nextEpoch%cfg.EpochsPerSlashingsVector] = 12345
	state.CurrentEpochAttestations = []*pb.PendingAttestation{{InclusionDelay: 1}}

	got, err := ProcessFinalUpdates(state, stubHasher{})
	if err != nil {
		t.Fatalf("ProcessFinalUpdates: %v", err)
	}
	if got.Slashings[nextEpoch%cfg.EpochsPerSlashingsVector] != 0 {
		t.Error("expected the slashings ring slot to reset to 0, not carry forward")
	}
	if len(got.PreviousEpochAttestations) != 1 {
		t.Error("expected current epoch attestations to rotate into previous epoch attestations")
	}
	if len(got.CurrentEpochAttestations) != 0 {
		t.Error("expected current epoch attestations to reset to empty")
	}
}

func TestProcessFinalUpdates_HysteresisKeepsStableBalanceUnchanged(t *testing.T) {
	smallConfig(t)
	state := blockRootState(1, params.BeaconConfig().SlotsPerEpoch)
	state.Validators[0].EffectiveBalance = params.BeaconConfig().MaxEffectiveBalance
	state.Balances[0] = params.BeaconConfig().MaxEffectiveBalance

	got, err := ProcessFinalUpdates(state, stubHasher{})
	if err != nil {
		t.Fatalf("ProcessFinalUpdates: %v", err)
	}
	if got.Validators[0].EffectiveBalance != params.BeaconConfig().MaxEffectiveBalance {
		t.Errorf("effective balance changed for a validator within the hysteresis band: got %d", got.Validators[0].EffectiveBalance)
	}
}

func TestUnslashedAttestingIndices_ExcludesSlashed(t *testing.T) {
	smallConfig(t)
	state := blockRootState(4, 0)
	state.Validators[1].Slashed = true

	att := &pb.PendingAttestation{
		Data:            &pb.AttestationData{Slot: 0, Index: 0},
		AggregationBits: bitfield.NewBitlist(4),
	}
	for i := uint64(0); i < 4; i++ {
		att.AggregationBits.SetBitAt(i, true)
	}

	indices, err := unslashedAttestingIndices(state, []*pb.PendingAttestation{att})
	if err != nil {
		t.Fatalf("unslashedAttestingIndices: %v", err)
	}
	for _, idx := range indices {
		if idx == 1 {
			t.Error("slashed validator 1 should not appear in unslashed attesting indices")
		}
	}
}
