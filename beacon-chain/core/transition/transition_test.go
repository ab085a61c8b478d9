package transition

import (
	"context"
	"testing"

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

func TestCanProcessEpoch(t *testing.T) {
	smallConfig(t)
	slotsPerEpoch := params.BeaconConfig().SlotsPerEpoch

	tests := []struct {
		slot uint64
		want bool
	}{
		{slot: 0, want: false},
		{slot: slotsPerEpoch - 2, want: false},
		{slot: slotsPerEpoch - 1, want: true},
		{slot: 2*slotsPerEpoch - 1, want: true},
	}
	for _, tt := range tests {
		state := &pb.BeaconState{Slot: tt.slot}
		if got := CanProcessEpoch(state); got != tt.want {
			t.Errorf("CanProcessEpoch(slot=%d) = %v, want %v", tt.slot, got, tt.want)
		}
	}
}

func newEpochBoundaryState(numVals int) *pb.BeaconState {
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
	return &pb.BeaconState{
		Slot:                        cfg.SlotsPerEpoch - 1,
		Validators:                  vals,
		Balances:                    balances,
		RandaoMixes:                 mixes,
		BlockRoots:                  blockRoots,
		StateRoots:                  blockRoots,
		Slashings:                   make([]uint64, cfg.EpochsPerSlashingsVector),
		JustificationBits:           []byte{0},
		CurrentJustifiedCheckpoint:  &pb.Checkpoint{Root: make([]byte, 32)},
		PreviousJustifiedCheckpoint: &pb.Checkpoint{Root: make([]byte, 32)},
		FinalizedCheckpoint:         &pb.Checkpoint{Root: make([]byte, 32)},
	}
}

func TestProcessEpoch_RunsAllPhasesAtGenesisEpoch(t *testing.T) {
	smallConfig(t)
	state := newEpochBoundaryState(8)

	got, err := ProcessEpoch(context.Background(), state)
	if err != nil {
		t.Fatalf("ProcessEpoch: %v", err)
	}
	if len(got.Validators) != 8 {
		t.Errorf("validator count changed: got %d, want 8", len(got.Validators))
	}
	if len(got.CurrentEpochAttestations) != 0 {
		t.Error("expected current epoch attestations to be reset after final updates")
	}
}

func TestFastSSZHasher_RejectsUnsupportedType(t *testing.T) {
	var hasher FastSSZHasher
	if _, err := hasher.HashTreeRoot(42); err == nil {
		t.Error("expected an error for a value that does not implement ssz.HashRoot")
	}
}
