package helpers

import (
	"testing"

	pb "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1"
	"github.com/eth2serenity/beacon-epoch/shared/params"
	bitfield "github.com/prysmaticlabs/go-bitfield"
)

func validatorsState(n int) *pb.BeaconState {
	vals := make([]*pb.Validator, n)
	for i := range vals {
		vals[i] = &pb.Validator{
			EffectiveBalance: params.BeaconConfig().MaxEffectiveBalance,
			ActivationEpoch:  0,
			ExitEpoch:        params.BeaconConfig().FarFutureEpoch,
		}
	}
	mixes := make([][]byte, params.BeaconConfig().EpochsPerHistoricalVector)
	for i := range mixes {
		mixes[i] = make([]byte, 32)
	}
	return &pb.BeaconState{Validators: vals, RandaoMixes: mixes}
}

func TestCommitteeCountAtSlot_MinimumOne(t *testing.T) {
	state := validatorsState(1)
	if got := CommitteeCountAtSlot(state, 0); got != 1 {
		t.Errorf("CommitteeCountAtSlot() = %d, want 1", got)
	}
}

func TestCommitteeCountAtSlot_CappedAtMax(t *testing.T) {
	state := validatorsState(1 << 20)
	if got := CommitteeCountAtSlot(state, 0); got != params.BeaconConfig().MaxCommitteesPerSlot {
		t.Errorf("CommitteeCountAtSlot() = %d, want %d", got, params.BeaconConfig().MaxCommitteesPerSlot)
	}
}

func TestBeaconCommittee_PartitionsActiveSet(t *testing.T) {
	state := validatorsState(2048)
	committeesPerSlot := CommitteeCountAtSlot(state, 0)

	seen := make(map[uint64]bool)
	for c := uint64(0); c < committeesPerSlot; c++ {
		committee, err := BeaconCommittee(state, 0, c)
		if err != nil {
			t.Fatalf("BeaconCommittee: %v", err)
		}
		for _, idx := range committee {
			if seen[idx] {
				t.Fatalf("validator %d assigned to more than one committee at slot 0", idx)
			}
			seen[idx] = true
		}
	}
}

func TestAttestingIndices_FiltersByBit(t *testing.T) {
	committee := []uint64{5, 10, 15, 20}
	bits := bitfield.NewBitlist(uint64(len(committee)))
	bits.SetBitAt(0, true)
	bits.SetBitAt(2, true)

	got := AttestingIndices(bits, committee)
	want := []uint64{5, 15}
	if len(got) != len(want) {
		t.Fatalf("AttestingIndices() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("AttestingIndices() = %v, want %v", got, want)
		}
	}
}
