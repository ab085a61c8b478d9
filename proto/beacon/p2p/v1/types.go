// Package v1 defines the wire-level Phase-0 beacon chain data types
// consumed by the epoch transition: BeaconState and its nested records.
//
// These are hand-written plain Go structs rather than generated protobuf
// code: the generated gogoproto sources that normally live at this import
// path are not part of this build (no SSZ/protobuf codegen is run here),
// but the import path is kept stable so every core/* package that imports
// "github.com/eth2serenity/beacon-epoch/proto/beacon/p2p/v1" as pb still
// resolves unmodified.
package v1

import (
	bitfield "github.com/prysmaticlabs/go-bitfield"
)

// Fork tracks the current and previous versioning of the chain.
type Fork struct {
	PreviousVersion []byte
	CurrentVersion  []byte
	Epoch           uint64
}

// Checkpoint identifies a canonical block at an epoch boundary.
type Checkpoint struct {
	Epoch uint64
	Root  []byte
}

// Eth1Data represents ETH1 deposit chain data observed by validators.
type Eth1Data struct {
	DepositRoot  []byte
	DepositCount uint64
	BlockHash    []byte
}

// Validator represents a beacon chain validator record.
type Validator struct {
	PublicKey                  []byte
	WithdrawalCredentials      []byte
	EffectiveBalance           uint64
	Slashed                    bool
	ActivationEligibilityEpoch uint64
	ActivationEpoch            uint64
	ExitEpoch                  uint64
	WithdrawableEpoch          uint64
}

// AttestationData is the payload an attestation votes for.
type AttestationData struct {
	Slot            uint64
	Index           uint64
	BeaconBlockRoot []byte
	Source          *Checkpoint
	Target          *Checkpoint
	TargetRoot      []byte
}

// PendingAttestation is an attestation recorded into the epoch-scoped
// attestation pools, awaiting inclusion reward processing.
type PendingAttestation struct {
	AggregationBits bitfield.Bitlist
	Data            *AttestationData
	InclusionDelay  uint64
	ProposerIndex   uint64
}

// HistoricalBatch is the unit committed into HistoricalRoots every
// SLOTS_PER_HISTORICAL_ROOT slots.
type HistoricalBatch struct {
	BlockRoots [][]byte
	StateRoots [][]byte
}

// BeaconState is the monolithic Phase-0 beacon chain state. Field names
// mirror the teacher's generated protobuf struct so helper code written
// against it (BeaconProposerIndex, ProcessSlashings, ...) needs no renaming.
type BeaconState struct {
	GenesisTime      uint64
	Slot             uint64
	Fork             *Fork
	Eth1Data         *Eth1Data
	Eth1DataVotes    []*Eth1Data
	Eth1DepositIndex uint64

	Validators []*Validator
	Balances   []uint64

	RandaoMixes [][]byte

	Slashings []uint64

	PreviousEpochAttestations []*PendingAttestation
	CurrentEpochAttestations  []*PendingAttestation

	JustificationBits           []byte
	PreviousJustifiedCheckpoint *Checkpoint
	CurrentJustifiedCheckpoint  *Checkpoint
	FinalizedCheckpoint         *Checkpoint

	BlockRoots      [][]byte
	StateRoots      [][]byte
	HistoricalRoots [][]byte
}
