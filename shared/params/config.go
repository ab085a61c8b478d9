package params

import "sync"

// BeaconChainConfig contains constant configuration values used throughout
// the Phase-0 epoch transition. Every field is a protocol parameter fixed
// at genesis; none are runtime-tunable (spec.md §6, §13's non-goal on
// dynamic re-parameterization).
type BeaconChainConfig struct {
	// Time parameters.
	SlotsPerEpoch                uint64 `yaml:"SLOTS_PER_EPOCH"`
	MinSeedLookahead             uint64 `yaml:"MIN_SEED_LOOKAHEAD"`
	MaxSeedLookhead              uint64 `yaml:"MAX_SEED_LOOKAHEAD"`
	MinEpochsToInactivityPenalty uint64 `yaml:"MIN_EPOCHS_TO_INACTIVITY_PENALTY"`
	MinValidatorWithdrawabilityDelay uint64 `yaml:"MIN_VALIDATOR_WITHDRAWABILITY_DELAY"`
	EpochsPerEth1VotingPeriod    uint64 `yaml:"EPOCHS_PER_ETH1_VOTING_PERIOD"`
	SlotsPerHistoricalRoot       uint64 `yaml:"SLOTS_PER_HISTORICAL_ROOT"`
	EpochsPerHistoricalVector    uint64 `yaml:"EPOCHS_PER_HISTORICAL_VECTOR"`
	EpochsPerSlashingsVector     uint64 `yaml:"EPOCHS_PER_SLASHINGS_VECTOR"`
	HistoricalRootsLimit         uint64 `yaml:"HISTORICAL_ROOTS_LIMIT"`

	// Gwei values.
	MinDepositAmount          uint64 `yaml:"MIN_DEPOSIT_AMOUNT"`
	MaxEffectiveBalance       uint64 `yaml:"MAX_EFFECTIVE_BALANCE"`
	EjectionBalance           uint64 `yaml:"EJECTION_BALANCE"`
	EffectiveBalanceIncrement uint64 `yaml:"EFFECTIVE_BALANCE_INCREMENT"`

	// Reward/penalty quotients.
	BaseRewardFactor          uint64 `yaml:"BASE_REWARD_FACTOR"`
	BaseRewardsPerEpoch       uint64 `yaml:"BASE_REWARDS_PER_EPOCH"`
	ProposerRewardQuotient    uint64 `yaml:"PROPOSER_REWARD_QUOTIENT"`
	InactivityPenaltyQuotient uint64 `yaml:"INACTIVITY_PENALTY_QUOTIENT"`

	// Hysteresis parameters (effective-balance smoothing, spec.md §4.5).
	HysteresisQuotient           uint64 `yaml:"HYSTERESIS_QUOTIENT"`
	HysteresisDownwardMultiplier uint64 `yaml:"HYSTERESIS_DOWNWARD_MULTIPLIER"`
	HysteresisUpwardMultiplier   uint64 `yaml:"HYSTERESIS_UPWARD_MULTIPLIER"`

	// Validator churn.
	MinPerEpochChurnLimit uint64 `yaml:"MIN_PER_EPOCH_CHURN_LIMIT"`
	ChurnLimitQuotient    uint64 `yaml:"CHURN_LIMIT_QUOTIENT"`

	// Committee / shuffling parameters.
	ShuffleRoundCount        uint64 `yaml:"SHUFFLE_ROUND_COUNT"`
	TargetCommitteeSize      uint64 `yaml:"TARGET_COMMITTEE_SIZE"`
	MaxCommitteesPerSlot     uint64 `yaml:"MAX_COMMITTEES_PER_SLOT"`
	MaxValidatorsPerCommittee uint64 `yaml:"MAX_VALIDATORS_PER_COMMITTEE"`

	// Domain types, used by get_seed / get_domain.
	DomainBeaconAttester []byte
	DomainBeaconProposer []byte

	// Sentinels.
	FarFutureEpoch uint64
	ZeroHash       [32]byte
	GenesisEpoch   uint64
	GenesisSlot    uint64
}

var (
	beaconConfig      = mainnetConfig()
	beaconConfigMutex sync.RWMutex
)

// BeaconConfig retrieves the process-wide beacon chain config singleton.
func BeaconConfig() *BeaconChainConfig {
	beaconConfigMutex.RLock()
	defer beaconConfigMutex.RUnlock()
	return beaconConfig
}

// OverrideBeaconConfig swaps the process-wide config singleton. Tests use
// this to install configs with small SlotsPerEpoch/ChurnLimit values; no
// production code path calls it (spec.md §13: no dynamic
// re-parameterization at runtime).
func OverrideBeaconConfig(cfg *BeaconChainConfig) {
	beaconConfigMutex.Lock()
	defer beaconConfigMutex.Unlock()
	beaconConfig = cfg
}

// MainnetConfig returns a fresh copy of the canonical mainnet parameter
// set, suitable for tests to restore after an override.
func MainnetConfig() *BeaconChainConfig {
	return mainnetConfig()
}

func mainnetConfig() *BeaconChainConfig {
	return &BeaconChainConfig{
		SlotsPerEpoch:                     32,
		MinSeedLookahead:                  1,
		MaxSeedLookhead:                   4,
		MinEpochsToInactivityPenalty:      4,
		MinValidatorWithdrawabilityDelay:  256,
		EpochsPerEth1VotingPeriod:         64,
		SlotsPerHistoricalRoot:            8192,
		EpochsPerHistoricalVector:         65536,
		EpochsPerSlashingsVector:          8192,
		HistoricalRootsLimit:              16777216,
		MinDepositAmount:                  1000000000,
		MaxEffectiveBalance:               32000000000,
		EjectionBalance:                   16000000000,
		EffectiveBalanceIncrement:         1000000000,
		BaseRewardFactor:                  64,
		BaseRewardsPerEpoch:               4,
		ProposerRewardQuotient:            8,
		InactivityPenaltyQuotient:         1 << 26,
		HysteresisQuotient:                4,
		HysteresisDownwardMultiplier:      1,
		HysteresisUpwardMultiplier:        5,
		MinPerEpochChurnLimit:             4,
		ChurnLimitQuotient:                1 << 16,
		ShuffleRoundCount:                 90,
		TargetCommitteeSize:               128,
		MaxCommitteesPerSlot:              64,
		MaxValidatorsPerCommittee:         2048,
		DomainBeaconAttester:              []byte{1, 0, 0, 0},
		DomainBeaconProposer:              []byte{0, 0, 0, 0},
		FarFutureEpoch:                    1<<64 - 1,
		GenesisEpoch:                      0,
		GenesisSlot:                       0,
	}
}
