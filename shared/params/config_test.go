package params_test

import (
	"testing"

	"github.com/eth2serenity/beacon-epoch/shared/params"
)

func TestBeaconConfig_Singleton(t *testing.T) {
	if params.BeaconConfig().SlotsPerEpoch != 32 {
		t.Errorf("expected mainnet SlotsPerEpoch = 32, got %d", params.BeaconConfig().SlotsPerEpoch)
	}
}

func TestOverrideBeaconConfig_AppliesOverride(t *testing.T) {
	original := params.BeaconConfig()
	defer params.OverrideBeaconConfig(original)

	cfg := params.MainnetConfig()
	cfg.SlotsPerEpoch = 8
	cfg.MinPerEpochChurnLimit = 2
	params.OverrideBeaconConfig(cfg)

	if params.BeaconConfig().SlotsPerEpoch != 8 {
		t.Fatalf("expected overridden SlotsPerEpoch = 8, got %d", params.BeaconConfig().SlotsPerEpoch)
	}
}
