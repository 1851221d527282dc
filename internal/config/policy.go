package config

import (
	"context"
	"fmt"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// PrisonPolicy answers per-prison auto-allocation questions from the prisons list
type PrisonPolicy struct {
	prisons map[string]PrisonConfig
}

// NewPrisonPolicy creates a PrisonPolicy from a loaded config
func NewPrisonPolicy(cfg *Config) *PrisonPolicy {
	prisons := make(map[string]PrisonConfig, len(cfg.Prisons))
	for _, prison := range cfg.Prisons {
		prisons[prison.PrisonID] = prison
	}
	return &PrisonPolicy{prisons: prisons}
}

// AutoAllocationSupported reports whether auto-allocation is enabled. Unknown prisons are not supported.
func (p *PrisonPolicy) AutoAllocationSupported(ctx context.Context, prisonID string) (bool, error) {
	prison, ok := p.prisons[prisonID]
	return ok && prison.AutoAllocation, nil
}

// CapacityTiers returns the prison's capacity tiers
func (p *PrisonPolicy) CapacityTiers(ctx context.Context, prisonID string) (model.CapacityTiers, error) {
	prison, ok := p.prisons[prisonID]
	if !ok {
		return model.CapacityTiers{}, fmt.Errorf("no capacity tiers configured for prison %s", prisonID)
	}

	tiers := model.CapacityTiers{Tier1: prison.CapacityTiers.Tier1}
	if prison.CapacityTiers.Tier2 != nil {
		tier2 := *prison.CapacityTiers.Tier2
		tiers.Tier2 = &tier2
	}
	return tiers, nil
}
