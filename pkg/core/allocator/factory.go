package allocator

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// PoolFactory builds pools for auto-allocation runs
type PoolFactory struct {
	source AllocationSource
	logger *zap.Logger
}

// NewPoolFactory creates a factory whose pools read allocation history from source
func NewPoolFactory(source AllocationSource, logger *zap.Logger) *PoolFactory {
	return &PoolFactory{
		source: source,
		logger: logger,
	}
}

// Build creates a pool for the prison from the given keyworkers and capacity tiers
func (f *PoolFactory) Build(prisonID string, tiers model.CapacityTiers, keyworkers []model.Keyworker) (*Pool, error) {
	pool, err := NewPool(f.source, tiers, keyworkers, prisonID)
	if err != nil {
		f.logger.Warn("Rejected keyworker pool input",
			zap.String("prison_id", prisonID),
			zap.Int("keyworkers", len(keyworkers)),
			zap.Error(err))
		return nil, fmt.Errorf("failed to build keyworker pool for prison %s: %w", prisonID, err)
	}

	f.logger.Debug("Built keyworker pool",
		zap.String("prison_id", prisonID),
		zap.Int("keyworkers", pool.Size()),
		zap.Int("tier1", tiers.Tier1),
		zap.Bool("two_tiers", tiers.Tier2 != nil))

	return pool, nil
}
