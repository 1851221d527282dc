package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/keyworker-allocation/pkg/core/allocator"
	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// KeyworkerDirectory supplies keyworkers, offenders and allocation history for a prison
type KeyworkerDirectory interface {
	AvailableKeyworkers(ctx context.Context, prisonID string) ([]model.Keyworker, error)
	KeyworkerDetail(ctx context.Context, prisonID string, staffID int64) (model.Keyworker, error)
	AllocationHistoryForOffender(ctx context.Context, offenderNo string) ([]model.Allocation, error)
	AllocationsForKeyworker(ctx context.Context, staffID int64) ([]model.Allocation, error)
	UnallocatedOffenders(ctx context.Context, prisonID string) ([]string, error)
}

// AllocationRecorder persists confirmed allocations
type AllocationRecorder interface {
	Confirm(ctx context.Context, allocation model.Allocation) error
}

// AllocationMetrics counts allocations made by the engine
type AllocationMetrics interface {
	IncrementAutoAllocationCounter()
}

// PrisonPolicy answers per-prison configuration questions
type PrisonPolicy interface {
	AutoAllocationSupported(ctx context.Context, prisonID string) (bool, error)
	CapacityTiers(ctx context.Context, prisonID string) (model.CapacityTiers, error)
}

// AutoAllocator runs auto-allocation passes for a prison.
//
// Runs for the same prison must not overlap; callers serialise them (see PrisonLocks).
type AutoAllocator struct {
	directory KeyworkerDirectory
	recorder  AllocationRecorder
	policy    PrisonPolicy
	metrics   AllocationMetrics
	factory   *allocator.PoolFactory
	logger    *zap.Logger
	now       func() time.Time
}

// NewAutoAllocator creates an AutoAllocator
func NewAutoAllocator(
	directory KeyworkerDirectory,
	recorder AllocationRecorder,
	policy PrisonPolicy,
	metrics AllocationMetrics,
	logger *zap.Logger,
) *AutoAllocator {
	return &AutoAllocator{
		directory: directory,
		recorder:  recorder,
		policy:    policy,
		metrics:   metrics,
		factory:   allocator.NewPoolFactory(directory, logger),
		logger:    logger,
		now:       time.Now,
	}
}

// AutoAllocate allocates a keyworker to every unallocated offender in the prison, in the
// order the directory returns them.
//
// Returns the number of offenders allocated. If keyworker capacity runs out part way through,
// the count so far is returned together with an allocator.CapacityExhaustedError carrying the
// same count. Any collaborator failure stops the run and is returned wrapped with the count.
func (a *AutoAllocator) AutoAllocate(ctx context.Context, prisonID string) (int, error) {
	logger := a.logger.With(zap.String("prison_id", prisonID))
	logger.Debug("Starting auto-allocation")

	supported, err := a.policy.AutoAllocationSupported(ctx, prisonID)
	if err != nil {
		return 0, fmt.Errorf("failed to check auto-allocation policy for prison %s: %w", prisonID, err)
	}
	if !supported {
		return 0, &PrisonNotSupportedError{PrisonID: prisonID}
	}

	// Step 1: Offenders without an active keyworker
	logger.Debug("Fetching unallocated offenders")
	offenders, err := a.directory.UnallocatedOffenders(ctx, prisonID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch unallocated offenders: %w", err)
	}
	logger.Debug("Found unallocated offenders", zap.Int("count", len(offenders)))

	if len(offenders) == 0 {
		logger.Info("No unallocated offenders, nothing to do")
		return 0, nil
	}

	// Step 2: Keyworkers who can take allocations
	logger.Debug("Fetching available keyworkers")
	keyworkers, err := a.directory.AvailableKeyworkers(ctx, prisonID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch available keyworkers: %w", err)
	}
	logger.Debug("Found available keyworkers", zap.Int("count", len(keyworkers)))

	if len(keyworkers) == 0 {
		return 0, &NoAvailableKeyworkersError{PrisonID: prisonID}
	}

	// Step 3: Build the pool
	tiers, err := a.policy.CapacityTiers(ctx, prisonID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch capacity tiers for prison %s: %w", prisonID, err)
	}

	pool, err := a.factory.Build(prisonID, tiers, keyworkers)
	if err != nil {
		return 0, err
	}

	// Step 4: Allocate offenders one at a time
	allocated := 0
	for _, offenderNo := range offenders {
		keyworker, err := pool.Pick(ctx, offenderNo)
		if err != nil {
			var exhausted *allocator.CapacityExhaustedError
			if errors.As(err, &exhausted) {
				logger.Warn("Keyworker capacity exhausted",
					zap.Int("allocated", allocated),
					zap.Int("unallocated", len(offenders)-allocated))
				return allocated, &allocator.CapacityExhaustedError{PrisonID: prisonID, Allocated: allocated}
			}
			return allocated, a.stopped(prisonID, allocated, err)
		}

		allocation := model.Allocation{
			OffenderNo: offenderNo,
			StaffID:    keyworker.StaffID,
			PrisonID:   prisonID,
			AssignedAt: a.now(),
			Type:       model.AllocationTypeAuto,
			Active:     true,
		}
		if err := a.recorder.Confirm(ctx, allocation); err != nil {
			return allocated, a.stopped(prisonID, allocated, fmt.Errorf("failed to confirm allocation of %s to keyworker %d: %w",
				offenderNo, keyworker.StaffID, err))
		}

		a.incrementMetric(logger)

		if err := pool.Commit(keyworker); err != nil {
			return allocated, a.stopped(prisonID, allocated, err)
		}
		allocated++

		logger.Debug("Allocated offender",
			zap.String("offender_no", offenderNo),
			zap.Int64("staff_id", keyworker.StaffID))
	}

	logger.Info("Auto-allocation complete", zap.Int("allocated", allocated))

	return allocated, nil
}

func (a *AutoAllocator) stopped(prisonID string, allocated int, err error) error {
	return fmt.Errorf("auto-allocation for prison %s stopped after %d allocations: %w", prisonID, allocated, err)
}

// incrementMetric records an allocation. Metrics are best effort and never fail a run.
func (a *AutoAllocator) incrementMetric(logger *zap.Logger) {
	if a.metrics == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Failed to record auto-allocation metric", zap.Any("panic", r))
		}
	}()
	a.metrics.IncrementAutoAllocationCounter()
}
