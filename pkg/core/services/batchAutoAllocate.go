package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PrisonLocks serialises work per prison. Different prisons never block each other.
type PrisonLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPrisonLocks creates an empty set of per-prison locks
func NewPrisonLocks() *PrisonLocks {
	return &PrisonLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until the prison's lock is held and returns the function that releases it
func (l *PrisonLocks) Lock(prisonID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[prisonID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[prisonID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// PrisonAllocator is the single-prison operation run by a batch
type PrisonAllocator interface {
	AutoAllocate(ctx context.Context, prisonID string) (int, error)
}

// PrisonResult is the outcome of one prison's run within a batch
type PrisonResult struct {
	PrisonID  string
	Allocated int
	Err       error
}

// BatchAutoAllocate runs auto-allocation for each prison, up to concurrency prisons at a time.
// Each run holds the prison's lock, so overlapping batches never allocate the same prison at once.
// A failing prison does not stop the others. Results are returned in the order of prisonIDs.
func BatchAutoAllocate(
	ctx context.Context,
	runner PrisonAllocator,
	locks *PrisonLocks,
	prisonIDs []string,
	concurrency int,
	logger *zap.Logger,
) []PrisonResult {
	results := make([]PrisonResult, len(prisonIDs))

	group, groupCtx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		group.SetLimit(concurrency)
	}

	for i, prisonID := range prisonIDs {
		group.Go(func() error {
			unlock := locks.Lock(prisonID)
			defer unlock()

			allocated, err := runner.AutoAllocate(groupCtx, prisonID)
			results[i] = PrisonResult{PrisonID: prisonID, Allocated: allocated, Err: err}

			if err != nil {
				logger.Error("Auto-allocation failed",
					zap.String("prison_id", prisonID),
					zap.Int("allocated", allocated),
					zap.Error(err))
			}
			return nil
		})
	}

	// Errors are collected per prison, never returned from the group
	_ = group.Wait()

	total := 0
	failed := 0
	for _, result := range results {
		total += result.Allocated
		if result.Err != nil {
			failed++
		}
	}
	logger.Info("Batch auto-allocation complete",
		zap.Int("prisons", len(prisonIDs)),
		zap.Int("failed", failed),
		zap.Int("allocated", total))

	return results
}
