package db

import (
	"context"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// KeyworkerStore defines the keyworker lookups backed by the database
type KeyworkerStore interface {
	AvailableKeyworkers(ctx context.Context, prisonID string) ([]model.Keyworker, error)
	KeyworkerDetail(ctx context.Context, prisonID string, staffID int64) (model.Keyworker, error)
}

// AllocationStore defines the allocation operations backed by the database
type AllocationStore interface {
	AllocationHistoryForOffender(ctx context.Context, offenderNo string) ([]model.Allocation, error)
	AllocationsForKeyworker(ctx context.Context, staffID int64) ([]model.Allocation, error)
	UnallocatedOffenders(ctx context.Context, prisonID string) ([]string, error)
	ActiveAllocationCounts(ctx context.Context, prisonID string) (map[int64]int, error)
	Confirm(ctx context.Context, allocation model.Allocation) error
}

// Database defines the interface for all database operations.
// postgres.DB implements this interface.
type Database interface {
	KeyworkerStore
	AllocationStore
	RunMigrations(ctx context.Context) error
	Close()
}
