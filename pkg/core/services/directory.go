package services

import (
	"context"
	"fmt"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// StaffSource lists the keyworkers employed at a prison
type StaffSource interface {
	AvailableKeyworkers(ctx context.Context, prisonID string) ([]model.Keyworker, error)
	KeyworkerDetail(ctx context.Context, prisonID string, staffID int64) (model.Keyworker, error)
}

// AllocationStore holds the allocation records owned by this service
type AllocationStore interface {
	AllocationHistoryForOffender(ctx context.Context, offenderNo string) ([]model.Allocation, error)
	AllocationsForKeyworker(ctx context.Context, staffID int64) ([]model.Allocation, error)
	UnallocatedOffenders(ctx context.Context, prisonID string) ([]string, error)
	ActiveAllocationCounts(ctx context.Context, prisonID string) (map[int64]int, error)
}

// Directory combines a staff source with the local allocation store.
// Allocation counts always come from the store, since the staff source has no
// knowledge of allocations made here.
type Directory struct {
	staff StaffSource
	store AllocationStore
}

// NewDirectory creates a Directory
func NewDirectory(staff StaffSource, store AllocationStore) *Directory {
	return &Directory{
		staff: staff,
		store: store,
	}
}

// AvailableKeyworkers returns active keyworkers who accept auto-allocation, with current allocation counts
func (d *Directory) AvailableKeyworkers(ctx context.Context, prisonID string) ([]model.Keyworker, error) {
	staff, err := d.staff.AvailableKeyworkers(ctx, prisonID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch keyworkers for prison %s: %w", prisonID, err)
	}

	counts, err := d.store.ActiveAllocationCounts(ctx, prisonID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocation counts for prison %s: %w", prisonID, err)
	}

	available := make([]model.Keyworker, 0, len(staff))
	for _, keyworker := range staff {
		if keyworker.Status != model.KeyworkerStatusActive || !keyworker.AutoAllocationAllowed {
			continue
		}
		keyworker.NumberAllocated = counts[keyworker.StaffID]
		available = append(available, keyworker)
	}

	return available, nil
}

// KeyworkerDetail returns a single keyworker with their current allocation count
func (d *Directory) KeyworkerDetail(ctx context.Context, prisonID string, staffID int64) (model.Keyworker, error) {
	keyworker, err := d.staff.KeyworkerDetail(ctx, prisonID, staffID)
	if err != nil {
		return model.Keyworker{}, fmt.Errorf("failed to fetch keyworker %d: %w", staffID, err)
	}

	counts, err := d.store.ActiveAllocationCounts(ctx, prisonID)
	if err != nil {
		return model.Keyworker{}, fmt.Errorf("failed to fetch allocation counts for prison %s: %w", prisonID, err)
	}
	keyworker.NumberAllocated = counts[staffID]

	return keyworker, nil
}

func (d *Directory) AllocationHistoryForOffender(ctx context.Context, offenderNo string) ([]model.Allocation, error) {
	return d.store.AllocationHistoryForOffender(ctx, offenderNo)
}

func (d *Directory) AllocationsForKeyworker(ctx context.Context, staffID int64) ([]model.Allocation, error) {
	return d.store.AllocationsForKeyworker(ctx, staffID)
}

func (d *Directory) UnallocatedOffenders(ctx context.Context, prisonID string) ([]string, error) {
	return d.store.UnallocatedOffenders(ctx, prisonID)
}
