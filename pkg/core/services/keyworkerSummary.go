package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// KeyworkerSummary describes a keyworker's current allocations
type KeyworkerSummary struct {
	Keyworker          model.Keyworker
	AllocationsByType  map[model.AllocationType]int
	LastAutoAllocation *time.Time
}

// KeyworkerReader is the part of the directory needed to describe a keyworker
type KeyworkerReader interface {
	KeyworkerDetail(ctx context.Context, prisonID string, staffID int64) (model.Keyworker, error)
	AllocationsForKeyworker(ctx context.Context, staffID int64) ([]model.Allocation, error)
}

// DescribeKeyworker fetches a keyworker and summarises their allocations in the prison
func DescribeKeyworker(ctx context.Context, directory KeyworkerReader, logger *zap.Logger, prisonID string, staffID int64) (*KeyworkerSummary, error) {
	logger.Debug("Describing keyworker", zap.String("prison_id", prisonID), zap.Int64("staff_id", staffID))

	keyworker, err := directory.KeyworkerDetail(ctx, prisonID, staffID)
	if err != nil {
		return nil, err
	}

	allocations, err := directory.AllocationsForKeyworker(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocations for keyworker %d: %w", staffID, err)
	}

	summary := &KeyworkerSummary{
		Keyworker:         keyworker,
		AllocationsByType: make(map[model.AllocationType]int),
	}

	for _, allocation := range allocations {
		if allocation.PrisonID != "" && allocation.PrisonID != prisonID {
			continue
		}
		summary.AllocationsByType[allocation.Type]++

		if allocation.Type == model.AllocationTypeAuto &&
			(summary.LastAutoAllocation == nil || allocation.AssignedAt.After(*summary.LastAutoAllocation)) {
			assignedAt := allocation.AssignedAt
			summary.LastAutoAllocation = &assignedAt
		}
	}

	logger.Debug("Keyworker summary built",
		zap.Int64("staff_id", staffID),
		zap.Int("allocations", len(allocations)))

	return summary, nil
}
