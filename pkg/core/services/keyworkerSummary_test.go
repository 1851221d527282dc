package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

func TestDescribeKeyworker(t *testing.T) {
	older := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	manual := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	directory := &mockDirectory{
		keyworkers: []model.Keyworker{keyworker(7, 6, 3)},
		keyworkerAllocations: map[int64][]model.Allocation{
			7: {
				{OffenderNo: "A1111AA", StaffID: 7, PrisonID: "MDI", AssignedAt: older, Type: model.AllocationTypeAuto, Active: true},
				{OffenderNo: "A2222AA", StaffID: 7, PrisonID: "MDI", AssignedAt: newer, Type: model.AllocationTypeAuto, Active: true},
				{OffenderNo: "A3333AA", StaffID: 7, PrisonID: "MDI", AssignedAt: manual, Type: model.AllocationTypeManual, Active: true},
				{OffenderNo: "A4444AA", StaffID: 7, PrisonID: "LEI", AssignedAt: manual, Type: model.AllocationTypeAuto, Active: true},
			},
		},
	}

	summary, err := DescribeKeyworker(context.Background(), directory, zap.NewNop(), "MDI", 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), summary.Keyworker.StaffID)
	assert.Equal(t, 2, summary.AllocationsByType[model.AllocationTypeAuto])
	assert.Equal(t, 1, summary.AllocationsByType[model.AllocationTypeManual])
	require.NotNil(t, summary.LastAutoAllocation)
	assert.Equal(t, newer, *summary.LastAutoAllocation, "manual and other-prison allocations must not count")
}

func TestDescribeKeyworker_NoAutoAllocations(t *testing.T) {
	directory := &mockDirectory{keyworkers: []model.Keyworker{keyworker(7, 6, 0)}}

	summary, err := DescribeKeyworker(context.Background(), directory, zap.NewNop(), "MDI", 7)
	require.NoError(t, err)
	assert.Nil(t, summary.LastAutoAllocation)
	assert.Empty(t, summary.AllocationsByType)
}

func TestDescribeKeyworker_Errors(t *testing.T) {
	detailErr := errors.New("unknown staff")
	_, err := DescribeKeyworker(context.Background(), &mockDirectory{detailErr: detailErr}, zap.NewNop(), "MDI", 7)
	assert.ErrorIs(t, err, detailErr)

	allocationsErr := errors.New("db down")
	directory := &mockDirectory{
		keyworkers:     []model.Keyworker{keyworker(7, 6, 0)},
		allocationsErr: allocationsErr,
	}
	_, err = DescribeKeyworker(context.Background(), directory, zap.NewNop(), "MDI", 7)
	assert.ErrorIs(t, err, allocationsErr)
	assert.Contains(t, err.Error(), "keyworker 7")
}
