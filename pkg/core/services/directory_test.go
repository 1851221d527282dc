package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// mockStaffSource implements StaffSource for testing
type mockStaffSource struct {
	keyworkers []model.Keyworker
	listErr    error
	detailErr  error
}

func (m *mockStaffSource) AvailableKeyworkers(ctx context.Context, prisonID string) ([]model.Keyworker, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.keyworkers, nil
}

func (m *mockStaffSource) KeyworkerDetail(ctx context.Context, prisonID string, staffID int64) (model.Keyworker, error) {
	if m.detailErr != nil {
		return model.Keyworker{}, m.detailErr
	}
	for _, k := range m.keyworkers {
		if k.StaffID == staffID {
			return k, nil
		}
	}
	return model.Keyworker{}, errors.New("not found")
}

// mockAllocationStore implements AllocationStore for testing
type mockAllocationStore struct {
	counts      map[int64]int
	offenders   []string
	history     map[string][]model.Allocation
	allocations map[int64][]model.Allocation
	countsErr   error
}

func (m *mockAllocationStore) AllocationHistoryForOffender(ctx context.Context, offenderNo string) ([]model.Allocation, error) {
	return m.history[offenderNo], nil
}

func (m *mockAllocationStore) AllocationsForKeyworker(ctx context.Context, staffID int64) ([]model.Allocation, error) {
	return m.allocations[staffID], nil
}

func (m *mockAllocationStore) UnallocatedOffenders(ctx context.Context, prisonID string) ([]string, error) {
	return m.offenders, nil
}

func (m *mockAllocationStore) ActiveAllocationCounts(ctx context.Context, prisonID string) (map[int64]int, error) {
	if m.countsErr != nil {
		return nil, m.countsErr
	}
	return m.counts, nil
}

func TestDirectory_AvailableKeyworkers_FiltersAndOverlaysCounts(t *testing.T) {
	inactive := keyworker(3, 6, 0)
	inactive.Status = model.KeyworkerStatusInactive
	optedOut := keyworker(4, 6, 0)
	optedOut.AutoAllocationAllowed = false

	staff := &mockStaffSource{
		keyworkers: []model.Keyworker{keyworker(1, 6, 99), keyworker(2, 9, 0), inactive, optedOut},
	}
	store := &mockAllocationStore{counts: map[int64]int{1: 4, 3: 2}}

	available, err := NewDirectory(staff, store).AvailableKeyworkers(context.Background(), "MDI")
	require.NoError(t, err)
	require.Len(t, available, 2)

	assert.Equal(t, int64(1), available[0].StaffID)
	assert.Equal(t, 4, available[0].NumberAllocated, "count should come from the allocation store")
	assert.Equal(t, int64(2), available[1].StaffID)
	assert.Equal(t, 0, available[1].NumberAllocated)
}

func TestDirectory_AvailableKeyworkers_Errors(t *testing.T) {
	listErr := errors.New("staff api down")
	_, err := NewDirectory(&mockStaffSource{listErr: listErr}, &mockAllocationStore{}).
		AvailableKeyworkers(context.Background(), "MDI")
	assert.ErrorIs(t, err, listErr)

	countsErr := errors.New("db down")
	_, err = NewDirectory(&mockStaffSource{keyworkers: []model.Keyworker{keyworker(1, 6, 0)}}, &mockAllocationStore{countsErr: countsErr}).
		AvailableKeyworkers(context.Background(), "MDI")
	assert.ErrorIs(t, err, countsErr)
}

func TestDirectory_KeyworkerDetail(t *testing.T) {
	staff := &mockStaffSource{keyworkers: []model.Keyworker{keyworker(7, 6, 0)}}
	store := &mockAllocationStore{counts: map[int64]int{7: 5}}

	detail, err := NewDirectory(staff, store).KeyworkerDetail(context.Background(), "MDI", 7)
	require.NoError(t, err)
	assert.Equal(t, 5, detail.NumberAllocated)

	_, err = NewDirectory(staff, store).KeyworkerDetail(context.Background(), "MDI", 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keyworker 8")
}

func TestDirectory_DelegatesAllocationQueries(t *testing.T) {
	store := &mockAllocationStore{
		offenders: []string{"A1111AA", "A2222AA"},
		history: map[string][]model.Allocation{
			"A1111AA": {{OffenderNo: "A1111AA", StaffID: 1}},
		},
		allocations: map[int64][]model.Allocation{
			1: {{OffenderNo: "A1111AA", StaffID: 1}, {OffenderNo: "A3333AA", StaffID: 1}},
		},
	}
	directory := NewDirectory(&mockStaffSource{}, store)
	ctx := context.Background()

	offenders, err := directory.UnallocatedOffenders(ctx, "MDI")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1111AA", "A2222AA"}, offenders)

	history, err := directory.AllocationHistoryForOffender(ctx, "A1111AA")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	allocations, err := directory.AllocationsForKeyworker(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, allocations, 2)
}
