package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jakechorley/keyworker-allocation/internal/config"
	"github.com/jakechorley/keyworker-allocation/pkg/core/allocator"
	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
	"github.com/jakechorley/keyworker-allocation/pkg/core/services"
	"github.com/jakechorley/keyworker-allocation/pkg/metrics"
)

// fakeDirectory is an in-memory KeyworkerDirectory
type fakeDirectory struct {
	keyworkers []model.Keyworker
	offenders  []string
}

func (f *fakeDirectory) AvailableKeyworkers(ctx context.Context, prisonID string) ([]model.Keyworker, error) {
	return f.keyworkers, nil
}

func (f *fakeDirectory) KeyworkerDetail(ctx context.Context, prisonID string, staffID int64) (model.Keyworker, error) {
	for _, k := range f.keyworkers {
		if k.StaffID == staffID {
			return k, nil
		}
	}
	return model.Keyworker{}, errors.New("not found")
}

func (f *fakeDirectory) AllocationHistoryForOffender(ctx context.Context, offenderNo string) ([]model.Allocation, error) {
	return nil, nil
}

func (f *fakeDirectory) AllocationsForKeyworker(ctx context.Context, staffID int64) ([]model.Allocation, error) {
	return nil, nil
}

func (f *fakeDirectory) UnallocatedOffenders(ctx context.Context, prisonID string) ([]string, error) {
	return f.offenders, nil
}

// fakeRecorder collects confirmed allocations
type fakeRecorder struct {
	confirmed []model.Allocation
}

func (f *fakeRecorder) Confirm(ctx context.Context, allocation model.Allocation) error {
	f.confirmed = append(f.confirmed, allocation)
	return nil
}

// fakeRunMetrics records RecordRun calls
type fakeRunMetrics struct {
	*metrics.NopMetrics
	runs map[string]error
}

func (f *fakeRunMetrics) RecordRun(prisonID string, allocated int, err error) {
	f.runs[prisonID] = err
}

func newTestApp(directory *fakeDirectory, recorder *fakeRecorder) *AppContext {
	cfg := &config.Config{
		Prisons: []config.PrisonConfig{
			{PrisonID: "MDI", AutoAllocation: true, CapacityTiers: config.CapacityTiersConfig{Tier1: 2}},
		},
		BatchSchedule:    "DTSTART=20260101T060000Z;FREQ=DAILY",
		BatchConcurrency: 1,
	}
	runMetrics := &fakeRunMetrics{NopMetrics: metrics.NewNop(), runs: make(map[string]error)}

	return &AppContext{
		Cfg:           cfg,
		AutoAllocator: services.NewAutoAllocator(directory, recorder, config.NewPrisonPolicy(cfg), runMetrics, zap.NewNop()),
		Locks:         services.NewPrisonLocks(),
		Metrics:       runMetrics,
		Logger:        zap.NewNop(),
		Ctx:           context.Background(),
	}
}

func activeKeyworker(staffID int64, capacity int) model.Keyworker {
	return model.Keyworker{
		StaffID:               staffID,
		FirstName:             "Key",
		LastName:              "Worker",
		Capacity:              capacity,
		Status:                model.KeyworkerStatusActive,
		AutoAllocationAllowed: true,
	}
}

func TestAutoAllocateCmd(t *testing.T) {
	directory := &fakeDirectory{
		keyworkers: []model.Keyworker{activeKeyworker(1, 6), activeKeyworker(2, 6)},
		offenders:  []string{"A1111AA", "A2222AA", "A3333AA"},
	}
	recorder := &fakeRecorder{}
	app := newTestApp(directory, recorder)

	cmd := AutoAllocateCmd(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"MDI"})

	require.NoError(t, cmd.Execute())
	assert.Len(t, recorder.confirmed, 3)
	assert.Contains(t, out.String(), "Allocated: 3")

	runMetrics := app.Metrics.(*fakeRunMetrics)
	err, recorded := runMetrics.runs["MDI"]
	assert.True(t, recorded)
	assert.NoError(t, err)
}

func TestAutoAllocateCmd_CapacityExhausted(t *testing.T) {
	// With a single tier the one keyworker can take exactly one offender
	directory := &fakeDirectory{
		keyworkers: []model.Keyworker{activeKeyworker(1, 1)},
		offenders:  []string{"A1111AA", "A2222AA"},
	}
	app := newTestApp(directory, &fakeRecorder{})

	cmd := AutoAllocateCmd(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"MDI"})

	require.NoError(t, cmd.Execute(), "capacity exhaustion is a partial success")
	assert.Contains(t, out.String(), "capacity exhausted")
	assert.Contains(t, out.String(), "Allocated: 1")
}

func TestAutoAllocateCmd_PrisonNotSupported(t *testing.T) {
	app := newTestApp(&fakeDirectory{}, &fakeRecorder{})

	cmd := AutoAllocateCmd(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"LEI"})

	err := cmd.Execute()
	var notSupported *services.PrisonNotSupportedError
	assert.ErrorAs(t, err, &notSupported)
}

func TestPrintBatchResults(t *testing.T) {
	results := []services.PrisonResult{
		{PrisonID: "MDI", Allocated: 4},
		{PrisonID: "LEI", Allocated: 2, Err: &allocator.CapacityExhaustedError{PrisonID: "LEI", Allocated: 2}},
		{PrisonID: "BXI", Err: errors.New("db down")},
	}

	var out bytes.Buffer
	err := printBatchResults(&out, results)

	require.Error(t, err)
	assert.Equal(t, "auto-allocation failed for 1 of 3 prisons", err.Error())
	assert.Contains(t, out.String(), "MDI    4 allocated")
	assert.Contains(t, out.String(), "capacity exhausted")
	assert.Contains(t, out.String(), "db down")
	assert.Contains(t, out.String(), "Total allocated: 6")
}

func TestPrintBatchResults_AllSucceeded(t *testing.T) {
	var out bytes.Buffer
	err := printBatchResults(&out, []services.PrisonResult{{PrisonID: "MDI", Allocated: 1}})
	assert.NoError(t, err)
}

func TestNextRunsCmd(t *testing.T) {
	app := newTestApp(&fakeDirectory{}, &fakeRecorder{})

	cmd := NextRunsCmd(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"3"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), " 1. ")
	assert.Contains(t, out.String(), " 3. ")
	assert.NotContains(t, out.String(), " 4. ")
}

func TestNextRunsCmd_InvalidCount(t *testing.T) {
	app := newTestApp(&fakeDirectory{}, &fakeRecorder{})

	cmd := NextRunsCmd(app)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"zero"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "count must be a positive integer")
}

func TestPrintKeyworkerSummary(t *testing.T) {
	last := time.Date(2026, 2, 5, 10, 0, 0, 0, time.UTC)
	keyworker := activeKeyworker(7, 6)
	keyworker.NumberAllocated = 3

	summary := &services.KeyworkerSummary{
		Keyworker: keyworker,
		AllocationsByType: map[model.AllocationType]int{
			model.AllocationTypeAuto:   2,
			model.AllocationTypeManual: 1,
		},
		LastAutoAllocation: &last,
	}

	var out bytes.Buffer
	printKeyworkerSummary(&out, "MDI", summary)

	assert.Contains(t, out.String(), "Key Worker (7) at MDI")
	assert.Contains(t, out.String(), "Allocated:       3 of 6")
	assert.Contains(t, out.String(), "Auto         2")
	assert.Contains(t, out.String(), "Provisional  0")
	assert.NotContains(t, out.String(), "never")
}
