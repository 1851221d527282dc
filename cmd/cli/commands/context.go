package commands

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jakechorley/keyworker-allocation/internal/config"
	"github.com/jakechorley/keyworker-allocation/pkg/core/services"
	"github.com/jakechorley/keyworker-allocation/pkg/db"
)

// RunMetrics records allocations and per-prison run outcomes
type RunMetrics interface {
	services.AllocationMetrics
	RecordRun(prisonID string, allocated int, err error)
}

// AppContext holds the application dependencies shared across all commands
type AppContext struct {
	Cfg           *config.Config
	Database      db.Database
	Directory     *services.Directory
	AutoAllocator *services.AutoAllocator
	Locks         *services.PrisonLocks
	Metrics       RunMetrics
	Registry      *prometheus.Registry
	Logger        *zap.Logger
	Ctx           context.Context
}

// recordingAllocator records the outcome of every run it performs
type recordingAllocator struct {
	allocator services.PrisonAllocator
	metrics   RunMetrics
}

func (r *recordingAllocator) AutoAllocate(ctx context.Context, prisonID string) (int, error) {
	allocated, err := r.allocator.AutoAllocate(ctx, prisonID)
	r.metrics.RecordRun(prisonID, allocated, err)
	return allocated, err
}

func (app *AppContext) runner() services.PrisonAllocator {
	return &recordingAllocator{allocator: app.AutoAllocator, metrics: app.Metrics}
}
