package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
	"github.com/jakechorley/keyworker-allocation/pkg/db"
)

const allocationColumns = `id::text AS id, offender_no, staff_id, prison_id, assigned_at, allocation_type, active, expired_at`

// AllocationHistoryForOffender retrieves every allocation the offender has had, newest first
func (d *DB) AllocationHistoryForOffender(ctx context.Context, offenderNo string) ([]model.Allocation, error) {
	return d.queryAllocations(ctx, `
		SELECT `+allocationColumns+`
		FROM offender_keyworker
		WHERE offender_no = $1
		ORDER BY assigned_at DESC
	`, offenderNo)
}

// AllocationsForKeyworker retrieves the keyworker's active allocations, newest first
func (d *DB) AllocationsForKeyworker(ctx context.Context, staffID int64) ([]model.Allocation, error) {
	return d.queryAllocations(ctx, `
		SELECT `+allocationColumns+`
		FROM offender_keyworker
		WHERE staff_id = $1 AND active
		ORDER BY assigned_at DESC
	`, staffID)
}

func (d *DB) queryAllocations(ctx context.Context, query string, args ...any) ([]model.Allocation, error) {
	rows, err := d.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[db.Allocation])
	if err != nil {
		return nil, fmt.Errorf("failed to scan allocations: %w", err)
	}

	return db.AllocationsToModel(records), nil
}

// UnallocatedOffenders retrieves offenders in the prison with no active keyworker,
// in the order they were received
func (d *DB) UnallocatedOffenders(ctx context.Context, prisonID string) ([]string, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT o.offender_no
		FROM offender o
		WHERE o.prison_id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM offender_keyworker ok
			WHERE ok.offender_no = o.offender_no AND ok.active
		  )
		ORDER BY o.received_at, o.offender_no
	`, prisonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query unallocated offenders: %w", err)
	}

	offenders, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan unallocated offenders: %w", err)
	}
	return offenders, nil
}

// Confirm records an allocation, expiring any active allocation the offender already has.
// An empty allocation ID is replaced with a new UUID.
func (d *DB) Confirm(ctx context.Context, allocation model.Allocation) error {
	if allocation.ID == "" {
		allocation.ID = uuid.New().String()
	}

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE offender_keyworker
		SET active = FALSE, expired_at = $2
		WHERE offender_no = $1 AND active
	`, allocation.OffenderNo, allocation.AssignedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to expire previous allocation for %s: %w", allocation.OffenderNo, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO offender_keyworker (id, offender_no, staff_id, prison_id, assigned_at, allocation_type, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, allocation.ID, allocation.OffenderNo, allocation.StaffID, allocation.PrisonID,
		allocation.AssignedAt.UTC(), string(allocation.Type), allocation.Active)
	if err != nil {
		return fmt.Errorf("failed to insert allocation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
