package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
	"github.com/jakechorley/keyworker-allocation/pkg/db"
)

const keyworkerColumns = `staff_id, prison_id, first_name, last_name, capacity, status, auto_allocation_allowed`

// AvailableKeyworkers retrieves every keyworker registered at the prison, ordered by staff id.
// Status and auto-allocation filtering is left to the caller.
func (d *DB) AvailableKeyworkers(ctx context.Context, prisonID string) ([]model.Keyworker, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+keyworkerColumns+`
		FROM keyworker
		WHERE prison_id = $1
		ORDER BY staff_id
	`, prisonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query keyworkers: %w", err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[db.Keyworker])
	if err != nil {
		return nil, fmt.Errorf("failed to scan keyworkers: %w", err)
	}

	keyworkers := make([]model.Keyworker, 0, len(records))
	for _, record := range records {
		keyworkers = append(keyworkers, record.ToModel())
	}
	return keyworkers, nil
}

// KeyworkerDetail retrieves a single keyworker
func (d *DB) KeyworkerDetail(ctx context.Context, prisonID string, staffID int64) (model.Keyworker, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+keyworkerColumns+`
		FROM keyworker
		WHERE prison_id = $1 AND staff_id = $2
	`, prisonID, staffID)
	if err != nil {
		return model.Keyworker{}, fmt.Errorf("failed to query keyworker: %w", err)
	}

	record, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[db.Keyworker])
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Keyworker{}, fmt.Errorf("keyworker %d not found in prison %s", staffID, prisonID)
	}
	if err != nil {
		return model.Keyworker{}, fmt.Errorf("failed to scan keyworker: %w", err)
	}

	return record.ToModel(), nil
}

// ActiveAllocationCounts returns the number of active allocations per keyworker in the prison.
// Keyworkers with no active allocations are absent from the map.
func (d *DB) ActiveAllocationCounts(ctx context.Context, prisonID string) (map[int64]int, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT staff_id, COUNT(*)
		FROM offender_keyworker
		WHERE prison_id = $1 AND active
		GROUP BY staff_id
	`, prisonID)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var staffID int64
		var count int
		if err := rows.Scan(&staffID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan allocation count: %w", err)
		}
		counts[staffID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allocation counts: %w", err)
	}

	return counts, nil
}
