package db

import (
	"time"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// Keyworker represents a keyworker row. Column names match the db tags for pgx.RowToStructByName.
type Keyworker struct {
	StaffID               int64  `db:"staff_id"`
	PrisonID              string `db:"prison_id"`
	FirstName             string `db:"first_name"`
	LastName              string `db:"last_name"`
	Capacity              int    `db:"capacity"`
	Status                string `db:"status"`
	AutoAllocationAllowed bool   `db:"auto_allocation_allowed"`
}

// ToModel converts the row to a domain keyworker. NumberAllocated is left at zero;
// counts come from the allocation table.
func (k Keyworker) ToModel() model.Keyworker {
	return model.Keyworker{
		StaffID:               k.StaffID,
		FirstName:             k.FirstName,
		LastName:              k.LastName,
		Capacity:              k.Capacity,
		Status:                model.KeyworkerStatus(k.Status),
		AutoAllocationAllowed: k.AutoAllocationAllowed,
	}
}

// Allocation represents an offender_keyworker row
type Allocation struct {
	ID             string     `db:"id"`
	OffenderNo     string     `db:"offender_no"`
	StaffID        int64      `db:"staff_id"`
	PrisonID       string     `db:"prison_id"`
	AssignedAt     time.Time  `db:"assigned_at"`
	AllocationType string     `db:"allocation_type"`
	Active         bool       `db:"active"`
	ExpiredAt      *time.Time `db:"expired_at"`
}

// ToModel converts the row to a domain allocation
func (a Allocation) ToModel() model.Allocation {
	return model.Allocation{
		ID:         a.ID,
		OffenderNo: a.OffenderNo,
		StaffID:    a.StaffID,
		PrisonID:   a.PrisonID,
		AssignedAt: a.AssignedAt,
		Type:       model.AllocationType(a.AllocationType),
		Active:     a.Active,
	}
}

// AllocationsToModel converts a slice of rows
func AllocationsToModel(rows []Allocation) []model.Allocation {
	allocations := make([]model.Allocation, 0, len(rows))
	for _, row := range rows {
		allocations = append(allocations, row.ToModel())
	}
	return allocations
}
