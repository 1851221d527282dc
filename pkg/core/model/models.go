package model

import "time"

// AllocationType records how an allocation was made
type AllocationType string

const (
	AllocationTypeAuto        AllocationType = "A"
	AllocationTypeManual      AllocationType = "M"
	AllocationTypeProvisional AllocationType = "P"
)

func (t AllocationType) IsValid() bool {
	return t == AllocationTypeAuto || t == AllocationTypeManual || t == AllocationTypeProvisional
}

// KeyworkerStatus is the staff member's availability status in the prison
type KeyworkerStatus string

const (
	KeyworkerStatusActive      KeyworkerStatus = "ACTIVE"
	KeyworkerStatusUnavailable KeyworkerStatus = "UNAVAILABLE_ANNUAL_LEAVE"
	KeyworkerStatusInactive    KeyworkerStatus = "INACTIVE"
)

// Keyworker represents a member of staff who can be allocated offenders
type Keyworker struct {
	StaffID               int64
	FirstName             string
	LastName              string
	Capacity              int
	NumberAllocated       int
	Status                KeyworkerStatus
	AutoAllocationAllowed bool
}

// FullName returns the keyworker's display name
func (k Keyworker) FullName() string {
	return k.FirstName + " " + k.LastName
}

// CapacityTiers holds a prison's capacity configuration.
// Tier2 is nil when the prison only has a single tier.
type CapacityTiers struct {
	Tier1 int
	Tier2 *int
}

// Allocation links one offender to one keyworker
type Allocation struct {
	ID         string
	OffenderNo string
	StaffID    int64
	PrisonID   string
	AssignedAt time.Time
	Type       AllocationType
	Active     bool
}
