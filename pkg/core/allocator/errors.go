package allocator

import "fmt"

// InvalidInputError is returned when a pool cannot be built from the supplied keyworkers and tiers
type InvalidInputError struct {
	PrisonID string
	Reason   string
}

func (e *InvalidInputError) Error() string {
	if e.PrisonID == "" {
		return fmt.Sprintf("invalid keyworker pool input: %s", e.Reason)
	}
	return fmt.Sprintf("invalid keyworker pool input for prison %s: %s", e.PrisonID, e.Reason)
}

// CapacityExhaustedError is returned when no keyworker in the pool has spare capacity.
// Allocated is the number of offenders allocated in the run before capacity ran out.
type CapacityExhaustedError struct {
	PrisonID  string
	Allocated int
}

func (e *CapacityExhaustedError) Error() string {
	return fmt.Sprintf("all available keyworkers for prison %s are at full capacity (%d offenders allocated before exhaustion)",
		e.PrisonID, e.Allocated)
}

// NotInPoolError is returned when committing a keyworker the pool does not hold
type NotInPoolError struct {
	StaffID int64
}

func (e *NotInPoolError) Error() string {
	return fmt.Sprintf("keyworker %d is not a member of the allocation pool", e.StaffID)
}
