package allocator

import (
	"cmp"
	"time"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// member is a keyworker held by the pool together with its derived ranking data
type member struct {
	keyworker model.Keyworker

	// enhancedCapacity is the soft-overflow limit derived from the prison's capacity tiers
	enhancedCapacity int

	// historyLoaded is false until the keyworker's allocations have been fetched
	historyLoaded bool

	// lastAutoAllocation is the most recent auto-allocation, nil if there is none (or not loaded)
	lastAutoAllocation *time.Time
}

// isFull returns true if the keyworker is at or beyond its enhanced capacity
func (m *member) isFull() bool {
	return m.keyworker.NumberAllocated >= m.enhancedCapacity
}

// compareMembers defines the pool ordering. A negative result means a is allocated before b.
//
// Levels, in order:
//  1. members with spare enhanced capacity before full members
//  2. fewer current allocations first
//  3. no auto-allocations at all first, then the oldest most recent auto-allocation
//  4. lower staff id first
func compareMembers(a, b *member) int {
	if c := compareFullness(a, b); c != 0 {
		return c
	}
	if c := cmp.Compare(a.keyworker.NumberAllocated, b.keyworker.NumberAllocated); c != 0 {
		return c
	}
	if c := compareRecency(a, b); c != 0 {
		return c
	}
	return cmp.Compare(a.keyworker.StaffID, b.keyworker.StaffID)
}

func compareFullness(a, b *member) int {
	switch {
	case a.isFull() == b.isFull():
		return 0
	case a.isFull():
		return 1
	default:
		return -1
	}
}

func compareRecency(a, b *member) int {
	switch {
	case a.lastAutoAllocation == nil && b.lastAutoAllocation == nil:
		return 0
	case a.lastAutoAllocation == nil:
		return -1
	case b.lastAutoAllocation == nil:
		return 1
	default:
		return a.lastAutoAllocation.Compare(*b.lastAutoAllocation)
	}
}

// tiedOnLoad returns true if neither fullness nor allocation count separates a and b
func tiedOnLoad(a, b *member) bool {
	return compareFullness(a, b) == 0 && a.keyworker.NumberAllocated == b.keyworker.NumberAllocated
}

// latestAutoAllocation returns the most recent auto-allocation time, nil if there are none
func latestAutoAllocation(allocations []model.Allocation) *time.Time {
	var latest *time.Time
	for _, allocation := range allocations {
		if allocation.Type != model.AllocationTypeAuto {
			continue
		}
		if latest == nil || allocation.AssignedAt.After(*latest) {
			assignedAt := allocation.AssignedAt
			latest = &assignedAt
		}
	}
	return latest
}
