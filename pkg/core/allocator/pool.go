package allocator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/jakechorley/keyworker-allocation/pkg/core/model"
)

// AllocationSource provides the allocation history the pool needs to rank keyworkers
type AllocationSource interface {
	AllocationHistoryForOffender(ctx context.Context, offenderNo string) ([]model.Allocation, error)
	AllocationsForKeyworker(ctx context.Context, staffID int64) ([]model.Allocation, error)
}

// Pool holds the available keyworkers for one prison during a single auto-allocation run
// and decides which keyworker receives the next offender.
//
// A Pool is not safe for concurrent use. It must be owned by a single run and discarded
// once the run ends.
type Pool struct {
	source   AllocationSource
	prisonID string
	tiers    model.CapacityTiers

	// members indexes every pool member by staff id
	members map[int64]*member

	// ordered holds the same members sorted by compareMembers.
	// A member's ranking fields must only change while it is removed from this slice.
	ordered []*member

	now func() time.Time
}

// NewPool builds a pool over the given keyworkers.
//
// Returns an InvalidInputError if the prison id is blank, there are no keyworkers,
// a staff id is repeated or the capacity tiers are invalid.
func NewPool(source AllocationSource, tiers model.CapacityTiers, keyworkers []model.Keyworker, prisonID string) (*Pool, error) {
	if strings.TrimSpace(prisonID) == "" {
		return nil, &InvalidInputError{Reason: "prison id must not be blank"}
	}
	if len(keyworkers) == 0 {
		return nil, &InvalidInputError{PrisonID: prisonID, Reason: "no keyworkers supplied"}
	}
	if source == nil {
		return nil, &InvalidInputError{PrisonID: prisonID, Reason: "allocation source must not be nil"}
	}
	if err := validateTiers(tiers); err != nil {
		return nil, &InvalidInputError{PrisonID: prisonID, Reason: err.Error()}
	}

	pool := &Pool{
		source:   source,
		prisonID: prisonID,
		tiers:    tiers,
		members:  make(map[int64]*member, len(keyworkers)),
		ordered:  make([]*member, 0, len(keyworkers)),
		now:      time.Now,
	}

	for _, kw := range keyworkers {
		if _, exists := pool.members[kw.StaffID]; exists {
			return nil, &InvalidInputError{
				PrisonID: prisonID,
				Reason:   fmt.Sprintf("keyworker %d supplied more than once", kw.StaffID),
			}
		}

		m := &member{
			keyworker:        kw,
			enhancedCapacity: enhancedCapacity(kw.Capacity, tiers),
		}
		pool.members[kw.StaffID] = m
		pool.ordered = append(pool.ordered, m)
	}

	slices.SortFunc(pool.ordered, compareMembers)

	return pool, nil
}

func validateTiers(tiers model.CapacityTiers) error {
	if tiers.Tier1 <= 0 {
		return fmt.Errorf("capacity tier 1 must be positive, got %d", tiers.Tier1)
	}
	if tiers.Tier2 != nil && *tiers.Tier2 < tiers.Tier1 {
		return fmt.Errorf("capacity tier 2 (%d) must not be less than tier 1 (%d)", *tiers.Tier2, tiers.Tier1)
	}
	return nil
}

// enhancedCapacity scales a keyworker's capacity by tier2/tier1, truncating.
// With a single tier the capacity is unchanged.
func enhancedCapacity(capacity int, tiers model.CapacityTiers) int {
	if tiers.Tier2 == nil {
		return capacity
	}
	return capacity * *tiers.Tier2 / tiers.Tier1
}

// PrisonID returns the prison this pool was built for
func (p *Pool) PrisonID() string {
	return p.prisonID
}

// Size returns the number of keyworkers in the pool
func (p *Pool) Size() int {
	return len(p.ordered)
}

// Keyworkers returns the pool members in their current allocation order
func (p *Pool) Keyworkers() []model.Keyworker {
	keyworkers := make([]model.Keyworker, len(p.ordered))
	for i, m := range p.ordered {
		keyworkers[i] = m.keyworker
	}
	return keyworkers
}

// EnhancedCapacity returns the soft-overflow capacity of a pool member
func (p *Pool) EnhancedCapacity(staffID int64) (int, bool) {
	m, ok := p.members[staffID]
	if !ok {
		return 0, false
	}
	return m.enhancedCapacity, true
}

// Pick selects the keyworker who should receive the given offender.
//
// If the offender was previously allocated to a pool member, the most recent such
// keyworker is returned as long as they still have spare capacity. Otherwise the
// highest priority member is returned. Returns a CapacityExhaustedError when every
// member is at or beyond its enhanced capacity.
//
// Pick does not change allocation counts; call Commit once the allocation is confirmed.
func (p *Pool) Pick(ctx context.Context, offenderNo string) (model.Keyworker, error) {
	previous, err := p.previousKeyworker(ctx, offenderNo)
	if err != nil {
		return model.Keyworker{}, err
	}
	if previous != nil && !previous.isFull() {
		return previous.keyworker, nil
	}

	if err := p.prioritise(ctx); err != nil {
		return model.Keyworker{}, err
	}

	head := p.ordered[0]
	if head.isFull() {
		return model.Keyworker{}, &CapacityExhaustedError{PrisonID: p.prisonID}
	}

	return head.keyworker, nil
}

// previousKeyworker returns the pool member the offender was most recently allocated to, if any
func (p *Pool) previousKeyworker(ctx context.Context, offenderNo string) (*member, error) {
	history, err := p.source.AllocationHistoryForOffender(ctx, offenderNo)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch allocation history for offender %s: %w", offenderNo, err)
	}

	var latest *model.Allocation
	var previous *member
	for i := range history {
		m, ok := p.members[history[i].StaffID]
		if !ok {
			continue
		}
		if latest == nil || history[i].AssignedAt.After(latest.AssignedAt) {
			latest = &history[i]
			previous = m
		}
	}

	return previous, nil
}

// prioritise loads allocation history for members tied with the head on load.
// Recency only matters between tied members, so history is fetched lazily and at most once.
func (p *Pool) prioritise(ctx context.Context) error {
	head := p.ordered[0]

	var unloaded []*member
	for _, m := range p.ordered {
		if !tiedOnLoad(head, m) {
			break
		}
		if !m.historyLoaded {
			unloaded = append(unloaded, m)
		}
	}

	for _, m := range unloaded {
		allocations, err := p.source.AllocationsForKeyworker(ctx, m.keyworker.StaffID)
		if err != nil {
			return fmt.Errorf("failed to fetch allocations for keyworker %d: %w", m.keyworker.StaffID, err)
		}

		p.remove(m)
		m.lastAutoAllocation = latestAutoAllocation(allocations)
		m.historyLoaded = true
		p.insert(m)
	}

	return nil
}

// Commit records that the keyworker received an allocation and re-ranks them.
// Returns a NotInPoolError if the keyworker is not a member of this pool.
func (p *Pool) Commit(kw model.Keyworker) error {
	m, ok := p.members[kw.StaffID]
	if !ok {
		return &NotInPoolError{StaffID: kw.StaffID}
	}

	p.remove(m)
	m.keyworker.NumberAllocated++
	if m.historyLoaded {
		committedAt := p.now()
		m.lastAutoAllocation = &committedAt
	}
	p.insert(m)

	return nil
}

// remove takes a member out of the ordered slice. Must be called before its ranking fields change.
func (p *Pool) remove(m *member) {
	idx, found := slices.BinarySearchFunc(p.ordered, m, compareMembers)
	if !found || p.ordered[idx] != m {
		idx = slices.Index(p.ordered, m)
		if idx < 0 {
			return
		}
	}
	p.ordered = slices.Delete(p.ordered, idx, idx+1)
}

// insert places a member at its sorted position
func (p *Pool) insert(m *member) {
	idx, _ := slices.BinarySearchFunc(p.ordered, m, compareMembers)
	p.ordered = slices.Insert(p.ordered, idx, m)
}
