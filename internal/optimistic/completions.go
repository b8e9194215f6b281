// Package optimistic holds the local projections the UI reads before the
// database has confirmed a change: which habits are completed today and how
// much energy each reward carries.
package optimistic

import (
	"sort"
	"sync"
)

// Completions is the completed-today set for one user. Pending adds and
// removals are tracked next to it so a reload from the database can be merged
// without undoing intents that are still in flight.
//
// A pending removal maps to the cache generation its delete committed at, or
// zero while the delete is still running.
type Completions struct {
	mu              sync.Mutex
	day             string
	today           map[string]struct{}
	pendingAdds     map[string]struct{}
	pendingRemovals map[string]uint64
	invalidate      func()
}

// NewCompletions returns an empty set. invalidate runs after every optimistic
// mutation; pass nil when there is no cache to drop.
func NewCompletions(invalidate func()) *Completions {
	if invalidate == nil {
		invalidate = func() {}
	}
	return &Completions{
		today:           make(map[string]struct{}),
		pendingAdds:     make(map[string]struct{}),
		pendingRemovals: make(map[string]uint64),
		invalidate:      invalidate,
	}
}

// StartDay makes day the day the set describes. When it differs from the
// current one everything is dropped and StartDay reports true.
func (c *Completions) StartDay(day string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.day == day {
		return false
	}
	c.day = day
	c.today = make(map[string]struct{})
	c.pendingAdds = make(map[string]struct{})
	c.pendingRemovals = make(map[string]uint64)
	return true
}

func (c *Completions) Day() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.day
}

func (c *Completions) IsCompletedToday(habitID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.today[habitID]
	return ok
}

// CompletedToday returns the habit IDs in sorted order.
func (c *Completions) CompletedToday() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return keys(c.today)
}

func (c *Completions) OptimisticAdd(habitID string) {
	c.mu.Lock()
	c.today[habitID] = struct{}{}
	c.pendingAdds[habitID] = struct{}{}
	delete(c.pendingRemovals, habitID)
	c.mu.Unlock()

	c.invalidate()
}

func (c *Completions) RollbackAdd(habitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.today, habitID)
	delete(c.pendingAdds, habitID)
}

// ConfirmAdd drops the pending mark once the insert has committed. The habit
// stays in the completed-today set.
func (c *Completions) ConfirmAdd(habitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pendingAdds, habitID)
}

func (c *Completions) OptimisticRemove(habitID string) {
	c.mu.Lock()
	delete(c.today, habitID)
	delete(c.pendingAdds, habitID)
	c.pendingRemovals[habitID] = 0
	c.mu.Unlock()

	c.invalidate()
}

func (c *Completions) RollbackRemove(habitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today[habitID] = struct{}{}
	delete(c.pendingRemovals, habitID)
}

// ConfirmRemove records that the delete for habitID committed before the
// cache reached generation. Removals that are no longer pending are ignored.
func (c *Completions) ConfirmRemove(habitID string, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pendingRemovals[habitID]; ok {
		c.pendingRemovals[habitID] = generation
	}
}

// SettleRemovals clears the removals whose delete committed before a fetch
// at generation started, since that fetch already reflects them. Removals
// still in flight, or confirmed after the fetch began, stay pending. It
// returns the cleared habit IDs.
func (c *Completions) SettleRemovals(generation uint64) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var settled []string
	for id, committed := range c.pendingRemovals {
		if committed != 0 && committed <= generation {
			delete(c.pendingRemovals, id)
			settled = append(settled, id)
		}
	}
	sort.Strings(settled)
	return settled
}

func (c *Completions) ClearOptimisticRemoval(habitID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pendingRemovals, habitID)
}

func (c *Completions) ResetOptimisticRemovals() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingRemovals = make(map[string]uint64)
}

func (c *Completions) PendingRemoval(habitID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.pendingRemovals[habitID]
	return ok
}

// PendingRemovals returns the habit IDs awaiting a confirmed delete.
func (c *Completions) PendingRemovals() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return keys(c.pendingRemovals)
}

// Reconcile replaces the completed-today set with the merge of serverToday and
// the pending local intents, and returns the result.
func (c *Completions) Reconcile(serverToday []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.today = Merge(serverToday, keys(c.pendingAdds), keys(c.pendingRemovals))
	return keys(c.today)
}

// Merge computes (server ∪ adds) \ removals.
func Merge(server, adds, removals []string) map[string]struct{} {
	out := make(map[string]struct{}, len(server)+len(adds))
	for _, id := range server {
		out[id] = struct{}{}
	}
	for _, id := range adds {
		out[id] = struct{}{}
	}
	for _, id := range removals {
		delete(out, id)
	}
	return out
}

func keys[V any](set map[string]V) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
