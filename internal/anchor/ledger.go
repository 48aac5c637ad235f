// Package anchor owns the lifetime of runtime anchors tied to measurement points.
//
// The Ledger is the only holder of anchor handles. Everything else refers to
// an anchor by the uuid the ledger hands out, so a handle can be detached
// exactly once no matter how many references to its ID exist.
package anchor

import (
	"github.com/google/uuid"

	"github.com/SomeOppaiBoy/true-scale/internal/ar"
)

// DefaultCapacity is the maximum number of live anchors.
const DefaultCapacity = 10

type entry struct {
	anchor   ar.Anchor
	detached bool
}

func (e *entry) detach() {
	if e.detached {
		return
	}
	e.detached = true
	if e.anchor != nil {
		e.anchor.Detach()
	}
}

// Ledger is a bounded FIFO collection of live anchors. It is not safe for
// concurrent use; the engine serializes access.
type Ledger struct {
	capacity int
	order    []uuid.UUID
	entries  map[uuid.UUID]*entry
}

// NewLedger creates a ledger holding at most capacity anchors.
// Capacities below one fall back to DefaultCapacity.
func NewLedger(capacity int) *Ledger {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Ledger{
		capacity: capacity,
		order:    make([]uuid.UUID, 0, capacity),
		entries:  make(map[uuid.UUID]*entry, capacity),
	}
}

// Insert takes ownership of a and returns its ID. When the ledger is full the
// oldest anchors are detached and dropped first; their IDs are returned so the
// owner can discard the points that referred to them.
func (l *Ledger) Insert(a ar.Anchor) (uuid.UUID, []uuid.UUID) {
	var evicted []uuid.UUID
	for len(l.order) >= l.capacity {
		oldest := l.order[0]
		l.drop(oldest)
		evicted = append(evicted, oldest)
	}

	id := uuid.New()
	l.entries[id] = &entry{anchor: a}
	l.order = append(l.order, id)
	return id, evicted
}

// Remove detaches and drops the anchor with the given ID. Removing an unknown
// or already removed ID is a no-op and returns false.
func (l *Ledger) Remove(id uuid.UUID) bool {
	if _, ok := l.entries[id]; !ok {
		return false
	}
	l.drop(id)
	return true
}

// Clear detaches and drops every anchor, oldest first, and returns how many were dropped.
func (l *Ledger) Clear() int {
	n := len(l.order)
	for _, id := range l.order {
		l.entries[id].detach()
		delete(l.entries, id)
	}
	l.order = l.order[:0]
	return n
}

// Contains reports whether id refers to a live anchor.
func (l *Ledger) Contains(id uuid.UUID) bool {
	_, ok := l.entries[id]
	return ok
}

// Anchor returns the live handle for id.
func (l *Ledger) Anchor(id uuid.UUID) (ar.Anchor, bool) {
	e, ok := l.entries[id]
	if !ok {
		return nil, false
	}
	return e.anchor, true
}

// Len returns the number of live anchors.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Capacity returns the maximum number of live anchors.
func (l *Ledger) Capacity() int {
	return l.capacity
}

// IDs returns the live anchor IDs, oldest first.
func (l *Ledger) IDs() []uuid.UUID {
	out := make([]uuid.UUID, len(l.order))
	copy(out, l.order)
	return out
}

func (l *Ledger) drop(id uuid.UUID) {
	e := l.entries[id]
	e.detach()
	delete(l.entries, id)
	for i, other := range l.order {
		if other == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}
