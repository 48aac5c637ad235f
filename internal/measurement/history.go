package measurement

// History is a bounded list of finished measurements, oldest first.
type History struct {
	capacity int
	items    []Measurement
}

// NewHistory creates a history keeping at most capacity measurements.
// Capacities below one are treated as one.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = 1
	}
	return &History{capacity: capacity, items: make([]Measurement, 0, capacity)}
}

// Push appends m and returns the measurements dropped to stay within capacity.
func (h *History) Push(m Measurement) []Measurement {
	var evicted []Measurement
	for len(h.items) >= h.capacity {
		evicted = append(evicted, h.items[0])
		h.items = append(h.items[:0], h.items[1:]...)
	}
	h.items = append(h.items, m)
	return evicted
}

// RemoveWhere drops every measurement matching pred and returns them.
func (h *History) RemoveWhere(pred func(Measurement) bool) []Measurement {
	var removed []Measurement
	kept := h.items[:0]
	for _, m := range h.items {
		if pred(m) {
			removed = append(removed, m)
			continue
		}
		kept = append(kept, m)
	}
	h.items = kept
	return removed
}

// Clear empties the history and returns what it held.
func (h *History) Clear() []Measurement {
	out := h.Items()
	h.items = h.items[:0]
	return out
}

// Items returns a copy of the measurements, oldest first.
func (h *History) Items() []Measurement {
	out := make([]Measurement, len(h.items))
	copy(out, h.items)
	return out
}

// Len returns the number of stored measurements.
func (h *History) Len() int {
	return len(h.items)
}

// Cap returns the history capacity.
func (h *History) Cap() int {
	return h.capacity
}
