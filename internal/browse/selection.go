package browse

import (
	"sort"
	"sync"
)

// Selection is the set of ids picked for a bulk action
type Selection struct {
	mu  sync.Mutex
	ids map[int64]bool
}

// NewSelection returns an empty selection
func NewSelection() *Selection {
	return &Selection{ids: make(map[int64]bool)}
}

// Toggle adds or removes id and reports whether it is now selected
func (s *Selection) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ids[id] {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = true
	return true
}

// ToggleAll selects exactly the visible ids, or clears the selection when
// every visible id is already selected
func (s *Selection) ToggleAll(visible []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	allSelected := len(visible) > 0 && len(s.ids) == len(visible)
	if allSelected {
		for _, id := range visible {
			if !s.ids[id] {
				allSelected = false
				break
			}
		}
	}

	s.ids = make(map[int64]bool, len(visible))
	if allSelected {
		return
	}
	for _, id := range visible {
		s.ids[id] = true
	}
}

// Clear empties the selection
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[int64]bool)
}

// Deselect removes ids from the selection
func (s *Selection) Deselect(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.ids, id)
	}
}

// Has reports whether id is selected
func (s *Selection) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ids[id]
}

// Len returns the number of selected ids
func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the selected ids in ascending order
func (s *Selection) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// sameMembers reports whether a and b hold the same ids, ignoring order
func sameMembers(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	set := idSet(a)
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return true
}
