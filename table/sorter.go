package table

import "sync"

var _ SortControl = (*Sorter)(nil)

// Sorter is an in-memory SortControl driven by header interactions.
type Sorter struct {
	mu      sync.Mutex
	sort    Sort
	changes signal
}

// NewSorter creates a sorter with an initial active field and direction.
func NewSorter(active string, direction Direction) *Sorter {
	return &Sorter{sort: Sort{Active: active, Direction: direction}}
}

// Sort returns the active field and direction.
func (s *Sorter) Sort() Sort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sort
}

// Subscribe registers fn to be called after every sort change.
func (s *Sorter) Subscribe(fn func()) func() {
	return s.changes.subscribe(fn)
}

// SetSort replaces the sort state, notifying subscribers if it changed.
func (s *Sorter) SetSort(active string, direction Direction) {
	next := Sort{Active: active, Direction: direction}
	s.mu.Lock()
	changed := s.sort != next
	s.sort = next
	s.mu.Unlock()

	if changed {
		s.changes.notify()
	}
}

// Toggle mimics a click on a column header: a new field starts ascending, and
// repeated clicks on the same field cycle ascending, descending, none.
// It returns the resulting direction.
func (s *Sorter) Toggle(field string) Direction {
	s.mu.Lock()
	next := Sort{Active: field, Direction: Ascending}
	if s.sort.Active == field {
		switch s.sort.Direction {
		case None:
			next.Direction = Ascending
		case Ascending:
			next.Direction = Descending
		case Descending:
			next.Direction = None
		}
	}
	s.sort = next
	s.mu.Unlock()

	s.changes.notify()
	return next.Direction
}
