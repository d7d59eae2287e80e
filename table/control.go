package table

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
)

var (
	// ErrInvalidDirection is returned when a sort direction string cannot be parsed.
	ErrInvalidDirection = errors.New("invalid sort direction")

	// ErrInvalidPage is returned when a page index or page size is out of range.
	ErrInvalidPage = errors.New("invalid page")
)

// Direction is the order applied by a sort control.
type Direction int

const (
	// None keeps the filtered order untouched.
	None Direction = iota
	// Ascending sorts rows from the smallest key to the largest.
	Ascending
	// Descending sorts rows from the largest key to the smallest.
	Descending
)

// String returns the short form used on the wire and in config ("asc", "desc" or "").
func (d Direction) String() string {
	switch d {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return ""
	}
}

// ParseDirection parses "asc", "desc" or an empty string (none).
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return None, nil
	case "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	}
	return None, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Sort is the state of a sort control.
type Sort struct {
	Active    string    `json:"active"`    // Field name the rows are sorted by
	Direction Direction `json:"direction"` // Sort direction, None disables sorting
}

// Page is the state of a page control. Index is 0-based.
type Page struct {
	Index int `json:"index"`
	Size  int `json:"size"`
}

// Start returns the offset of the first row on the page. It saturates at
// math.MaxInt instead of overflowing.
func (p Page) Start() int {
	if p.Index <= 0 || p.Size <= 0 {
		return 0
	}
	if p.Index > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return p.Index * p.Size
}

// PageControl is the pagination capability a DataSource consumes.
type PageControl interface {
	// Page returns the current page index and size.
	Page() Page
	// FirstPage moves the control to page 0, notifying subscribers if it moved.
	FirstPage()
	// Subscribe registers fn to be called after every page change.
	Subscribe(fn func()) (unsubscribe func())
}

// SortControl is the sorting capability a DataSource consumes.
type SortControl interface {
	// Sort returns the active field and direction.
	Sort() Sort
	// Subscribe registers fn to be called after every sort change.
	Subscribe(fn func()) (unsubscribe func())
}

type listener struct {
	id int
	fn func()
}

// signal is a synchronous change notifier. Listeners run in subscription order
// on the goroutine that called notify, outside the signal's lock.
type signal struct {
	mu        sync.Mutex
	nextID    int
	listeners []listener
}

func (s *signal) subscribe(fn func()) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *signal) notify() {
	s.mu.Lock()
	fns := make([]func(), len(s.listeners))
	for i, l := range s.listeners {
		fns[i] = l.fn
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
