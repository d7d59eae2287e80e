package table

import (
	"fmt"
	"sync"
)

// DefaultPageSize is used when a Paginator is created with a non-positive size.
const DefaultPageSize = 10

var _ PageControl = (*Paginator)(nil)

// Paginator is an in-memory PageControl. It behaves like a material table
// paginator: subscribers are notified only when the page actually changes, and
// the length (number of filtered rows) is informational and set by the consumer.
type Paginator struct {
	mu      sync.Mutex
	index   int
	size    int
	length  int
	changes signal
}

// NewPaginator creates a paginator positioned on the first page.
func NewPaginator(size int) *Paginator {
	if size <= 0 {
		size = DefaultPageSize
	}
	return &Paginator{size: size}
}

// Page returns the current page index and size.
func (p *Paginator) Page() Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Page{Index: p.index, Size: p.size}
}

// Subscribe registers fn to be called after every page change.
func (p *Paginator) Subscribe(fn func()) func() {
	return p.changes.subscribe(fn)
}

// Length returns the row count last reported by the consumer.
func (p *Paginator) Length() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.length
}

// SetLength records the number of rows available for paging. It does not emit
// a page change.
func (p *Paginator) SetLength(length int) {
	if length < 0 {
		length = 0
	}
	p.mu.Lock()
	p.length = length
	p.mu.Unlock()
}

// PageCount returns the number of pages needed to show Length rows.
func (p *Paginator) PageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageCount()
}

func (p *Paginator) pageCount() int {
	if p.size == 0 {
		return 0
	}
	return (p.length + p.size - 1) / p.size
}

// HasNextPage reports whether a page exists after the current one.
func (p *Paginator) HasNextPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index+1 < p.pageCount()
}

// HasPreviousPage reports whether the current page is past the first.
func (p *Paginator) HasPreviousPage() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index > 0
}

// SetPage moves to the given page. Indexes past the last page are allowed and
// produce empty emissions.
func (p *Paginator) SetPage(index int) error {
	if index < 0 {
		return fmt.Errorf("%w: index %d", ErrInvalidPage, index)
	}
	p.update(func() bool {
		if p.index == index {
			return false
		}
		p.index = index
		return true
	})
	return nil
}

// SetPageSize changes the page size, keeping the first row of the current page
// visible on the new page.
func (p *Paginator) SetPageSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: size %d", ErrInvalidPage, size)
	}
	p.update(func() bool {
		if p.size == size {
			return false
		}
		p.index = Page{Index: p.index, Size: p.size}.Start() / size
		p.size = size
		return true
	})
	return nil
}

// NextPage advances one page if there is one. It reports whether it moved.
func (p *Paginator) NextPage() bool {
	return p.update(func() bool {
		if p.index+1 >= p.pageCount() {
			return false
		}
		p.index++
		return true
	})
}

// PreviousPage goes back one page if there is one. It reports whether it moved.
func (p *Paginator) PreviousPage() bool {
	return p.update(func() bool {
		if p.index == 0 {
			return false
		}
		p.index--
		return true
	})
}

// FirstPage moves to page 0.
func (p *Paginator) FirstPage() {
	p.update(func() bool {
		if p.index == 0 {
			return false
		}
		p.index = 0
		return true
	})
}

// LastPage moves to the last page for the current length.
func (p *Paginator) LastPage() {
	p.update(func() bool {
		last := p.pageCount() - 1
		if last < 0 {
			last = 0
		}
		if p.index == last {
			return false
		}
		p.index = last
		return true
	})
}

// update applies mutate under the lock and notifies subscribers once the lock
// is released if mutate reported a change.
func (p *Paginator) update(mutate func() bool) bool {
	p.mu.Lock()
	changed := mutate()
	p.mu.Unlock()

	if changed {
		p.changes.notify()
	}
	return changed
}
