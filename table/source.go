package table

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrNotConfigured is returned by Connect when the page or sort control is missing.
	ErrNotConfigured = errors.New("page and sort controls must be set before connecting")

	// ErrNoFetcher is returned by New when no fetcher is given.
	ErrNoFetcher = errors.New("no fetcher defined")
)

// Fetcher loads the full batch of rows for a scope. The order of the returned
// rows carries no meaning.
type Fetcher[T any] interface {
	Fetch(ctx context.Context, scope string) ([]T, error)
}

// FetchFunc adapts a function to the Fetcher interface.
type FetchFunc[T any] func(ctx context.Context, scope string) ([]T, error)

// Fetch calls f(ctx, scope).
func (f FetchFunc[T]) Fetch(ctx context.Context, scope string) ([]T, error) {
	return f(ctx, scope)
}

// FetchError is delivered on the emission stream when the fetcher fails.
type FetchError struct {
	Scope string // Scope of the failed fetch, empty for unscoped sources
	Err   error  // Underlying fetcher error
}

func (e *FetchError) Error() string {
	if e.Scope == "" {
		return fmt.Sprintf("fetching rows: %v", e.Err)
	}
	return fmt.Sprintf("fetching rows for scope %s: %v", e.Scope, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Trigger names the control change that caused an emission.
type Trigger string

const (
	TriggerInitial Trigger = "initial"
	TriggerPage    Trigger = "page"
	TriggerSort    Trigger = "sort"
	TriggerFilter  Trigger = "filter"
)

// Emission is one page of rows produced by the pipeline, together with the
// view state it was computed from. When Err is set the other fields are zero
// and the stream is closed right after.
type Emission[T any] struct {
	Rows          []T     `json:"rows"`
	FilteredCount int     `json:"filteredCount"` // Rows surviving the filter, before paging
	Total         int     `json:"total"`         // Rows in the cached batch
	Page          Page    `json:"page"`
	Sort          Sort    `json:"sort"`
	Filter        string  `json:"filter"`
	Trigger       Trigger `json:"trigger"`
	Err           error   `json:"-"`
}

// DataSource turns a fetched batch plus page, sort and filter controls into a
// live stream of bounded row pages. It is safe for concurrent use.
type DataSource[T any] struct {
	fetcher     Fetcher[T]
	match       MatchFunc[T]
	comparators Comparators[T]
	logger      *slog.Logger

	mu            sync.Mutex
	paginator     PageControl
	sorter        SortControl
	filter        string
	cache         []T
	filteredCount int
	conn          *connection
}

// New creates a DataSource around fetcher and applies options in order.
func New[T any](fetcher Fetcher[T], options ...func(*DataSource[T]) error) (*DataSource[T], error) {
	if fetcher == nil {
		return nil, ErrNoFetcher
	}
	ds := &DataSource[T]{
		fetcher:     fetcher,
		comparators: Comparators[T]{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		if err := option(ds); err != nil {
			return nil, fmt.Errorf("applying option on data source : %w", err)
		}
	}
	return ds, nil
}

// WithMatch sets the filter predicate. Without one, filtering is disabled.
func WithMatch[T any](match MatchFunc[T]) func(*DataSource[T]) error {
	return func(ds *DataSource[T]) error {
		ds.match = match
		return nil
	}
}

// WithComparators sets the comparator table used for sorting.
func WithComparators[T any](comparators Comparators[T]) func(*DataSource[T]) error {
	return func(ds *DataSource[T]) error {
		if comparators == nil {
			return errors.New("comparators cannot be nil")
		}
		ds.comparators = comparators
		return nil
	}
}

// WithLogger sets the logger. A nil logger keeps the discarding default.
func WithLogger[T any](logger *slog.Logger) func(*DataSource[T]) error {
	return func(ds *DataSource[T]) error {
		if logger != nil {
			ds.logger = logger
		}
		return nil
	}
}

// WithControls attaches a page and a sort control.
func WithControls[T any](paginator PageControl, sorter SortControl) func(*DataSource[T]) error {
	return func(ds *DataSource[T]) error {
		ds.SetPaginator(paginator)
		ds.SetSorter(sorter)
		return nil
	}
}

// SetPaginator attaches the page control used by the next Connect.
func (ds *DataSource[T]) SetPaginator(paginator PageControl) {
	ds.mu.Lock()
	ds.paginator = paginator
	ds.mu.Unlock()
}

// SetSorter attaches the sort control used by the next Connect.
func (ds *DataSource[T]) SetSorter(sorter SortControl) {
	ds.mu.Lock()
	ds.sorter = sorter
	ds.mu.Unlock()
}

// Filter returns the last filter text given to SetFilter.
func (ds *DataSource[T]) Filter() string {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.filter
}

// FilteredCount returns the number of rows that survived the filter in the
// latest emission, before paging.
func (ds *DataSource[T]) FilteredCount() int {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.filteredCount
}

// Connected reports whether a connection is open.
func (ds *DataSource[T]) Connected() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.conn != nil
}

// Connect issues one fetch for scope and returns the stream of emissions.
// The first emission is produced as soon as the batch arrives; afterwards one
// emission follows every page, sort or filter change, in arrival order.
//
// The stream stays open until Disconnect, a new Connect, or ctx is done. A
// failed fetch is delivered as a single emission with Err set, after which the
// stream closes. Calling Connect again discards the previous connection and
// its cache.
func (ds *DataSource[T]) Connect(ctx context.Context, scope string) (<-chan Emission[T], error) {
	ds.mu.Lock()
	if ds.paginator == nil || ds.sorter == nil {
		ds.mu.Unlock()
		ds.logger.Error("connecting data source", "scope", scope, "error", ErrNotConfigured)
		return nil, ErrNotConfigured
	}

	ctx, cancel := context.WithCancel(ctx)
	conn := &connection{
		id:     uuid.New(),
		scope:  scope,
		cancel: cancel,
		wake:   make(chan struct{}, 1),
	}
	previous := ds.conn
	ds.conn = conn
	ds.cache = nil
	ds.filteredCount = 0
	ds.mu.Unlock()

	if previous != nil {
		previous.stop()
	}

	out := make(chan Emission[T])
	go ds.run(ctx, conn, out)

	ds.logger.Debug("data source connected", "scope", scope, "connection", conn.id)
	return out, nil
}

// Disconnect stops the current connection. No emission is delivered after it
// returns, and a fetch still in flight is discarded. It is safe to call more
// than once and without a prior Connect.
func (ds *DataSource[T]) Disconnect() {
	ds.mu.Lock()
	conn := ds.conn
	ds.conn = nil
	ds.cache = nil
	ds.mu.Unlock()

	if conn != nil {
		conn.stop()
		ds.logger.Debug("data source disconnected", "scope", conn.scope, "connection", conn.id)
	}
}

// forget drops conn and its cache once its stream ends on its own, unless a
// newer connection already replaced it.
func (ds *DataSource[T]) forget(conn *connection) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.conn == conn {
		ds.conn = nil
		ds.cache = nil
	}
}

// SetFilter stores the filter text and re-runs the pipeline. The page control
// is moved back to the first page before the new filter takes effect, so no
// emission computed with the new filter lands on a stale page.
func (ds *DataSource[T]) SetFilter(text string) {
	ds.mu.Lock()
	paginator := ds.paginator
	ds.mu.Unlock()

	if paginator != nil {
		paginator.FirstPage()
	}

	ds.mu.Lock()
	ds.filter = text
	conn := ds.conn
	ds.mu.Unlock()

	if conn != nil {
		conn.push(TriggerFilter)
	}
}

func (ds *DataSource[T]) run(ctx context.Context, conn *connection, out chan<- Emission[T]) {
	defer close(out)
	defer ds.forget(conn)
	defer conn.cancel()
	defer conn.release()

	rows, err := ds.fetcher.Fetch(ctx, conn.scope)
	if ctx.Err() != nil {
		ds.logger.Debug("discarding fetch after disconnect", "scope", conn.scope, "connection", conn.id)
		return
	}
	if err != nil {
		ds.logger.Error("fetching rows", "scope", conn.scope, "connection", conn.id, "error", err)
		send(ctx, conn, out, Emission[T]{
			Trigger: TriggerInitial,
			Err:     &FetchError{Scope: conn.scope, Err: err},
		})
		return
	}

	ds.mu.Lock()
	if ds.conn != conn {
		ds.mu.Unlock()
		return
	}
	ds.cache = rows
	paginator, sorter := ds.paginator, ds.sorter
	ds.mu.Unlock()

	ds.logger.Debug("rows cached", "scope", conn.scope, "connection", conn.id, "rows", len(rows))

	conn.activate(
		paginator.Subscribe(func() { conn.push(TriggerPage) }),
		sorter.Subscribe(func() { conn.push(TriggerSort) }),
	)

	if !ds.emit(ctx, conn, out, TriggerInitial) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-conn.wake:
			for _, trigger := range conn.drain() {
				if !ds.emit(ctx, conn, out, trigger) {
					return
				}
			}
		}
	}
}

// emit runs the pipeline against the current view state and sends the result.
// It reports false once the connection is gone.
func (ds *DataSource[T]) emit(ctx context.Context, conn *connection, out chan<- Emission[T], trigger Trigger) bool {
	ds.mu.Lock()
	if ds.conn != conn {
		ds.mu.Unlock()
		return false
	}
	cache, filter := ds.cache, ds.filter
	paginator, sorter := ds.paginator, ds.sorter
	ds.mu.Unlock()

	page := paginator.Page()
	sort := sorter.Sort()
	rows, filtered := Run(cache, filter, sort, page, ds.match, ds.comparators)

	ds.mu.Lock()
	if ds.conn == conn {
		ds.filteredCount = filtered
	}
	ds.mu.Unlock()

	return send(ctx, conn, out, Emission[T]{
		Rows:          rows,
		FilteredCount: filtered,
		Total:         len(cache),
		Page:          page,
		Sort:          sort,
		Filter:        filter,
		Trigger:       trigger,
	})
}

// connection is the state of one Connect call.
type connection struct {
	id     uuid.UUID
	scope  string
	cancel context.CancelFunc
	wake   chan struct{}

	mu          sync.Mutex
	live        bool
	released    bool
	queue       []Trigger
	unsubscribe []func()

	sendMu  sync.Mutex
	stopped bool
}

// activate stores the control subscriptions and starts accepting triggers.
// On a released connection the subscriptions are dropped right away.
func (c *connection) activate(unsubscribe ...func()) {
	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		for _, fn := range unsubscribe {
			fn()
		}
		return
	}
	c.unsubscribe = append(c.unsubscribe, unsubscribe...)
	c.live = true
	c.mu.Unlock()
}

// push queues a trigger. Triggers arriving before the batch is cached are
// dropped; the initial emission already reflects the latest state.
func (c *connection) push(trigger Trigger) {
	c.mu.Lock()
	if !c.live {
		c.mu.Unlock()
		return
	}
	c.queue = append(c.queue, trigger)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *connection) drain() []Trigger {
	c.mu.Lock()
	defer c.mu.Unlock()
	queue := c.queue
	c.queue = nil
	return queue
}

// send delivers e unless the connection has been stopped.
func send[T any](ctx context.Context, c *connection, out chan<- Emission[T], e Emission[T]) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.stopped {
		return false
	}
	select {
	case out <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

// stop cancels the connection and waits for any send in progress, so nothing
// is delivered once it returns.
func (c *connection) stop() {
	c.cancel()
	c.sendMu.Lock()
	c.stopped = true
	c.sendMu.Unlock()
	c.release()
}

func (c *connection) release() {
	c.mu.Lock()
	c.live = false
	c.released = true
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.queue = nil
	c.mu.Unlock()

	for _, fn := range unsubscribe {
		fn()
	}
}
