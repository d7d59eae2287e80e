package table

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

const streamTimeout = 2 * time.Second

func next[T any](t *testing.T, ch <-chan Emission[T]) Emission[T] {
	t.Helper()
	select {
	case e, ok := <-ch:
		if !ok {
			t.Fatal("stream closed before an emission")
		}
		return e
	case <-time.After(streamTimeout):
		t.Fatal("timed out waiting for an emission")
	}
	return Emission[T]{}
}

func waitClosed[T any](t *testing.T, ch <-chan Emission[T]) {
	t.Helper()
	select {
	case e, ok := <-ch:
		if ok {
			t.Fatalf("\nwanted:\nclosed stream\ngot:\n%+v", e)
		}
	case <-time.After(streamTimeout):
		t.Fatal("timed out waiting for the stream to close")
	}
}

type countingFetcher struct {
	calls atomic.Int32
	err   error
}

func (f *countingFetcher) Fetch(ctx context.Context, scope string) ([]testRow, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return testRows(), nil
}

func setupSource(t *testing.T, fetcher Fetcher[testRow], size int) (*DataSource[testRow], *Paginator, *Sorter) {
	t.Helper()
	paginator := NewPaginator(size)
	sorter := NewSorter("", None)
	ds, err := New[testRow](fetcher,
		WithMatch[testRow](matchTestRow),
		WithComparators[testRow](testComparators),
		WithControls[testRow](paginator, sorter),
	)
	if err != nil {
		t.Fatalf("creating data source: %v", err)
	}
	t.Cleanup(ds.Disconnect)
	return ds, paginator, sorter
}

func TestNew(t *testing.T) {
	t.Run("should reject a nil fetcher", func(t *testing.T) {
		_, err := New[testRow](nil)
		if !errors.Is(err, ErrNoFetcher) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNoFetcher, err)
		}
	})

	t.Run("should reject nil comparators", func(t *testing.T) {
		_, err := New[testRow](&countingFetcher{}, WithComparators[testRow](nil))
		if err == nil {
			t.Fatalf("\nwanted:\nerror\ngot:\nnil")
		}
	})
}

func TestConnect(t *testing.T) {
	t.Run("should fail without controls and never fetch", func(t *testing.T) {
		fetcher := &countingFetcher{}
		ds, err := New[testRow](fetcher)
		if err != nil {
			t.Fatalf("creating data source: %v", err)
		}
		ds.SetSorter(NewSorter("", None))

		ch, err := ds.Connect(context.Background(), "")
		if !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", ErrNotConfigured, err)
		}
		if ch != nil {
			t.Fatalf("\nwanted:\nnil stream\ngot:\n%v", ch)
		}
		if got := fetcher.calls.Load(); got != 0 {
			t.Fatalf("\nwanted:\n0 fetches\ngot:\n%d", got)
		}
	})

	t.Run("should emit the first page on connect", func(t *testing.T) {
		ds, _, _ := setupSource(t, &countingFetcher{}, 2)
		ch, err := ds.Connect(context.Background(), "")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		e := next(t, ch)
		if e.Trigger != TriggerInitial {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", TriggerInitial, e.Trigger)
		}
		want := []string{"Vandenberg", "Kennedy"}
		if !reflect.DeepEqual(want, names(e.Rows)) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, names(e.Rows))
		}
		if e.FilteredCount != 5 || e.Total != 5 {
			t.Fatalf("\nwanted:\n5 filtered of 5\ngot:\n%d filtered of %d", e.FilteredCount, e.Total)
		}
		if got := ds.FilteredCount(); got != 5 {
			t.Fatalf("\nwanted:\n5\ngot:\n%d", got)
		}
	})

	t.Run("should emit once per change in arrival order", func(t *testing.T) {
		fetcher := &countingFetcher{}
		ds, paginator, sorter := setupSource(t, fetcher, 2)
		ch, err := ds.Connect(context.Background(), "")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		paginator.SetPage(1)
		sorter.SetSort("id", Ascending)
		ds.SetFilter("zzz")

		want := []Trigger{TriggerPage, TriggerSort, TriggerPage, TriggerFilter}
		var got []Trigger
		var last Emission[testRow]
		for range want {
			last = next(t, ch)
			got = append(got, last.Trigger)
		}
		if !reflect.DeepEqual(want, got) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, got)
		}
		if len(last.Rows) != 0 || last.FilteredCount != 0 {
			t.Fatalf("\nwanted:\nno rows\ngot:\n%d rows, %d filtered", len(last.Rows), last.FilteredCount)
		}
		if got := fetcher.calls.Load(); got != 1 {
			t.Fatalf("\nwanted:\n1 fetch\ngot:\n%d", got)
		}
	})

	t.Run("should sort the cached batch on a sort change", func(t *testing.T) {
		ds, _, sorter := setupSource(t, &countingFetcher{}, 3)
		ch, err := ds.Connect(context.Background(), "")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		sorter.SetSort("id", Descending)
		e := next(t, ch)
		want := []string{"Kwajalein", "cape canaveral", "Vandenberg"}
		if !reflect.DeepEqual(want, names(e.Rows)) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", want, names(e.Rows))
		}
		if e.Sort != (Sort{Active: "id", Direction: Descending}) {
			t.Fatalf("\nwanted:\nid desc\ngot:\n%+v", e.Sort)
		}
	})

	t.Run("should reset the page before applying a filter", func(t *testing.T) {
		ds, paginator, _ := setupSource(t, &countingFetcher{}, 1)
		ch, err := ds.Connect(context.Background(), "")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		paginator.SetPage(2)
		if e := next(t, ch); e.Page.Index != 2 {
			t.Fatalf("\nwanted:\n2\ngot:\n%d", e.Page.Index)
		}

		ds.SetFilter("x")
		for {
			e := next(t, ch)
			if e.Filter == "x" && e.Page.Index != 0 {
				t.Fatalf("\nwanted:\npage 0 with the new filter\ngot:\npage %d", e.Page.Index)
			}
			if e.Trigger == TriggerFilter {
				break
			}
		}
	})

	t.Run("should emit an empty page for a huge page index", func(t *testing.T) {
		ds, paginator, _ := setupSource(t, &countingFetcher{}, 2)
		ch, err := ds.Connect(context.Background(), "")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		paginator.SetPage(math.MaxInt)
		e := next(t, ch)
		if len(e.Rows) != 0 || e.FilteredCount != 5 {
			t.Fatalf("\nwanted:\nno rows of 5\ngot:\n%d rows of %d", len(e.Rows), e.FilteredCount)
		}

		paginator.SetPage(0)
		if e := next(t, ch); len(e.Rows) != 2 {
			t.Fatalf("\nwanted:\n2 rows\ngot:\n%d", len(e.Rows))
		}
	})

	t.Run("should close the previous stream on reconnect", func(t *testing.T) {
		fetcher := &countingFetcher{}
		ds, _, _ := setupSource(t, fetcher, 2)
		first, err := ds.Connect(context.Background(), "a")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, first)

		second, err := ds.Connect(context.Background(), "a")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		waitClosed(t, first)
		next(t, second)
		if got := fetcher.calls.Load(); got != 2 {
			t.Fatalf("\nwanted:\n2 fetches\ngot:\n%d", got)
		}
	})

	t.Run("should close the stream when the context is done", func(t *testing.T) {
		ds, _, _ := setupSource(t, &countingFetcher{}, 2)
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := ds.Connect(ctx, "")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)
		cancel()
		waitClosed(t, ch)
		if ds.Connected() {
			t.Fatalf("\nwanted:\ndisconnected\ngot:\nconnected")
		}
	})
}

func TestFetchFailure(t *testing.T) {
	t.Run("should deliver the error then close, and refetch on reconnect", func(t *testing.T) {
		backend := errors.New("backend down")
		fetcher := &countingFetcher{err: backend}
		ds, _, _ := setupSource(t, fetcher, 5)

		ch, err := ds.Connect(context.Background(), "pad")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		e := next(t, ch)
		var fetchErr *FetchError
		if !errors.As(e.Err, &fetchErr) {
			t.Fatalf("\nwanted:\n*FetchError\ngot:\n%v", e.Err)
		}
		if fetchErr.Scope != "pad" || !errors.Is(e.Err, backend) {
			t.Fatalf("\nwanted:\nscope pad wrapping %v\ngot:\n%v", backend, e.Err)
		}
		if len(e.Rows) != 0 || ds.FilteredCount() != 0 {
			t.Fatalf("\nwanted:\nno rows\ngot:\n%d rows, %d filtered", len(e.Rows), ds.FilteredCount())
		}
		waitClosed(t, ch)

		fetcher.err = nil
		ch, err = ds.Connect(context.Background(), "pad")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if e := next(t, ch); e.Err != nil || len(e.Rows) != 5 {
			t.Fatalf("\nwanted:\n5 rows\ngot:\n%d rows, err %v", len(e.Rows), e.Err)
		}
		if got := fetcher.calls.Load(); got != 2 {
			t.Fatalf("\nwanted:\n2 fetches\ngot:\n%d", got)
		}
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("should be safe without a connection", func(t *testing.T) {
		ds, _, _ := setupSource(t, &countingFetcher{}, 5)
		ds.Disconnect()
		ds.Disconnect()
		if ds.Connected() {
			t.Fatalf("\nwanted:\ndisconnected\ngot:\nconnected")
		}
	})

	t.Run("should discard a fetch still in flight", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		fetcher := FetchFunc[testRow](func(ctx context.Context, scope string) ([]testRow, error) {
			close(started)
			<-release
			return testRows(), nil
		})
		ds, _, _ := setupSource(t, fetcher, 5)

		ch, err := ds.Connect(context.Background(), "")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		<-started
		ds.Disconnect()
		close(release)
		waitClosed(t, ch)
	})

	t.Run("should stop emitting after disconnect", func(t *testing.T) {
		ds, paginator, _ := setupSource(t, &countingFetcher{}, 1)
		ch, err := ds.Connect(context.Background(), "")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		next(t, ch)

		paginator.SetPage(1)
		ds.Disconnect()
		paginator.SetPage(2)

		for e := range ch {
			if e.Page.Index == 2 {
				t.Fatalf("\nwanted:\nno emission after disconnect\ngot:\n%+v", e)
			}
		}
	})
}
