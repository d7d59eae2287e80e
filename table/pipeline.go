package table

import (
	"slices"
	"strconv"
	"strings"
)

// MatchFunc reports whether row contains needle. needle is already trimmed and
// lower-cased and is never empty.
type MatchFunc[T any] func(row T, needle string) bool

// Comparator returns a negative number when a sorts before b, a positive
// number when it sorts after, and zero when they are equal.
type Comparator[T any] func(a, b T) int

// Comparators maps a sort field name to the comparator used for it.
type Comparators[T any] map[string]Comparator[T]

// NormalizeFilter trims and lower-cases filter text.
func NormalizeFilter(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Contains reports whether field contains needle, ignoring case in field.
// An empty field never contains a non-empty needle.
func Contains(field, needle string) bool {
	return strings.Contains(strings.ToLower(field), needle)
}

// CompareFold compares two strings after upper-casing both.
func CompareFold(a, b string) int {
	return strings.Compare(strings.ToUpper(a), strings.ToUpper(b))
}

// CompareBool compares the string forms of two booleans, so false sorts before true.
func CompareBool(a, b bool) int {
	return strings.Compare(strconv.FormatBool(a), strconv.FormatBool(b))
}

// FilterRows returns the rows matching text. Empty text matches every row and
// returns rows unchanged.
func FilterRows[T any](rows []T, text string, match MatchFunc[T]) []T {
	needle := NormalizeFilter(text)
	if needle == "" || match == nil {
		return rows
	}

	filtered := make([]T, 0, len(rows))
	for _, row := range rows {
		if match(row, needle) {
			filtered = append(filtered, row)
		}
	}
	return filtered
}

// SortRows sorts rows in place. It does nothing when the direction is None or
// the active field has no comparator. Equal rows keep their relative order.
func SortRows[T any](rows []T, sort Sort, comparators Comparators[T]) {
	if sort.Active == "" || sort.Direction == None {
		return
	}
	compare, ok := comparators[sort.Active]
	if !ok {
		return
	}

	sign := 1
	if sort.Direction == Descending {
		sign = -1
	}
	slices.SortStableFunc(rows, func(a, b T) int {
		return sign * compare(a, b)
	})
}

// PageRows returns a copy of the rows on page. A page starting past the end
// yields an empty, non-nil slice.
func PageRows[T any](rows []T, page Page) []T {
	if page.Size <= 0 || page.Index < 0 {
		return []T{}
	}
	// compared before multiplying so huge indexes cannot overflow
	if len(rows) == 0 || page.Index > (len(rows)-1)/page.Size {
		return []T{}
	}
	start := page.Start()
	end := start + min(page.Size, len(rows)-start)

	paged := make([]T, end-start)
	copy(paged, rows[start:end])
	return paged
}

// Run applies filter, sort and page, in that order, to a copy of cache.
// It returns the page of rows and the number of rows that survived the filter.
func Run[T any](cache []T, filter string, sort Sort, page Page, match MatchFunc[T], comparators Comparators[T]) ([]T, int) {
	working := FilterRows(slices.Clone(cache), filter, match)
	SortRows(working, sort, comparators)
	return PageRows(working, page), len(working)
}
