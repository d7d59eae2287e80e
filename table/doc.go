// Package table provides the reactive tabular data-source used by every table
// view in gantry.
//
// A DataSource fetches one bounded batch of rows for a scope, caches it, and
// re-derives a single page of rows every time one of its three view controls
// changes: the page control (index and size), the sort control (active field
// and direction) and the filter text owned by the data-source itself. Each
// derivation runs the same fixed pipeline, filter then sort then page, over a
// copy of the cached batch and is delivered to the consumer as an Emission.
//
// The package is generic over the row type. The only row-specific logic is
// injected: a MatchFunc deciding whether a row contains the filter text, and a
// Comparators table keyed by sort field.
package table
