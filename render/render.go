// Package render turns table emissions into something a person can read: a
// styled terminal table, or an HTML, XML or JSON export.
package render

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/tfkr-ae/gantry/domain"
	"github.com/tfkr-ae/gantry/table"
)

// BackendFailed is shown in place of a table when the catalog could not be read.
const BackendFailed = "Backend server failed"

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatXML   Format = "xml"
	FormatHTML  Format = "html"
)

// ParseFormat parses one of table, json, xml or html. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatJSON, FormatXML, FormatHTML:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// StatusLabel prefixes a launchpad status with its colour marker. Unknown
// statuses are returned unchanged.
func StatusLabel(status string) string {
	switch status {
	case domain.StatusActive:
		return "🟢 " + status
	case domain.StatusInactive:
		return "🟠 " + status
	case domain.StatusUnknown:
		return "🟡 " + status
	case domain.StatusRetired:
		return "🟤 " + status
	case domain.StatusLost:
		return "🔴 " + status
	case domain.StatusUnderConstruction:
		return "⚪ " + status
	default:
		return status
	}
}

// SuccessLabel renders the outcome of a launch.
func SuccessLabel(success bool) string {
	if success {
		return "✅ success"
	}
	return "❌ failure"
}

// Grid is a table flattened to strings. Keys name the columns for
// machine-readable exports, Headers for people.
type Grid struct {
	Title   string
	Keys    []string
	Headers []string
	Rows    [][]string
}

// LaunchpadGrid flattens launchpad rows.
func LaunchpadGrid(rows []domain.Launchpad) Grid {
	g := Grid{
		Title:   "Launchpads",
		Keys:    []string{"id", "name", "region", "status"},
		Headers: []string{"ID", "Name", "Region", "Status"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, l := range rows {
		g.Rows = append(g.Rows, []string{l.ID, l.Name, l.Region, StatusLabel(l.Status)})
	}
	return g
}

// LaunchGrid flattens launch rows. The wikipedia column holds the article title.
func LaunchGrid(rows []domain.Launch) Grid {
	g := Grid{
		Title:   "Launches",
		Keys:    []string{"id", "name", "wikipedia", "success"},
		Headers: []string{"ID", "Name", "Wikipedia", "Success"},
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, l := range rows {
		g.Rows = append(g.Rows, []string{l.ID, l.Name, l.WikipediaTitle(), SuccessLabel(l.Success)})
	}
	return g
}

// ImageGrid flattens located images.
func ImageGrid(boxes []domain.ImageBox) Grid {
	g := Grid{
		Title:   "Images",
		Keys:    []string{"group", "name", "image"},
		Headers: []string{"Group", "Name", "Image"},
		Rows:    make([][]string, 0, len(boxes)),
	}
	for _, b := range boxes {
		g.Rows = append(g.Rows, []string{b.Group, b.Name, b.Image})
	}
	return g
}

// LogGrid flattens persisted log entries.
func LogGrid(logs []*domain.Log) Grid {
	g := Grid{
		Title:   "Logs",
		Keys:    []string{"timestamp", "level", "scope", "message"},
		Headers: []string{"Time", "Level", "Scope", "Message"},
		Rows:    make([][]string, 0, len(logs)),
	}
	for _, l := range logs {
		g.Rows = append(g.Rows, []string{l.Timestamp.Local().Format(time.DateTime), l.Level, l.Scope, l.Message})
	}
	return g
}

// Summary is the view state an emission was computed with.
type Summary struct {
	Filtered int
	Total    int
	Page     table.Page
	Sort     table.Sort
	Filter   string
}

// Summarize extracts the view state of e.
func Summarize[T any](e table.Emission[T]) Summary {
	return Summary{
		Filtered: e.FilteredCount,
		Total:    e.Total,
		Page:     e.Page,
		Sort:     e.Sort,
		Filter:   e.Filter,
	}
}

// Footer reads like "3 of 12 items · page 1/1". The sort and filter are
// appended when set.
func (s Summary) Footer() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d items", s.Filtered, s.Total)
	pages := 1
	if s.Page.Size > 0 && s.Filtered > 0 {
		pages = (s.Filtered + s.Page.Size - 1) / s.Page.Size
	}
	fmt.Fprintf(&b, " · page %d/%d", s.Page.Index+1, pages)
	if s.Sort.Active != "" && s.Sort.Direction != table.None {
		fmt.Fprintf(&b, " · sorted by %s %s", s.Sort.Active, s.Sort.Direction)
	}
	if strings.TrimSpace(s.Filter) != "" {
		b.WriteString(" · filter " + strconv.Quote(s.Filter))
	}
	return b.String()
}

// Write renders g in format f. JSON encodes the emission itself.
func Write[T any](w io.Writer, f Format, e table.Emission[T], g Grid) error {
	if e.Err != nil {
		return fmt.Errorf("rendering failed emission: %w", e.Err)
	}
	s := Summarize(e)
	switch f {
	case FormatTable:
		return Terminal(w, g, s)
	case FormatJSON:
		return JSON(w, e)
	case FormatXML:
		return XML(w, g, s)
	case FormatHTML:
		return HTML(w, g, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}
