package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Terminal writes g as an aligned table followed by the summary footer.
func Terminal(w io.Writer, g Grid, s Summary) error {
	widths := make([]int, len(g.Headers))
	for i, header := range g.Headers {
		widths[i] = lipgloss.Width(header)
	}
	for _, row := range g.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	if g.Title != "" {
		b.WriteString(titleStyle.Render(g.Title) + "\n")
	}

	headers := make([]string, len(g.Headers))
	for i, header := range g.Headers {
		headers[i] = padRight(header, widths[i])
	}
	b.WriteString(headerStyle.Render(strings.Join(headers, " │ ")) + "\n")

	separators := make([]string, len(widths))
	for i, width := range widths {
		separators[i] = strings.Repeat("─", width)
	}
	b.WriteString(subtleStyle.Render(strings.Join(separators, "─┼─")) + "\n")

	if len(g.Rows) == 0 {
		b.WriteString(emptyStyle.Render("No matching rows") + "\n")
	}
	for _, row := range g.Rows {
		cells := make([]string, len(g.Headers))
		for i := range g.Headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = padRight(cell, widths[i])
		}
		b.WriteString(strings.Join(cells, " │ ") + "\n")
	}
	b.WriteString(subtleStyle.Render(s.Footer()) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// TerminalError writes the backend failure message, followed by err in a
// muted style when it is not nil.
func TerminalError(w io.Writer, err error) error {
	msg := errorStyle.Render("✗ " + BackendFailed)
	if err != nil {
		msg += "\n" + subtleStyle.Render(err.Error())
	}
	_, werr := fmt.Fprintln(w, msg)
	return werr
}

// padRight pads s with spaces to the given display width.
func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}
