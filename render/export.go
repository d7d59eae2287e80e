package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strconv"

	"github.com/beevik/etree"
	"github.com/yosssi/gohtml"
)

var htmlExport = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Grid.Title}}</title></head>
<body>
<h1>{{.Grid.Title}}</h1>
<table>
<thead><tr>{{range .Grid.Headers}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>{{range .Grid.Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>{{else}}<tr><td colspan="{{len .Grid.Headers}}">No matching rows</td></tr>{{end}}</tbody>
</table>
<p class="footer">{{.Footer}}</p>
</body>
</html>`))

// HTML writes g as a standalone, indented HTML document.
func HTML(w io.Writer, g Grid, s Summary) error {
	var buf bytes.Buffer
	data := struct {
		Grid   Grid
		Footer string
	}{g, s.Footer()}
	if err := htmlExport.Execute(&buf, data); err != nil {
		return fmt.Errorf("executing html template: %w", err)
	}
	_, err := io.WriteString(w, gohtml.Format(buf.String())+"\n")
	return err
}

// XML writes g as an XML document. The root element carries the summary as
// attributes and holds one element per row, one child per column key.
func XML(w io.Writer, g Grid, s Summary) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(xmlName(g.Title, "rows"))
	root.CreateAttr("filtered", strconv.Itoa(s.Filtered))
	root.CreateAttr("total", strconv.Itoa(s.Total))
	root.CreateAttr("page", strconv.Itoa(s.Page.Index))
	root.CreateAttr("size", strconv.Itoa(s.Page.Size))
	if s.Sort.Active != "" {
		root.CreateAttr("sort", s.Sort.Active)
		root.CreateAttr("direction", s.Sort.Direction.String())
	}
	if s.Filter != "" {
		root.CreateAttr("filter", s.Filter)
	}

	for _, row := range g.Rows {
		item := root.CreateElement("row")
		for i, key := range g.Keys {
			if i < len(row) {
				item.CreateElement(key).SetText(row[i])
			}
		}
	}

	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

func xmlName(title, fallback string) string {
	name := make([]byte, 0, len(title))
	for _, c := range []byte(title) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9' && len(name) > 0:
			name = append(name, c)
		case c >= 'A' && c <= 'Z':
			name = append(name, c+'a'-'A')
		}
	}
	if len(name) == 0 {
		return fallback
	}
	return string(name)
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding json: %w", err)
	}
	return nil
}
