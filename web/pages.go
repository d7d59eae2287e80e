package web

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/tfkr-ae/gantry"
	"github.com/tfkr-ae/gantry/catalog"
	"github.com/tfkr-ae/gantry/render"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// tablePage is the data of templates/table.html.
type tablePage struct {
	Title     string
	Socket    string
	Headers   []string
	Fields    []string
	PageSize  int
	PageSizes []int
	Drilldown bool // Link each row's name to its launches
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("rendering page", "page", name, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, "home.html", map[string]any{
		"Offline": s.app.Config.Offline,
	})
}

func (s *Server) handleLaunchpadsPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "table.html", tablePage{
		Title:     "Launchpads",
		Socket:    "/ws/launchpads",
		Headers:   render.LaunchpadGrid(nil).Headers,
		Fields:    gantry.LaunchpadFields,
		PageSize:  s.app.Config.PageSize,
		PageSizes: s.app.Config.PageSizeOptions,
		Drilldown: true,
	})
}

func (s *Server) handleLaunchesPage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		http.Error(w, "missing launchpad id", http.StatusBadRequest)
		return
	}
	title := "Launches"
	if name := strings.TrimSpace(r.URL.Query().Get("name")); name != "" {
		title = "Launches from " + name
	}
	s.render(w, "table.html", tablePage{
		Title:     title,
		Socket:    "/ws/launches?id=" + url.QueryEscape(id),
		Headers:   render.LaunchGrid(nil).Headers,
		Fields:    gantry.LaunchFields,
		PageSize:  s.app.Config.PageSize,
		PageSizes: s.app.Config.PageSizeOptions,
	})
}

// handleImages returns every located image, the one named by ?name=, or the
// image names matching ?q= for autocompletion.
func (s *Server) handleImages(w http.ResponseWriter, r *http.Request) {
	boxes, err := s.app.Images(r.Context(), catalog.DefaultImagePage, catalog.DefaultImageLimit)
	if errors.Is(err, gantry.ErrNoImageLocator) {
		writeJSON(w, http.StatusServiceUnavailable, errorMessage{Error: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("locating images", "error", err)
		writeJSON(w, http.StatusBadGateway, errorMessage{Error: render.BackendFailed})
		return
	}

	query := r.URL.Query()
	if query.Has("q") {
		writeJSON(w, http.StatusOK, catalog.FilterNames(catalog.Names(boxes), query.Get("q")))
		return
	}
	if query.Has("name") {
		box, ok := catalog.FindImage(boxes, query.Get("name"))
		if !ok {
			writeJSON(w, http.StatusNotFound, errorMessage{Error: "image not found"})
			return
		}
		writeJSON(w, http.StatusOK, box)
		return
	}
	writeJSON(w, http.StatusOK, boxes)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Stats()
	if errors.Is(err, gantry.ErrNoRepository) {
		writeJSON(w, http.StatusServiceUnavailable, errorMessage{Error: err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("reading stats", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorMessage{Error: "reading stats failed"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"session": s.app.SessionID.String(),
	})
}
