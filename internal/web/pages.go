package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"scandemo/internal/content"
	"scandemo/internal/decor"
	"scandemo/internal/filtering"
	"scandemo/internal/model"
	"scandemo/internal/notify"
	"scandemo/internal/scan"
	"scandemo/internal/simulation"
	"scandemo/internal/utils"
)

var pageNames = []string{"home", "dashboard", "faq", "changelogs", "notfound"}

// pageSet holds one template tree per page, each sharing the layout.
type pageSet struct {
	byName map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"severityClass": func(s model.Severity) string { return s.ColorClass() },
	"severityTitle": func(s model.Severity) string { return s.Title() },
	"percent":       func(f float64) string { return fmt.Sprintf("%.0f%%", f) },
	"score":         func(f float64) string { return fmt.Sprintf("%.1f", f) },
	"lower":         strings.ToLower,
	"date":          func(r content.Release) string { return r.Date().Format("January 2, 2006") },
	"stepDone":      func(step, i int) bool { return i < step },
	"since":         func(t time.Time) string { return utils.FormatSince(t, time.Now()) },
	"elapsed":       func(sc model.Scan) string { return utils.Elapsed(sc.StartedAt, sc.CompletedAt, time.Now()) },
}

func loadPages() (*pageSet, error) {
	ps := &pageSet{byName: make(map[string]*template.Template)}
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(assets, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		ps.byName[name] = t
	}
	return ps, nil
}

// pageData is what every page template receives.
type pageData struct {
	Title   string
	Product string
	Nav     []content.Link
	Active  string
	Latest  content.Release
	Data    any
}

func (s *Server) render(w http.ResponseWriter, status int, name, title string, data any) {
	t, ok := s.pages.byName[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	active := "/" + name
	if name == "home" {
		active = "/"
	}
	pd := pageData{
		Title:   title,
		Product: s.catalog.Site.Product,
		Nav:     s.catalog.Site.Navigation,
		Active:  active,
		Latest:  s.catalog.Latest(),
		Data:    data,
	}

	// Render to a buffer so a template error does not leave a half-written page
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", pd); err != nil {
		slog.Error("Failed to render page", "page", name, "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home", s.catalog.Site.Product, s.catalog.Site)
}

type dashboardData struct {
	Current   *model.Scan
	Summary   scan.Summary
	Phases    []simulation.Phase
	Scans     []model.Scan
	Telemetry decor.Snapshot
	Toasts    []notify.Toast
	Modes     []model.ScanMode
	Types     []model.ScanType
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	scans, err := s.svc.List()
	if err != nil {
		writeError(w, err)
		return
	}
	d := dashboardData{
		Phases:    s.svc.Phases(),
		Scans:     scans,
		Telemetry: s.board.Snapshot(),
		Toasts:    s.toasts.Recent(),
		Modes:     model.ScanModes,
		Types:     model.ScanTypes,
	}
	if cur, err := s.svc.Current(); err == nil {
		d.Current = &cur
		d.Summary = scan.Summarize(cur.Vulnerabilities)
	}
	s.render(w, http.StatusOK, "dashboard", "Dashboard", d)
}

type filterData[T any] struct {
	Categories []string
	Selected   string
	Items      []T
}

func (s *Server) handleFAQ(w http.ResponseWriter, r *http.Request) {
	cat := filtering.Normalize(r.URL.Query().Get("category"))
	s.render(w, http.StatusOK, "faq", "FAQ", filterData[content.FAQ]{
		Categories: s.catalog.FAQCategories(),
		Selected:   cat,
		Items:      s.catalog.FAQ(cat),
	})
}

func (s *Server) handleChangelogs(w http.ResponseWriter, r *http.Request) {
	cat := filtering.Normalize(r.URL.Query().Get("category"))
	s.render(w, http.StatusOK, "changelogs", "Changelogs", filterData[content.Release]{
		Categories: s.catalog.ChangelogCategories(),
		Selected:   cat,
		Items:      s.catalog.Changelog(cat),
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusNotFound, "notfound", "Page Not Found", r.URL.Path)
}
