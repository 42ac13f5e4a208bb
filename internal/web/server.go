// Package web serves the product pages, the JSON API the dashboard and the
// CLI talk to, and the scan event stream.
package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"scandemo/internal/auth"
	"scandemo/internal/content"
	"scandemo/internal/decor"
	"scandemo/internal/metrics"
	"scandemo/internal/notify"
	"scandemo/internal/scan"
)

//go:embed static/* templates/*.html
var assets embed.FS

// Config holds the server settings.
type Config struct {
	Addr         string
	Gzip         bool
	AuthRequired bool
}

// Server handles the web pages and the API.
type Server struct {
	cfg      Config
	svc      *scan.Service
	catalog  *content.Catalog
	accounts *auth.Registry
	board    *decor.Board
	toasts   *notify.Recorder
	metrics  *metrics.Metrics
	pages    *pageSet
	now      func() time.Time

	mu      sync.Mutex
	srv     *http.Server
	ln      net.Listener
	stopped chan struct{}
	wg      sync.WaitGroup
}

// Deps are the collaborators a Server needs. Board, Toasts and Metrics are
// optional.
type Deps struct {
	Service  *scan.Service
	Catalog  *content.Catalog
	Accounts *auth.Registry
	Board    *decor.Board
	Toasts   *notify.Recorder
	Metrics  *metrics.Metrics
}

// NewServer creates a new web server
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Service == nil || deps.Catalog == nil {
		return nil, errors.New("web: service and catalog are required")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:3000"
	}
	if deps.Accounts == nil {
		deps.Accounts = auth.NewRegistry(0)
	}
	if deps.Board == nil {
		deps.Board = decor.NewBoard()
	}
	if deps.Toasts == nil {
		deps.Toasts = notify.NewRecorder(0)
	}

	pages, err := loadPages()
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		svc:      deps.Service,
		catalog:  deps.Catalog,
		accounts: deps.Accounts,
		board:    deps.Board,
		toasts:   deps.Toasts,
		metrics:  deps.Metrics,
		pages:    pages,
		now:      time.Now,
	}, nil
}

// Handler builds the routed, wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /dashboard", s.handleDashboard)
	mux.HandleFunc("GET /faq", s.handleFAQ)
	mux.HandleFunc("GET /changelogs", s.handleChangelogs)
	staticFS, _ := fs.Sub(assets, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	mux.HandleFunc("/", s.handleNotFound)

	// Scans
	scanRoute := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.requireAuth(h))
	}
	scanRoute("POST /scan/start", s.handleStartScan)
	scanRoute("GET /scan/list", s.handleListScans)
	scanRoute("GET /scan/status/{id}", s.handleScanStatus)
	scanRoute("GET /scan/result/{id}", s.handleScanResult)
	scanRoute("GET /scan/summary/{id}", s.handleScanSummary)
	scanRoute("GET /scan/logs/{id}", s.handleScanLogs)
	scanRoute("GET /scan/events/{id}", s.handleScanEvents)
	scanRoute("POST /scan/stop/{id}", s.handleStopScan)
	scanRoute("POST /scan/pause/{id}", s.handlePauseScan)
	scanRoute("POST /scan/resume/{id}", s.handleResumeScan)
	scanRoute("POST /scan/retry/{id}", s.handleRetryScan)
	scanRoute("DELETE /scan/{id}", s.handleDeleteScan)

	// Findings and reports
	mux.HandleFunc("GET /vulnerabilities", s.handleVulnerabilities)
	mux.HandleFunc("GET /vulnerabilities/{id}", s.handleVulnerability)
	mux.HandleFunc("PUT /vulnerabilities/{id}", s.handleUpdateVulnerability)
	mux.HandleFunc("GET /reports/{format}/{id}", s.handleReport)

	// Accounts
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/me", s.handleMe)

	// Content and dashboard widgets
	mux.HandleFunc("GET /api/telemetry", s.handleTelemetry)
	mux.HandleFunc("GET /api/faq", s.handleAPIFAQ)
	mux.HandleFunc("GET /api/changelog", s.handleAPIChangelog)
	mux.HandleFunc("GET /api/pricing", s.handleAPIPricing)
	mux.HandleFunc("GET /api/toasts", s.handleToasts)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var h http.Handler = mux
	if s.cfg.Gzip {
		// The event stream must not be buffered by the compressor
		gz := gzhttp.GzipHandler(mux)
		h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Accept") == "text/event-stream" {
				mux.ServeHTTP(w, r)
				return
			}
			gz.ServeHTTP(w, r)
		})
	}
	if s.metrics != nil {
		h = s.metrics.RequestTrackingMiddleware(h)
	}
	return h
}

// Start binds the listener and serves in the background. It also starts
// driving the decorative counters from scan activity.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("web: server already started")
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	s.ln = ln
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.stopped = make(chan struct{})

	events, unsubscribe := s.svc.Subscribe()
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		defer unsubscribe()
		s.driveBoard(events, s.stopped)
	}()
	go func() {
		defer s.wg.Done()
		slog.Info("Starting web server", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Web server stopped", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return s.cfg.Addr
	}
	return s.ln.Addr().String()
}

// Stop shuts the server down gracefully. Open event streams are closed.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	if srv == nil {
		s.mu.Unlock()
		return nil
	}
	close(s.stopped)
	s.mu.Unlock()

	err := srv.Shutdown(ctx)
	s.wg.Wait()
	s.board.Deactivate()

	s.mu.Lock()
	s.srv = nil
	s.ln = nil
	s.mu.Unlock()
	return err
}

// driveBoard activates the counters when a scan starts or resumes and
// freezes them once nothing is running.
func (s *Server) driveBoard(events <-chan scan.Event, stop <-chan struct{}) {
	if s.svc.Active() {
		s.board.Activate()
	}
	for {
		select {
		case <-stop:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch {
			case e.Type == scan.EventStarted, e.Type == scan.EventResumed:
				s.board.Activate()
			case e.Terminal():
				if !s.svc.Active() {
					s.board.Deactivate()
				}
			}
		}
	}
}
