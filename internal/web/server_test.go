package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"scandemo/internal/apiclient"
	"scandemo/internal/auth"
	"scandemo/internal/content"
	"scandemo/internal/db"
	"scandemo/internal/decor"
	"scandemo/internal/metrics"
	"scandemo/internal/model"
	"scandemo/internal/notify"
	"scandemo/internal/scan"
	"scandemo/internal/simulation"
)

type fixture struct {
	srv      *Server
	svc      *scan.Service
	toasts   *notify.Recorder
	accounts *auth.Registry
	handler  http.Handler
}

func newFixture(t *testing.T, cfg Config, factor float64) *fixture {
	t.Helper()
	toasts := notify.NewRecorder(0)
	svc := scan.NewService(db.NewMemoryStore(),
		scan.WithPhases(simulation.Scale(simulation.DefaultPhases(), factor)),
		scan.WithNotifier(toasts),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	catalog, err := content.Load()
	require.NoError(t, err)

	accounts := auth.NewRegistry(bcrypt.MinCost)
	srv, err := NewServer(cfg, Deps{
		Service:  svc,
		Catalog:  catalog,
		Accounts: accounts,
		Board:    decor.NewBoard(decor.WithIntervals(decor.Intervals{Threats: time.Hour, Score: time.Hour, Connections: time.Hour, Engine: time.Hour})),
		Toasts:   toasts,
	})
	require.NoError(t, err)
	return &fixture{srv: srv, svc: svc, toasts: toasts, accounts: accounts, handler: srv.Handler()}
}

func (f *fixture) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (f *fixture) startScan(t *testing.T, url string) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/scan/start", apiclient.StartScanRequest{URL: url})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[apiclient.StartScanResponse](t, w).ScanID
}

func (f *fixture) wait(t *testing.T, id string) model.Scan {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sc, err := f.svc.Wait(ctx, id)
	require.NoError(t, err)
	return sc
}

func TestNewServer_RequiresDeps(t *testing.T) {
	_, err := NewServer(Config{}, Deps{})
	assert.Error(t, err)
}

func TestStartScan_Validation(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)

	tests := []struct {
		name  string
		url   string
		toast string
	}{
		{"empty", "   ", model.MsgEmptyTarget},
		{"not a url", "not a url", model.MsgInvalidTarget},
		{"bad scheme", "ftp://example.com", model.MsgInvalidTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/scan/start", apiclient.StartScanRequest{URL: tt.url})
			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decode[errorBody](t, w)
			assert.Equal(t, tt.toast, body.Toast)
			assert.NotEmpty(t, body.Error)
		})
	}

	scans, err := f.svc.List()
	require.NoError(t, err)
	assert.Empty(t, scans)
}

func TestStartScan_MalformedBody(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)
	req := httptest.NewRequest(http.MethodPost, "/scan/start", strings.NewReader("{"))
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanLifecycle(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)
	id := f.startScan(t, "https://example.com")
	f.wait(t, id)

	w := f.do(t, http.MethodGet, "/scan/status/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode[apiclient.ScanStatus](t, w)
	assert.Equal(t, model.StatusCompleted, status.Status)
	assert.Equal(t, 100.0, status.Progress)
	assert.Equal(t, 3, status.VulnerabilitiesFound)

	w = f.do(t, http.MethodGet, "/scan/result/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	results := decode[apiclient.ScanResults](t, w)
	assert.Len(t, results.Vulnerabilities, 3)
	assert.Equal(t, 1, results.Summary.Critical)

	w = f.do(t, http.MethodGet, "/scan/summary/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode[scan.Summary](t, w)
	assert.Equal(t, 21, sum.RiskScore)
	assert.Equal(t, 79, sum.SecurityScore)

	w = f.do(t, http.MethodGet, "/scan/logs/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[[]model.LogEntry](t, w))

	w = f.do(t, http.MethodGet, "/scan/list", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]apiclient.ScanStatus](t, w), 1)

	// Finished scans cannot be stopped but can be deleted
	w = f.do(t, http.MethodPost, "/scan/stop/"+id, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = f.do(t, http.MethodDelete, "/scan/"+id, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodGet, "/scan/status/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStopPauseResumeRetry(t *testing.T) {
	f := newFixture(t, Config{}, 1)
	id := f.startScan(t, "https://example.com")

	w := f.do(t, http.MethodPost, "/scan/pause/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[apiclient.ScanStatus](t, w).Paused)

	w = f.do(t, http.MethodPost, "/scan/pause/"+id, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/scan/resume/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[apiclient.ScanStatus](t, w).Paused)

	w = f.do(t, http.MethodDelete, "/scan/"+id, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/scan/retry/"+id, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/scan/stop/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stopped := decode[apiclient.ScanStatus](t, w)
	assert.Equal(t, model.StatusCancelled, stopped.Status)
	assert.Equal(t, 0.0, stopped.Progress)

	w = f.do(t, http.MethodPost, "/scan/retry/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	retried := decode[apiclient.StartScanResponse](t, w)
	assert.NotEqual(t, id, retried.ScanID)
	assert.Equal(t, "https://example.com", retried.URL)

	_, err := f.svc.Stop(context.Background(), retried.ScanID)
	require.NoError(t, err)
}

func TestScanNotFound(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)
	for _, path := range []string{"/scan/status/nope", "/scan/result/nope", "/scan/summary/nope", "/scan/logs/nope", "/scan/events/nope"} {
		w := f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}
	w := f.do(t, http.MethodPost, "/scan/stop/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVulnerabilities(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)

	w := f.do(t, http.MethodGet, "/vulnerabilities", nil)
	require.Equal(t, http.StatusOK, w.Code)
	findings := decode[[]scan.Finding](t, w)
	require.Len(t, findings, 3)

	id := findings[0].ID
	w = f.do(t, http.MethodPut, "/vulnerabilities/"+strconv.FormatInt(id, 10), apiclient.UpdateVulnerabilityRequest{Status: model.TriageConfirmed})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.TriageConfirmed, decode[scan.Finding](t, w).Status)

	w = f.do(t, http.MethodGet, "/vulnerabilities/"+strconv.FormatInt(id, 10), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.TriageConfirmed, decode[scan.Finding](t, w).Status)

	w = f.do(t, http.MethodPut, "/vulnerabilities/"+strconv.FormatInt(id, 10), apiclient.UpdateVulnerabilityRequest{Status: "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/vulnerabilities/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/vulnerabilities/999999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReports(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)
	id := f.startScan(t, "https://example.com")
	f.wait(t, id)

	w := f.do(t, http.MethodGet, "/reports/json/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "scan-report-"+id+".json")

	w = f.do(t, http.MethodGet, "/reports/excel/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "SQL Injection")

	w = f.do(t, http.MethodGet, "/reports/pdf/"+id, nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	w = f.do(t, http.MethodGet, "/reports/docx/"+id, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodGet, "/reports/json/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAuthRoutes(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)

	w := f.do(t, http.MethodPost, "/auth/register", apiclient.RegisterRequest{Email: "ada@example.com", Password: "correct-horse", FullName: "Ada"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/auth/register", apiclient.RegisterRequest{Email: "ada@example.com", Password: "correct-horse"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", apiclient.LoginRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/auth/login", apiclient.LoginRequest{Email: "ada@example.com", Password: "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	sess := decode[auth.Session](t, w)
	require.NotEmpty(t, sess.AccessToken)

	w = f.do(t, http.MethodGet, "/auth/me", nil, "Authorization", "Bearer "+sess.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Ada", decode[auth.User](t, w).Name)

	w = f.do(t, http.MethodPost, "/auth/logout", nil, "Authorization", "Bearer "+sess.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/auth/me", nil, "Authorization", "Bearer "+sess.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthRequired(t *testing.T) {
	f := newFixture(t, Config{AuthRequired: true}, 0.005)

	w := f.do(t, http.MethodGet, "/scan/list", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, err := f.accounts.Register("grace@example.com", "long-enough", "Grace")
	require.NoError(t, err)
	sess, err := f.accounts.Login("grace@example.com", "long-enough")
	require.NoError(t, err)

	w = f.do(t, http.MethodGet, "/scan/list", nil, "Authorization", "Bearer "+sess.AccessToken)
	assert.Equal(t, http.StatusOK, w.Code)

	// Content stays public
	w = f.do(t, http.MethodGet, "/api/pricing", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestContentAPI(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)

	w := f.do(t, http.MethodGet, "/api/faq?category=Accuracy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	faq := decode[struct {
		Items []content.FAQ `json:"items"`
	}](t, w)
	assert.Len(t, faq.Items, 2)

	w = f.do(t, http.MethodGet, "/api/changelog?category=Patch", nil)
	require.Equal(t, http.StatusOK, w.Code)
	cl := decode[struct {
		Releases []content.Release `json:"releases"`
	}](t, w)
	require.Len(t, cl.Releases, 2)
	assert.Equal(t, "v2.0.5", cl.Releases[0].Version)

	w = f.do(t, http.MethodGet, "/api/pricing", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]content.Plan](t, w), 3)

	w = f.do(t, http.MethodGet, "/api/telemetry", nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[decor.Snapshot](t, w)
	assert.True(t, snap.Decorative)
	assert.False(t, snap.Active)

	w = f.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestToasts(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)
	f.do(t, http.MethodPost, "/scan/start", apiclient.StartScanRequest{URL: ""})
	id := f.startScan(t, "https://example.com")
	f.wait(t, id)

	w := f.do(t, http.MethodGet, "/api/toasts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[[]notify.Toast](t, w)
	require.GreaterOrEqual(t, len(all), 3)
	assert.Equal(t, notify.LevelSuccess, all[0].Level)

	w = f.do(t, http.MethodGet, "/api/toasts?scan_id="+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]notify.Toast](t, w), 2)
}

func TestGzip(t *testing.T) {
	f := newFixture(t, Config{Gzip: true}, 0.005)
	w := f.do(t, http.MethodGet, "/", nil, "Accept-Encoding", "gzip")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
}

func TestMetricsMiddleware(t *testing.T) {
	f := newFixture(t, Config{}, 0.005)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	f.srv.metrics = m
	h := f.srv.Handler()

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/scan/status/abc", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "GET /scan/status/{id}", "404")))
}

func TestServer_StartStop(t *testing.T) {
	f := newFixture(t, Config{Addr: "127.0.0.1:0"}, 0.05)
	require.NoError(t, f.srv.Start())
	assert.Error(t, f.srv.Start())

	base := "http://" + f.srv.Addr()
	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Scan activity switches the decorative board on and back off
	sc, err := f.svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return f.srv.board.Snapshot().Active }, 2*time.Second, 10*time.Millisecond)
	f.wait(t, sc.ID)
	assert.Eventually(t, func() bool { return !f.srv.board.Snapshot().Active }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.srv.Stop(ctx))
	require.NoError(t, f.srv.Stop(ctx))

	_, err = http.Get(base + "/healthz")
	assert.Error(t, err)
}

func TestScanEvents_Stream(t *testing.T) {
	f := newFixture(t, Config{Addr: "127.0.0.1:0", Gzip: true}, 0.02)
	require.NoError(t, f.srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = f.srv.Stop(ctx)
	})

	sc, err := f.svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "http://"+f.srv.Addr()+"/scan/events/"+sc.ID, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var e scan.Event
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &e))
		assert.Equal(t, sc.ID, e.ScanID)
		types = append(types, string(e.Type))
	}

	require.NotEmpty(t, types)
	assert.Equal(t, "snapshot", types[0])
	assert.Equal(t, string(scan.EventCompleted), types[len(types)-1])
	assert.Contains(t, types, string(scan.EventVulnerability))
}
