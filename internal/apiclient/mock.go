package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "scandemo/internal/errors"
	"scandemo/internal/auth"
	"scandemo/internal/model"
	"scandemo/internal/report"
	"scandemo/internal/scan"
)

// Mock answers every API call locally with canned data after a short
// artificial delay. It stands in for the backend during development.
type Mock struct {
	// Latency scales the canned delays; zero answers immediately.
	Latency float64

	mu     sync.Mutex
	now    func() time.Time
	triage map[int64]model.TriageStatus
	user   *auth.User
}

var _ API = (*Mock)(nil)

// NewMock returns a mock with the given latency scale.
func NewMock(latency float64) *Mock {
	return &Mock{Latency: latency, now: time.Now, triage: make(map[int64]model.TriageStatus)}
}

func (m *Mock) sleep(ctx context.Context, d time.Duration) error {
	d = time.Duration(float64(d) * m.Latency)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Mock) completedScan(scanID string) model.Scan {
	now := m.now()
	return model.Scan{
		ID:              scanID,
		TargetURL:       "https://example.com",
		Mode:            model.ModeStealth,
		Type:            model.TypeQuick,
		Status:          model.StatusCompleted,
		Progress:        100,
		Vulnerabilities: scan.SampleVulnerabilities(now),
		CreatedAt:       now,
	}
}

func (m *Mock) StartScan(ctx context.Context, req StartScanRequest) (StartScanResponse, error) {
	if err := m.sleep(ctx, time.Second); err != nil {
		return StartScanResponse{}, err
	}
	now := m.now()
	return StartScanResponse{
		ScanID:    fmt.Sprintf("scan_%d", now.UnixMilli()),
		Status:    "started",
		URL:       req.URL,
		Timestamp: now,
	}, nil
}

func (m *Mock) ScanStatus(ctx context.Context, scanID string) (ScanStatus, error) {
	if err := m.sleep(ctx, 500*time.Millisecond); err != nil {
		return ScanStatus{}, err
	}
	return NewScanStatus(m.completedScan(scanID), m.now()), nil
}

func (m *Mock) ScanResults(ctx context.Context, scanID string) (ScanResults, error) {
	if err := m.sleep(ctx, 500*time.Millisecond); err != nil {
		return ScanResults{}, err
	}
	return NewScanResults(m.completedScan(scanID)), nil
}

func (m *Mock) ListScans(ctx context.Context) ([]ScanStatus, error) {
	if err := m.sleep(ctx, 500*time.Millisecond); err != nil {
		return nil, err
	}
	return []ScanStatus{NewScanStatus(m.completedScan("scan_demo"), m.now())}, nil
}

func (m *Mock) StopScan(ctx context.Context, scanID string) (ScanStatus, error) {
	if err := m.sleep(ctx, 500*time.Millisecond); err != nil {
		return ScanStatus{}, err
	}
	sc := m.completedScan(scanID)
	sc.Status = model.StatusCancelled
	sc.Progress = 0
	return NewScanStatus(sc, m.now()), nil
}

func (m *Mock) Vulnerabilities(ctx context.Context) ([]scan.Finding, error) {
	if err := m.sleep(ctx, 500*time.Millisecond); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []scan.Finding
	for _, v := range scan.SampleVulnerabilities(m.now()) {
		status, ok := m.triage[v.ID]
		if !ok {
			status = model.TriageOpen
		}
		out = append(out, scan.Finding{Vulnerability: v, Status: status})
	}
	return out, nil
}

func (m *Mock) Vulnerability(ctx context.Context, id int64) (scan.Finding, error) {
	all, err := m.Vulnerabilities(ctx)
	if err != nil {
		return scan.Finding{}, err
	}
	for _, f := range all {
		if f.ID == id {
			return f, nil
		}
	}
	return scan.Finding{}, apperrors.NewAPIError(404, fmt.Sprintf("vulnerability %d not found", id), "")
}

func (m *Mock) UpdateVulnerabilityStatus(ctx context.Context, id int64, status model.TriageStatus) (scan.Finding, error) {
	if _, ok := model.ParseTriageStatus(string(status)); !ok {
		return scan.Finding{}, apperrors.NewAPIError(400, fmt.Sprintf("unknown status %q", status), "")
	}
	f, err := m.Vulnerability(ctx, id)
	if err != nil {
		return scan.Finding{}, err
	}
	m.mu.Lock()
	m.triage[id] = status
	m.mu.Unlock()
	f.Status = status
	return f, nil
}

func (m *Mock) PDFReport(ctx context.Context, scanID string) ([]byte, error) {
	return m.report(ctx, report.FormatPDF, scanID)
}

func (m *Mock) ExcelReport(ctx context.Context, scanID string) ([]byte, error) {
	return m.report(ctx, report.FormatExcel, scanID)
}

func (m *Mock) JSONReport(ctx context.Context, scanID string) ([]byte, error) {
	return m.report(ctx, report.FormatJSON, scanID)
}

func (m *Mock) report(ctx context.Context, f report.Format, scanID string) ([]byte, error) {
	if err := m.sleep(ctx, time.Second); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, f, report.New(m.completedScan(scanID), m.now())); err != nil {
		return nil, apperrors.NewAPIError(apperrors.StatusFromError(err), err.Error(), "")
	}
	return buf.Bytes(), nil
}

func (m *Mock) Login(ctx context.Context, email, password string) (auth.Session, error) {
	if err := m.sleep(ctx, 500*time.Millisecond); err != nil {
		return auth.Session{}, err
	}
	if email == "" || password == "" {
		return auth.Session{}, apperrors.NewAPIError(401, "invalid email or password", "")
	}
	u := auth.User{ID: 1, Email: email, Name: "Demo User", CreatedAt: m.now()}
	m.mu.Lock()
	m.user = &u
	m.mu.Unlock()
	return auth.Session{AccessToken: "mock-token", TokenType: "bearer", User: u}, nil
}

func (m *Mock) Register(ctx context.Context, req RegisterRequest) (auth.User, error) {
	if err := m.sleep(ctx, 500*time.Millisecond); err != nil {
		return auth.User{}, err
	}
	return auth.User{ID: 1, Email: req.Email, Name: req.FullName, CreatedAt: m.now()}, nil
}

func (m *Mock) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
	return nil
}

func (m *Mock) CurrentUser(ctx context.Context) (auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return auth.User{}, apperrors.NewAPIError(401, "not logged in", "")
	}
	return *m.user, nil
}
