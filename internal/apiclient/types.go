package apiclient

import (
	"context"
	"time"

	"scandemo/internal/auth"
	"scandemo/internal/model"
	"scandemo/internal/scan"
)

// StartScanRequest is the body of POST /scan/start.
type StartScanRequest struct {
	URL      string         `json:"url"`
	ScanType model.ScanType `json:"scan_type,omitempty"`
	Mode     model.ScanMode `json:"mode,omitempty"`
}

// StartScanResponse acknowledges a started scan.
type StartScanResponse struct {
	ScanID    string    `json:"scan_id"`
	Status    string    `json:"status"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
}

// ScanStatus is the polling view of a scan.
type ScanStatus struct {
	ScanID               string           `json:"scan_id"`
	URL                  string           `json:"url"`
	Status               model.ScanStatus `json:"status"`
	Progress             float64          `json:"progress"`
	CurrentStep          int              `json:"current_step"`
	Paused               bool             `json:"paused"`
	VulnerabilitiesFound int              `json:"vulnerabilities_found"`
	Timestamp            time.Time        `json:"timestamp"`
}

// NewScanStatus builds the polling view of sc.
func NewScanStatus(sc model.Scan, at time.Time) ScanStatus {
	return ScanStatus{
		ScanID:               sc.ID,
		URL:                  sc.TargetURL,
		Status:               sc.Status,
		Progress:             sc.Progress,
		CurrentStep:          sc.CurrentStep,
		Paused:               sc.Paused,
		VulnerabilitiesFound: len(sc.Vulnerabilities),
		Timestamp:            at,
	}
}

// ScanResults is a scan's findings and aggregate.
type ScanResults struct {
	ScanID          string                `json:"scan_id"`
	URL             string                `json:"url"`
	Status          model.ScanStatus      `json:"status"`
	Vulnerabilities []model.Vulnerability `json:"vulnerabilities"`
	Summary         scan.Summary          `json:"summary"`
}

// NewScanResults builds the results view of sc.
func NewScanResults(sc model.Scan) ScanResults {
	vulns := sc.Vulnerabilities
	if vulns == nil {
		vulns = []model.Vulnerability{}
	}
	return ScanResults{
		ScanID:          sc.ID,
		URL:             sc.TargetURL,
		Status:          sc.Status,
		Vulnerabilities: vulns,
		Summary:         scan.Summarize(vulns),
	}
}

// UpdateVulnerabilityRequest is the body of PUT /vulnerabilities/{id}.
type UpdateVulnerabilityRequest struct {
	Status model.TriageStatus `json:"status"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error string `json:"error"`
	Toast string `json:"toast,omitempty"`
}

// API is the product backend as seen by the CLI. Client talks HTTP; Mock
// answers locally.
type API interface {
	StartScan(ctx context.Context, req StartScanRequest) (StartScanResponse, error)
	ScanStatus(ctx context.Context, scanID string) (ScanStatus, error)
	ScanResults(ctx context.Context, scanID string) (ScanResults, error)
	ListScans(ctx context.Context) ([]ScanStatus, error)
	StopScan(ctx context.Context, scanID string) (ScanStatus, error)

	Vulnerabilities(ctx context.Context) ([]scan.Finding, error)
	Vulnerability(ctx context.Context, id int64) (scan.Finding, error)
	UpdateVulnerabilityStatus(ctx context.Context, id int64, status model.TriageStatus) (scan.Finding, error)

	PDFReport(ctx context.Context, scanID string) ([]byte, error)
	ExcelReport(ctx context.Context, scanID string) ([]byte, error)
	JSONReport(ctx context.Context, scanID string) ([]byte, error)

	Login(ctx context.Context, email, password string) (auth.Session, error)
	Register(ctx context.Context, req RegisterRequest) (auth.User, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (auth.User, error)
}
