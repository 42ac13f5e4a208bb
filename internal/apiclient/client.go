// Package apiclient wraps the product backend's HTTP API. The simulated
// scan never uses it; the `api` CLI commands do.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "scandemo/internal/errors"
	"scandemo/internal/auth"
	"scandemo/internal/model"
	"scandemo/internal/scan"
)

// DefaultBaseURL is the local placeholder backend.
const DefaultBaseURL = "http://localhost:8000"

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Tokens supplies the bearer token. Nil means requests are anonymous.
	Tokens TokenStore
	// OnUnauthorized runs after a 401 cleared the token; it is where a
	// front end would send the user to the login page.
	OnUnauthorized func()
	HTTPClient     *http.Client
}

// Client handles product API interactions.
type Client struct {
	baseURL        string
	tokens         TokenStore
	onUnauthorized func()
	httpClient     *http.Client
}

var _ API = (*Client)(nil)

// New creates a client. An empty BaseURL uses DefaultBaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", base, err)
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:        base,
		tokens:         cfg.Tokens,
		onUnauthorized: cfg.OnUnauthorized,
		httpClient:     hc,
	}, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// raw performs the request and returns the body of a 2xx response.
func (c *Client) raw(ctx context.Context, method, path string, body any) ([]byte, error) {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := apperrors.NewAPIError(resp.StatusCode, errorMessage(data, resp.Status), resp.Header.Get("Retry-After"))
		if resp.StatusCode == http.StatusUnauthorized {
			c.handleUnauthorized()
		}
		return nil, apiErr
	}
	return data, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	data, err := c.raw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) handleUnauthorized() {
	if c.tokens != nil {
		if err := c.tokens.ClearToken(); err != nil {
			slog.Warn("Failed to clear API token", "error", err)
		}
	}
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}

func errorMessage(body []byte, fallback string) string {
	var e ErrorResponse
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	var detail struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &detail) == nil && detail.Detail != "" {
		return detail.Detail
	}
	return fallback
}

// StartScan asks the backend to scan req.URL.
func (c *Client) StartScan(ctx context.Context, req StartScanRequest) (StartScanResponse, error) {
	var out StartScanResponse
	err := c.do(ctx, http.MethodPost, "/scan/start", req, &out)
	return out, err
}

// ScanStatus fetches the progress of a scan.
func (c *Client) ScanStatus(ctx context.Context, scanID string) (ScanStatus, error) {
	var out ScanStatus
	err := c.do(ctx, http.MethodGet, "/scan/status/"+url.PathEscape(scanID), nil, &out)
	return out, err
}

// ScanResults fetches the findings of a scan.
func (c *Client) ScanResults(ctx context.Context, scanID string) (ScanResults, error) {
	var out ScanResults
	err := c.do(ctx, http.MethodGet, "/scan/result/"+url.PathEscape(scanID), nil, &out)
	return out, err
}

// ListScans lists every scan, newest first.
func (c *Client) ListScans(ctx context.Context) ([]ScanStatus, error) {
	var out []ScanStatus
	err := c.do(ctx, http.MethodGet, "/scan/list", nil, &out)
	return out, err
}

// StopScan cancels a running scan.
func (c *Client) StopScan(ctx context.Context, scanID string) (ScanStatus, error) {
	var out ScanStatus
	err := c.do(ctx, http.MethodPost, "/scan/stop/"+url.PathEscape(scanID), nil, &out)
	return out, err
}

// Vulnerabilities lists every finding.
func (c *Client) Vulnerabilities(ctx context.Context) ([]scan.Finding, error) {
	var out []scan.Finding
	err := c.do(ctx, http.MethodGet, "/vulnerabilities", nil, &out)
	return out, err
}

// Vulnerability fetches one finding.
func (c *Client) Vulnerability(ctx context.Context, id int64) (scan.Finding, error) {
	var out scan.Finding
	err := c.do(ctx, http.MethodGet, "/vulnerabilities/"+strconv.FormatInt(id, 10), nil, &out)
	return out, err
}

// UpdateVulnerabilityStatus sets a finding's triage status.
func (c *Client) UpdateVulnerabilityStatus(ctx context.Context, id int64, status model.TriageStatus) (scan.Finding, error) {
	var out scan.Finding
	err := c.do(ctx, http.MethodPut, "/vulnerabilities/"+strconv.FormatInt(id, 10), UpdateVulnerabilityRequest{Status: status}, &out)
	return out, err
}

// PDFReport downloads the PDF report.
func (c *Client) PDFReport(ctx context.Context, scanID string) ([]byte, error) {
	return c.report(ctx, "pdf", scanID)
}

// ExcelReport downloads the spreadsheet report.
func (c *Client) ExcelReport(ctx context.Context, scanID string) ([]byte, error) {
	return c.report(ctx, "excel", scanID)
}

// JSONReport downloads the JSON report.
func (c *Client) JSONReport(ctx context.Context, scanID string) ([]byte, error) {
	return c.report(ctx, "json", scanID)
}

func (c *Client) report(ctx context.Context, format, scanID string) ([]byte, error) {
	return c.raw(ctx, http.MethodGet, "/reports/"+format+"/"+url.PathEscape(scanID), nil)
}

// Login opens a session and stores its token.
func (c *Client) Login(ctx context.Context, email, password string) (auth.Session, error) {
	var out auth.Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", LoginRequest{Email: email, Password: password}, &out); err != nil {
		return auth.Session{}, err
	}
	if c.tokens != nil {
		if err := c.tokens.SetToken(out.AccessToken); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (auth.User, error) {
	var out auth.User
	err := c.do(ctx, http.MethodPost, "/auth/register", req, &out)
	return out, err
}

// Logout ends the session and forgets the token, even if the backend call
// fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	if c.tokens != nil {
		if clearErr := c.tokens.ClearToken(); clearErr != nil && err == nil {
			err = clearErr
		}
	}
	return err
}

// CurrentUser returns the logged-in account.
func (c *Client) CurrentUser(ctx context.Context) (auth.User, error) {
	var out auth.User
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out)
	return out, err
}
