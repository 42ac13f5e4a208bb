// Package simulation drives the fixed, timer-based scan sequence shown on the
// dashboard. Nothing here touches the network: every phase is a wait and the
// findings are hard-coded fixtures.
package simulation

import (
	"time"

	"scandemo/internal/model"
)

// FixtureSpec describes a canned vulnerability injected part-way through a
// phase.
type FixtureSpec struct {
	Delay time.Duration
	Build func(target string, at time.Time) model.Vulnerability
}

// Phase is one named step of the simulated scan.
type Phase struct {
	Name        string
	Description string
	Duration    time.Duration
	Fixture     *FixtureSpec
}

// DefaultPhases returns the dashboard sequence. Its total duration is 16s.
func DefaultPhases() []Phase {
	return []Phase{
		{
			Name:        "Connectivity Check",
			Description: "Establishing a connection to the target URL",
			Duration:    2 * time.Second,
		},
		{
			Name:        "Port Scan",
			Description: "Detecting open ports and services",
			Duration:    3 * time.Second,
		},
		{
			Name:        "XSS Test",
			Description: "Checking for cross-site scripting issues",
			Duration:    4 * time.Second,
			Fixture:     &FixtureSpec{Delay: 2 * time.Second, Build: xssFixture},
		},
		{
			Name:        "SQL Injection Test",
			Description: "Checking for SQL injection issues",
			Duration:    3 * time.Second,
			Fixture:     &FixtureSpec{Delay: 2 * time.Second, Build: sqlInjectionFixture},
		},
		{
			Name:        "Security Headers",
			Description: "Analysing HTTP security headers",
			Duration:    2 * time.Second,
			Fixture:     &FixtureSpec{Delay: 2 * time.Second, Build: headersFixture},
		},
		{
			Name:        "Result Analysis",
			Description: "Analysing the detected issues",
			Duration:    2 * time.Second,
		},
	}
}

func xssFixture(target string, at time.Time) model.Vulnerability {
	return model.Vulnerability{
		Title:       "Reflected XSS Detected",
		Description: "Cross-site scripting vulnerability found in a URL parameter",
		Severity:    model.SeverityHigh,
		CVE:         "CVE-2024-5678",
		CVSS:        7.1,
		Type:        "XSS",
		Location:    target,
		Evidence:    `Parameter: search, Payload: <script>alert("XSS")</script>`,
		Scanner:     "XSS Scanner",
		Timestamp:   at,
	}
}

func sqlInjectionFixture(target string, at time.Time) model.Vulnerability {
	return model.Vulnerability{
		Title:       "SQL Injection Detected",
		Description: "SQL injection vulnerability found in a form field",
		Severity:    model.SeverityCritical,
		CVE:         "CVE-2024-1234",
		CVSS:        9.8,
		Type:        "Injection",
		Location:    target,
		Evidence:    "Field: username, Payload: ' OR 1=1--",
		Scanner:     "SQLMap Scanner",
		Timestamp:   at,
	}
}

func headersFixture(target string, at time.Time) model.Vulnerability {
	return model.Vulnerability{
		Title:       "Missing Security Headers",
		Description: "Important security headers are missing or misconfigured",
		Severity:    model.SeverityMedium,
		CVSS:        5.3,
		Type:        "Configuration",
		Location:    target,
		Evidence:    "Missing: X-Frame-Options, X-Content-Type-Options",
		Scanner:     "Security Headers Scanner",
		Timestamp:   at,
	}
}

// TotalDuration is the wall time a run takes when never paused.
func TotalDuration(phases []Phase) time.Duration {
	var total time.Duration
	for _, p := range phases {
		total += p.Duration
	}
	return total
}

// Scale returns a copy of phases with every duration and fixture delay
// multiplied by factor. A non-positive factor leaves the durations alone.
func Scale(phases []Phase, factor float64) []Phase {
	out := make([]Phase, len(phases))
	for i, p := range phases {
		out[i] = p
		if factor <= 0 || factor == 1 {
			continue
		}
		out[i].Duration = scaleDuration(p.Duration, factor)
		if p.Fixture != nil {
			f := *p.Fixture
			f.Delay = scaleDuration(f.Delay, factor)
			out[i].Fixture = &f
		}
	}
	return out
}

func scaleDuration(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

// Progress is the overall percentage after completed of total phases.
func Progress(completed, total int) float64 {
	if total <= 0 {
		return 100
	}
	return float64(completed) / float64(total) * 100
}
