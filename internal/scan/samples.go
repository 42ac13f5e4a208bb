package scan

import (
	"time"

	"scandemo/internal/model"
)

// SampleVulnerabilities returns the records listed on the vulnerabilities
// page before any scan has run.
func SampleVulnerabilities(at time.Time) []model.Vulnerability {
	return []model.Vulnerability{
		{
			ID:          1,
			Title:       "SQL Injection Vulnerability",
			Description: "Potential SQL injection point detected in login form",
			Severity:    model.SeverityHigh,
			CVE:         "CVE-2024-1234",
			CVSS:        8.5,
			Type:        "Injection",
			Location:    "/login",
			Timestamp:   at,
		},
		{
			ID:          2,
			Title:       "XSS Cross-Site Scripting",
			Description: "Reflected XSS vulnerability in search parameter",
			Severity:    model.SeverityMedium,
			CVE:         "CVE-2024-5678",
			CVSS:        6.1,
			Type:        "XSS",
			Location:    "/search?q=",
			Timestamp:   at,
		},
		{
			ID:          3,
			Title:       "Outdated SSL/TLS Version",
			Description: "Server supports outdated TLS 1.0 protocol",
			Severity:    model.SeverityLow,
			CVE:         "CVE-2024-9012",
			CVSS:        3.1,
			Type:        "Cryptography",
			Location:    "TLS Configuration",
			Timestamp:   at,
		},
	}
}
