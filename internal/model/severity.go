package model

import (
	"fmt"
	"strings"
)

// Severity is the display label attached to a vulnerability record.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}

// ParseSeverity accepts any casing of a known severity label.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Severities {
		if sev == known {
			return sev, nil
		}
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Weight is the contribution of one finding to a scan's risk score.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 10
	case SeverityHigh:
		return 7
	case SeverityMedium:
		return 4
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Title returns the label with only its first letter upper-cased ("High").
func (s Severity) Title() string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(string(s))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// ColorClass is the badge class the site pages use for a severity.
func (s Severity) ColorClass() string {
	switch s {
	case SeverityCritical:
		return "sev-critical"
	case SeverityHigh:
		return "sev-high"
	case SeverityMedium:
		return "sev-medium"
	case SeverityLow:
		return "sev-low"
	case SeverityInfo:
		return "sev-info"
	default:
		return "sev-unknown"
	}
}
