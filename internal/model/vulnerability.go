package model

import "time"

// Vulnerability is a fictitious finding shown on the dashboard. Records are
// never mutated once created.
type Vulnerability struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Severity    Severity  `json:"severity"`
	CVE         string    `json:"cve,omitempty"`
	CVSS        float64   `json:"cvss"`
	Type        string    `json:"type"`
	Location    string    `json:"location"`
	Evidence    string    `json:"evidence,omitempty"`
	Scanner     string    `json:"scanner_name,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// TriageStatus is the reviewer annotation kept next to a vulnerability.
type TriageStatus string

const (
	TriageOpen          TriageStatus = "open"
	TriageConfirmed     TriageStatus = "confirmed"
	TriageFalsePositive TriageStatus = "false_positive"
	TriageFixed         TriageStatus = "fixed"
)

// ParseTriageStatus validates a triage label.
func ParseTriageStatus(s string) (TriageStatus, bool) {
	switch TriageStatus(s) {
	case TriageOpen, TriageConfirmed, TriageFalsePositive, TriageFixed:
		return TriageStatus(s), true
	}
	return "", false
}
