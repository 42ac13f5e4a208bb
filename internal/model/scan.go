package model

import "time"

// ScanStatus is the lifecycle state of a simulated scan.
type ScanStatus string

const (
	StatusPending   ScanStatus = "pending"
	StatusRunning   ScanStatus = "running"
	StatusCompleted ScanStatus = "completed"
	StatusFailed    ScanStatus = "failed"
	StatusCancelled ScanStatus = "cancelled"
)

// Terminal reports whether no further transitions happen from s.
func (s ScanStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ScanMode is the cosmetic mode picked on the dashboard. It never changes
// what the simulation does.
type ScanMode string

const (
	ModeStealth    ScanMode = "stealth"
	ModeAggressive ScanMode = "aggressive"
	ModeSilent     ScanMode = "silent"
)

// ScanModes lists the selectable modes in display order.
var ScanModes = []ScanMode{ModeStealth, ModeAggressive, ModeSilent}

// ParseScanMode returns ModeStealth for an empty string.
func ParseScanMode(s string) (ScanMode, bool) {
	if s == "" {
		return ModeStealth, true
	}
	for _, m := range ScanModes {
		if ScanMode(s) == m {
			return m, true
		}
	}
	return "", false
}

// ScanType is the depth picked on the scan form. Like ScanMode it is only
// displayed.
type ScanType string

const (
	TypeQuick    ScanType = "quick"
	TypeStandard ScanType = "standard"
	TypeFull     ScanType = "full"
)

// ScanTypes lists the selectable types in display order.
var ScanTypes = []ScanType{TypeQuick, TypeStandard, TypeFull}

// ParseScanType returns TypeQuick for an empty string.
func ParseScanType(s string) (ScanType, bool) {
	if s == "" {
		return TypeQuick, true
	}
	for _, t := range ScanTypes {
		if ScanType(s) == t {
			return t, true
		}
	}
	return "", false
}

// LogEntry is one line of a scan's activity log.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Phase   string    `json:"phase,omitempty"`
	Message string    `json:"message"`
}

// Scan is the display record of one simulated scan.
type Scan struct {
	ID              string          `json:"id"`
	TargetURL       string          `json:"target_url"`
	Mode            ScanMode        `json:"mode"`
	Type            ScanType        `json:"scan_type"`
	Status          ScanStatus      `json:"status"`
	Progress        float64         `json:"progress"`
	CurrentStep     int             `json:"current_step"`
	Paused          bool            `json:"paused"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
	Logs            []LogEntry      `json:"logs,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	Error           string          `json:"error,omitempty"`
}

// Clone returns a deep copy so stores never hand out shared slices.
func (s Scan) Clone() Scan {
	c := s
	if s.Vulnerabilities != nil {
		c.Vulnerabilities = append([]Vulnerability(nil), s.Vulnerabilities...)
	}
	if s.Logs != nil {
		c.Logs = append([]LogEntry(nil), s.Logs...)
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		c.CompletedAt = &t
	}
	return c
}

// AddLog appends a log line.
func (s *Scan) AddLog(at time.Time, level, phase, msg string) {
	s.Logs = append(s.Logs, LogEntry{Time: at, Level: level, Phase: phase, Message: msg})
}
