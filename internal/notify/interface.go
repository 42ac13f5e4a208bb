// Package notify delivers the transient toast messages a scan produces to
// whoever is listening: the log, the web dashboard and optionally Slack.
package notify

import (
	"context"
	"time"
)

// Level is the toast style.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event types
const (
	EventStart      = "on_start"
	EventComplete   = "on_complete"
	EventCancel     = "on_cancel"
	EventValidation = "on_validation_error"
)

// Toast is a short-lived user notification.
type Toast struct {
	Event   string    `json:"event"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	ScanID  string    `json:"scan_id,omitempty"`
	Time    time.Time `json:"time"`
}

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Notify(ctx context.Context, toast Toast) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, toast Toast) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, toast Toast) error {
	return f(ctx, toast)
}
