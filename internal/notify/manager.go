package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Manager fans a toast out to every registered notifier. Notifiers added
// with AddGated only receive the events enabled under
// notifications.<name>.events in configuration.
type Manager struct {
	always []Notifier
	gated  []gatedNotifier
	now    func() time.Time
}

type gatedNotifier struct {
	name     string
	notifier Notifier
}

// NewManager creates a manager delivering to the given notifiers.
func NewManager(notifiers ...Notifier) *Manager {
	return &Manager{always: notifiers, now: time.Now}
}

// NewManagerFromConfig builds the standard fan-out: log, the optional
// recorder and Slack when notifications.slack.enabled is set.
func NewManagerFromConfig(recorder *Recorder) *Manager {
	m := NewManager(LogNotifier{})
	if recorder != nil {
		m.Add(recorder)
	}
	if viper.GetBool("notifications.slack.enabled") {
		url := viper.GetString("notifications.slack.webhook_url")
		if url == "" {
			url = os.Getenv("SLACK_WEBHOOK_URL")
		}
		if url == "" {
			slog.Warn("slack notifications enabled but no webhook URL set")
		} else {
			m.AddGated("slack", NewSlackNotifier(url))
		}
	}
	return m
}

// Add registers a notifier that receives every toast.
func (m *Manager) Add(n Notifier) {
	m.always = append(m.always, n)
}

// AddGated registers a notifier subject to per-event enablement.
func (m *Manager) AddGated(name string, n Notifier) {
	m.gated = append(m.gated, gatedNotifier{name: name, notifier: n})
}

// Notify delivers toast to every enabled notifier. Delivery failures are
// joined; one failing notifier does not stop the others.
func (m *Manager) Notify(ctx context.Context, toast Toast) error {
	if toast.Time.IsZero() {
		toast.Time = m.now()
	}

	var errs []error
	for _, n := range m.always {
		if err := n.Notify(ctx, toast); err != nil {
			errs = append(errs, err)
		}
	}
	for _, g := range m.gated {
		if !IsEventEnabled(g.name, toast.Event) {
			continue
		}
		if err := g.notifier.Notify(ctx, toast); err != nil {
			slog.Error("Failed to send notification", "provider", g.name, "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsEventEnabled reports whether provider should receive event. Unset event
// keys count as enabled.
func IsEventEnabled(provider, event string) bool {
	key := "notifications." + provider + ".events." + event
	if !viper.IsSet(key) {
		return true
	}
	return viper.GetBool(key)
}
