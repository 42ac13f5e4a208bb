package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// SlackNotifier sends notifications to Slack via a Webhook.
type SlackNotifier struct {
	WebhookURL string
	Client     *http.Client
}

// NewSlackNotifier creates a new SlackNotifier.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify posts the toast to the configured Slack webhook.
func (s *SlackNotifier) Notify(ctx context.Context, toast Toast) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL is not configured")
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	msg := &slack.WebhookMessage{
		Text: formatSlackText(toast),
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, client, msg); err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	return nil
}

func formatSlackText(toast Toast) string {
	icon := ":information_source:"
	switch toast.Level {
	case LevelSuccess:
		icon = ":white_check_mark:"
	case LevelWarning:
		icon = ":warning:"
	case LevelError:
		icon = ":x:"
	}
	if toast.ScanID == "" {
		return fmt.Sprintf("%s %s", icon, toast.Message)
	}
	return fmt.Sprintf("%s %s (`%s`)", icon, toast.Message, toast.ScanID)
}
