package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes toasts to the structured log.
type LogNotifier struct {
	Logger *slog.Logger
}

// Notify logs the toast at a level matching its style.
func (l LogNotifier) Notify(ctx context.Context, toast Toast) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	switch toast.Level {
	case LevelWarning:
		level = slog.LevelWarn
	case LevelError:
		level = slog.LevelError
	}
	logger.Log(ctx, level, toast.Message, "event", toast.Event, "scan_id", toast.ScanID)
	return nil
}
