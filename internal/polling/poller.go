package polling

import (
	"context"
	"log/slog"
	"time"
)

// Poller calls a function on a fixed interval.
type Poller struct {
	config *Config
	name   string
}

// NewPoller creates a new poller instance. name only appears in logs.
func NewPoller(name string, cfg *Config) *Poller {
	if cfg == nil || cfg.Interval <= 0 {
		cfg = &Config{Interval: DefaultInterval}
	}
	return &Poller{config: cfg, name: name}
}

// Interval returns the tick period.
func (p *Poller) Interval() time.Duration {
	return p.config.Interval
}

// Start calls fn on every tick until ctx is done. It blocks.
func (p *Poller) Start(ctx context.Context, fn func(ctx context.Context)) {
	slog.Debug("Starting poller", "name", p.name, "interval", p.config.Interval)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Debug("Stopping poller", "name", p.name)
			return
		case <-ticker.C:
			// A tick racing with cancellation must not run fn.
			if ctx.Err() != nil {
				return
			}
			fn(ctx)
		}
	}
}

// Until polls fn until it reports done, fn fails or ctx ends.
func (p *Poller) Until(parent context.Context, fn func(ctx context.Context) (bool, error)) error {
	if done, err := fn(parent); err != nil || done {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		finished bool
		result   error
	)
	p.Start(ctx, func(ctx context.Context) {
		done, err := fn(ctx)
		if err != nil || done {
			finished, result = true, err
			cancel()
		}
	})
	if finished {
		return result
	}
	return parent.Err()
}
