package simulation

import (
	"context"
	"time"

	"scandemo/internal/model"
)

// Sink receives the observable steps of a run. Calls happen on the runner's
// goroutine, in order. After the run context is cancelled no further call is
// made by the runner, but a call already in flight may still be executing, so
// sinks that share state must check the context themselves before mutating.
type Sink interface {
	PhaseStarted(step int, phase Phase)
	FixtureFound(step int, v model.Vulnerability)
	PhaseCompleted(step int, progress float64)
	Completed()
}

// Runner executes a phase sequence for a single target.
type Runner struct {
	phases []Phase
	gate   *Gate
	now    func() time.Time
}

// NewRunner creates a runner. A nil gate means the run cannot be paused.
func NewRunner(phases []Phase, gate *Gate) *Runner {
	if gate == nil {
		gate = NewGate()
	}
	return &Runner{phases: phases, gate: gate, now: time.Now}
}

// Run walks every phase and reports to sink. It returns ctx.Err() when the
// run is cancelled and nil once Completed has been delivered.
func (r *Runner) Run(ctx context.Context, target string, sink Sink) error {
	total := len(r.phases)
	for i, p := range r.phases {
		if err := ctx.Err(); err != nil {
			return err
		}
		sink.PhaseStarted(i, p)

		var spent time.Duration
		if p.Fixture != nil {
			delay := min(p.Fixture.Delay, p.Duration)
			if err := r.wait(ctx, delay); err != nil {
				return err
			}
			sink.FixtureFound(i, p.Fixture.Build(target, r.now()))
			spent = delay
		}

		if err := r.wait(ctx, p.Duration-spent); err != nil {
			return err
		}
		sink.PhaseCompleted(i, Progress(i+1, total))
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	sink.Completed()
	return nil
}

// wait blocks for d of unpaused time.
func (r *Runner) wait(ctx context.Context, d time.Duration) error {
	remaining := d
	for {
		paused, changed := r.gate.state()
		if paused {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-changed:
				continue
			}
		}

		if remaining <= 0 {
			return ctx.Err()
		}

		start := time.Now()
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			return nil
		case <-changed:
			timer.Stop()
			remaining -= time.Since(start)
		}
	}
}
