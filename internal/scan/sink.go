package scan

import (
	"context"
	"fmt"
	"log/slog"

	"scandemo/internal/model"
	"scandemo/internal/notify"
	"scandemo/internal/simulation"
)

// runSink applies one run's callbacks to the store.
type runSink struct {
	s     *Service
	id    string
	ctx   context.Context
	phase string
}

// apply runs fn under the service lock unless the run was cancelled.
func (k *runSink) apply(fn func(sc *model.Scan), evt func(sc model.Scan) Event) (model.Scan, bool) {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	if k.ctx.Err() != nil {
		return model.Scan{}, false
	}
	sc, err := k.s.store.Update(k.id, func(sc *model.Scan) error {
		fn(sc)
		return nil
	})
	if err != nil {
		slog.Error("Failed to update scan", "scan_id", k.id, "error", err)
		return model.Scan{}, false
	}
	k.s.publishLocked(evt(sc))
	return sc, true
}

func (k *runSink) PhaseStarted(step int, phase simulation.Phase) {
	k.phase = phase.Name
	k.apply(func(sc *model.Scan) {
		sc.CurrentStep = step
		sc.AddLog(k.s.now(), "info", phase.Name, fmt.Sprintf("Starting %s: %s", phase.Name, phase.Description))
	}, func(sc model.Scan) Event {
		return Event{Type: EventPhase, ScanID: sc.ID, Status: sc.Status, Step: step, Phase: phase.Name, Progress: sc.Progress}
	})
	slog.Debug("Scan phase started", "scan_id", k.id, "phase", phase.Name)
}

func (k *runSink) FixtureFound(step int, v model.Vulnerability) {
	v.ID = k.s.vulnSeq.Add(1)
	_, ok := k.apply(func(sc *model.Scan) {
		sc.Vulnerabilities = append(sc.Vulnerabilities, v)
		sc.AddLog(k.s.now(), "warning", k.phase, fmt.Sprintf("Found: %s (%s)", v.Title, v.Severity.Title()))
	}, func(sc model.Scan) Event {
		found := v
		return Event{Type: EventVulnerability, ScanID: sc.ID, Status: sc.Status, Step: step, Phase: k.phase, Progress: sc.Progress, Vulnerability: &found}
	})
	if ok {
		k.s.metrics.FixtureInjected(v.Type)
		slog.Info("Scan finding recorded", "scan_id", k.id, "phase", k.phase, "title", v.Title)
	}
}

func (k *runSink) PhaseCompleted(step int, progress float64) {
	k.apply(func(sc *model.Scan) {
		sc.CurrentStep = step + 1
		sc.Progress = progress
		sc.AddLog(k.s.now(), "success", k.phase, fmt.Sprintf("%s completed", k.phase))
	}, func(sc model.Scan) Event {
		return Event{Type: EventProgress, ScanID: sc.ID, Status: sc.Status, Step: sc.CurrentStep, Phase: k.phase, Progress: sc.Progress}
	})
}

func (k *runSink) Completed() {
	sc, ok := k.apply(func(sc *model.Scan) {
		now := k.s.now()
		sc.Status = model.StatusCompleted
		sc.Progress = 100
		sc.Paused = false
		sc.CompletedAt = &now
		sc.AddLog(now, "success", "", fmt.Sprintf("Scan completed: %d vulnerabilities found", len(sc.Vulnerabilities)))
		delete(k.s.runs, k.id)
	}, func(sc model.Scan) Event {
		return Event{Type: EventCompleted, ScanID: sc.ID, Status: sc.Status, Step: sc.CurrentStep, Progress: sc.Progress}
	})
	if !ok {
		return
	}
	k.s.metrics.ScanFinished(string(model.StatusCompleted))
	slog.Info("Scan completed", "scan_id", k.id, "vulnerabilities", len(sc.Vulnerabilities))
	k.s.toast(context.Background(), notify.EventComplete, notify.LevelSuccess,
		fmt.Sprintf("Scan completed: %d vulnerabilities found", len(sc.Vulnerabilities)), k.id)
}
