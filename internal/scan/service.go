// Package scan owns the simulated scans: it starts runs, applies their
// progress to the store and publishes what happens to subscribers.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"scandemo/internal/db"
	apperrors "scandemo/internal/errors"
	"scandemo/internal/metrics"
	"scandemo/internal/model"
	"scandemo/internal/notify"
	"scandemo/internal/simulation"
)

// Finding is a vulnerability as listed on the vulnerabilities page, with the
// scan it came from and its triage status.
type Finding struct {
	model.Vulnerability
	ScanID string             `json:"scan_id,omitempty"`
	Status model.TriageStatus `json:"status"`
}

type run struct {
	cancel context.CancelFunc
	gate   *simulation.Gate
	done   chan struct{}
}

// Service is the scoped owner of every scan. Construct one per process (or
// per test) and pass it to its users.
type Service struct {
	// mu serialises every state change. Run callbacks take it and check
	// their run context first, so nothing lands after Stop returns.
	mu      sync.Mutex
	store   db.Store
	runs    map[string]*run
	triage  map[int64]model.TriageStatus
	current string

	phases   []simulation.Phase
	metrics  *metrics.Metrics
	notifier notify.Notifier
	now      func() time.Time
	newID    func() string
	vulnSeq  atomic.Int64
	samples  []model.Vulnerability
	events   *broker
	wg       sync.WaitGroup
}

// NewService creates a service storing scans in store.
func NewService(store db.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		runs:   make(map[string]*run),
		triage: make(map[int64]model.TriageStatus),
		phases: simulation.DefaultPhases(),
		now:    time.Now,
		newID:  func() string { return "scan_" + uuid.NewString() },
		events: newBroker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.vulnSeq.Store(s.now().UnixMilli())
	s.samples = SampleVulnerabilities(s.now())
	return s
}

// Phases returns the sequence every run walks.
func (s *Service) Phases() []simulation.Phase {
	return s.phases
}

// Start validates target and launches a new run. On a validation failure an
// error toast is sent and nothing else changes.
func (s *Service) Start(ctx context.Context, target string, mode model.ScanMode, scanType model.ScanType) (model.Scan, error) {
	url, err := model.ValidateTarget(target)
	if err != nil {
		s.toast(ctx, notify.EventValidation, notify.LevelError, userMessage(err), "")
		return model.Scan{}, err
	}
	if mode == "" {
		mode = model.ModeStealth
	}
	if _, ok := model.ParseScanMode(string(mode)); !ok {
		return model.Scan{}, fmt.Errorf("unknown scan mode %q: %w", mode, apperrors.ErrInvalidRequest)
	}
	if scanType == "" {
		scanType = model.TypeQuick
	}
	if _, ok := model.ParseScanType(string(scanType)); !ok {
		return model.Scan{}, fmt.Errorf("unknown scan type %q: %w", scanType, apperrors.ErrInvalidRequest)
	}

	s.mu.Lock()
	now := s.now()
	started := now
	sc := model.Scan{
		ID:              s.newID(),
		TargetURL:       url,
		Mode:            mode,
		Type:            scanType,
		Status:          model.StatusRunning,
		Vulnerabilities: []model.Vulnerability{},
		CreatedAt:       now,
		StartedAt:       &started,
	}
	sc.AddLog(now, "info", "", fmt.Sprintf("Scan started for %s (%s mode)", url, mode))
	if err := s.store.Save(sc); err != nil {
		s.mu.Unlock()
		return model.Scan{}, fmt.Errorf("failed to save scan: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{cancel: cancel, gate: simulation.NewGate(), done: make(chan struct{})}
	s.runs[sc.ID] = r
	s.current = sc.ID
	s.publishLocked(Event{Type: EventStarted, ScanID: sc.ID, Status: sc.Status})
	s.mu.Unlock()

	s.metrics.ScanStarted(string(mode))
	slog.Info("Scan started", "scan_id", sc.ID, "target", url, "mode", mode)

	runner := simulation.NewRunner(s.phases, r.gate)
	sink := &runSink{s: s, id: sc.ID, ctx: runCtx}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(r.done)
		defer cancel()
		if err := runner.Run(runCtx, url, sink); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Scan run failed", "scan_id", sc.ID, "error", err)
		}
	}()

	s.toast(ctx, notify.EventStart, notify.LevelSuccess, fmt.Sprintf("Scan started for %s", url), sc.ID)
	return sc, nil
}

// Stop cancels a pending or running scan. Progress drops to 0; findings
// already recorded are kept.
func (s *Service) Stop(ctx context.Context, id string) (model.Scan, error) {
	s.mu.Lock()
	if r, ok := s.runs[id]; ok {
		r.cancel()
	}
	sc, err := s.store.Update(id, func(sc *model.Scan) error {
		if sc.Status != model.StatusRunning && sc.Status != model.StatusPending {
			return fmt.Errorf("scan %s is %s: %w", id, sc.Status, apperrors.ErrInvalidState)
		}
		now := s.now()
		sc.Status = model.StatusCancelled
		sc.Progress = 0
		sc.Paused = false
		sc.CompletedAt = &now
		sc.AddLog(now, "warning", "", "Scan stopped by user")
		return nil
	})
	if err != nil {
		s.mu.Unlock()
		return model.Scan{}, err
	}
	delete(s.runs, id)
	s.publishLocked(Event{Type: EventCancelled, ScanID: id, Status: sc.Status})
	s.mu.Unlock()

	s.metrics.ScanFinished(string(model.StatusCancelled))
	slog.Info("Scan stopped", "scan_id", id)
	s.toast(ctx, notify.EventCancel, notify.LevelInfo, "Scan stopped", id)
	return sc, nil
}

// Pause freezes a running scan's timers.
func (s *Service) Pause(id string) (model.Scan, error) {
	return s.setPaused(id, true)
}

// Resume continues a paused scan from where it froze.
func (s *Service) Resume(id string) (model.Scan, error) {
	return s.setPaused(id, false)
}

func (s *Service) setPaused(id string, paused bool) (model.Scan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		if _, err := s.store.Get(id); err != nil {
			return model.Scan{}, err
		}
		return model.Scan{}, fmt.Errorf("scan %s is not running: %w", id, apperrors.ErrInvalidState)
	}

	sc, err := s.store.Update(id, func(sc *model.Scan) error {
		if sc.Status != model.StatusRunning {
			return fmt.Errorf("scan %s is %s: %w", id, sc.Status, apperrors.ErrInvalidState)
		}
		if sc.Paused == paused {
			return fmt.Errorf("scan %s paused=%t already: %w", id, paused, apperrors.ErrInvalidState)
		}
		sc.Paused = paused
		msg := "Scan resumed"
		if paused {
			msg = "Scan paused"
		}
		sc.AddLog(s.now(), "info", "", msg)
		return nil
	})
	if err != nil {
		return model.Scan{}, err
	}

	evt := EventResumed
	if paused {
		r.gate.Pause()
		evt = EventPaused
	} else {
		r.gate.Resume()
	}
	s.publishLocked(Event{Type: evt, ScanID: id, Status: sc.Status, Step: sc.CurrentStep, Progress: sc.Progress})
	return sc, nil
}

// Retry starts a new scan for the target of a cancelled or failed one.
func (s *Service) Retry(ctx context.Context, id string) (model.Scan, error) {
	prev, err := s.Get(id)
	if err != nil {
		return model.Scan{}, err
	}
	if prev.Status != model.StatusCancelled && prev.Status != model.StatusFailed {
		return model.Scan{}, fmt.Errorf("only cancelled or failed scans can be retried, scan %s is %s: %w", id, prev.Status, apperrors.ErrInvalidState)
	}
	return s.Start(ctx, prev.TargetURL, prev.Mode, prev.Type)
}

// Delete removes a finished scan.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if sc.Status == model.StatusRunning || sc.Status == model.StatusPending {
		return fmt.Errorf("cannot delete a %s scan: %w", sc.Status, apperrors.ErrInvalidState)
	}
	if err := s.store.Delete(id); err != nil {
		return err
	}
	for _, v := range sc.Vulnerabilities {
		delete(s.triage, v.ID)
	}
	if s.current == id {
		s.current = ""
	}
	return nil
}

// Get returns one scan.
func (s *Service) Get(id string) (model.Scan, error) {
	return s.store.Get(id)
}

// List returns every scan, newest first.
func (s *Service) List() ([]model.Scan, error) {
	return s.store.List()
}

// Current returns the most recently started scan.
func (s *Service) Current() (model.Scan, error) {
	s.mu.Lock()
	id := s.current
	s.mu.Unlock()
	if id == "" {
		return model.Scan{}, fmt.Errorf("no scan started: %w", apperrors.ErrNotFound)
	}
	return s.store.Get(id)
}

// Active reports whether any scan is running.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runs) > 0
}

// Wait blocks until scan id reaches a terminal status or ctx is done.
func (s *Service) Wait(ctx context.Context, id string) (model.Scan, error) {
	s.mu.Lock()
	r := s.runs[id]
	s.mu.Unlock()

	if r != nil {
		select {
		case <-ctx.Done():
			return model.Scan{}, ctx.Err()
		case <-r.done:
		}
	}

	// Stop holds mu from cancel until the cancelled status is stored.
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// Subscribe returns a channel of every event and a function that ends the
// subscription.
func (s *Service) Subscribe() (<-chan Event, func()) {
	return s.events.subscribe()
}

// Shutdown cancels every run and waits for their goroutines.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.runs))
	for id := range s.runs {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.Stop(ctx, id); err != nil && !errors.Is(err, apperrors.ErrInvalidState) {
			slog.Error("Failed to stop scan on shutdown", "scan_id", id, "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Summary aggregates a scan's findings.
func (s *Service) Summary(id string) (Summary, error) {
	sc, err := s.store.Get(id)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(sc.Vulnerabilities), nil
}

// Vulnerabilities lists findings from every scan plus the bundled samples,
// newest first.
func (s *Service) Vulnerabilities() ([]Finding, error) {
	scans, err := s.store.List()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Finding
	for _, sc := range scans {
		for _, v := range sc.Vulnerabilities {
			out = append(out, s.findingLocked(v, sc.ID))
		}
	}
	for _, v := range s.samples {
		out = append(out, s.findingLocked(v, ""))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Vulnerability returns one finding by ID.
func (s *Service) Vulnerability(id int64) (Finding, error) {
	all, err := s.Vulnerabilities()
	if err != nil {
		return Finding{}, err
	}
	for _, f := range all {
		if f.ID == id {
			return f, nil
		}
	}
	return Finding{}, fmt.Errorf("vulnerability %d: %w", id, apperrors.ErrNotFound)
}

// SetTriage records a reviewer status next to a finding. The finding itself
// is not modified.
func (s *Service) SetTriage(id int64, status model.TriageStatus) (Finding, error) {
	if _, ok := model.ParseTriageStatus(string(status)); !ok {
		return Finding{}, fmt.Errorf("unknown status %q: %w", status, apperrors.ErrInvalidRequest)
	}
	f, err := s.Vulnerability(id)
	if err != nil {
		return Finding{}, err
	}
	s.mu.Lock()
	s.triage[id] = status
	s.mu.Unlock()
	f.Status = status
	return f, nil
}

func (s *Service) findingLocked(v model.Vulnerability, scanID string) Finding {
	status, ok := s.triage[v.ID]
	if !ok {
		status = model.TriageOpen
	}
	return Finding{Vulnerability: v, ScanID: scanID, Status: status}
}

func (s *Service) publishLocked(e Event) {
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	s.events.publish(e)
}

func (s *Service) toast(ctx context.Context, event string, level notify.Level, msg, scanID string) {
	if s.notifier == nil {
		return
	}
	t := notify.Toast{Event: event, Level: level, Message: msg, ScanID: scanID, Time: s.now()}
	if err := s.notifier.Notify(ctx, t); err != nil {
		slog.Warn("Failed to deliver notification", "event", event, "scan_id", scanID, "error", err)
	}
}

func userMessage(err error) string {
	var te *model.TargetError
	if errors.As(err, &te) {
		return te.Message
	}
	return err.Error()
}
