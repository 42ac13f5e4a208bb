package scan

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scandemo/internal/db"
	apperrors "scandemo/internal/errors"
	"scandemo/internal/metrics"
	"scandemo/internal/model"
	"scandemo/internal/notify"
	"scandemo/internal/simulation"
)

func newTestService(t *testing.T, factor float64, opts ...Option) (*Service, *notify.Recorder) {
	t.Helper()
	rec := notify.NewRecorder(0)
	opts = append([]Option{
		WithPhases(simulation.Scale(simulation.DefaultPhases(), factor)),
		WithNotifier(rec),
	}, opts...)
	svc := NewService(db.NewMemoryStore(), opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})
	return svc, rec
}

func waitDone(t *testing.T, svc *Service, id string) model.Scan {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sc, err := svc.Wait(ctx, id)
	require.NoError(t, err)
	return sc
}

func TestStart_Completes(t *testing.T) {
	svc, rec := newTestService(t, 0.005)

	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, sc.Status)
	assert.Equal(t, model.ModeStealth, sc.Mode)
	assert.Equal(t, model.TypeQuick, sc.Type)
	assert.NotNil(t, sc.StartedAt)

	done := waitDone(t, svc, sc.ID)
	assert.Equal(t, model.StatusCompleted, done.Status)
	assert.Equal(t, 100.0, done.Progress)
	assert.Equal(t, len(svc.Phases()), done.CurrentStep)
	assert.NotNil(t, done.CompletedAt)
	require.Len(t, done.Vulnerabilities, 3)
	assert.Equal(t, "Reflected XSS Detected", done.Vulnerabilities[0].Title)
	assert.Equal(t, "SQL Injection Detected", done.Vulnerabilities[1].Title)
	assert.Equal(t, "Missing Security Headers", done.Vulnerabilities[2].Title)
	assert.NotEqual(t, done.Vulnerabilities[0].ID, done.Vulnerabilities[1].ID)
	assert.NotEmpty(t, done.Logs)

	toasts := rec.ForScan(sc.ID)
	require.Len(t, toasts, 2)
	assert.Equal(t, notify.EventComplete, toasts[0].Event)
	assert.Equal(t, notify.EventStart, toasts[1].Event)
	assert.False(t, svc.Active())
}

func TestStart_FixturesIndependentOfTarget(t *testing.T) {
	svc, _ := newTestService(t, 0.005)

	a, err := svc.Start(context.Background(), "https://a.example", model.ModeAggressive, model.TypeFull)
	require.NoError(t, err)
	b, err := svc.Start(context.Background(), "http://b.test/path", model.ModeSilent, model.TypeStandard)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID, "concurrent starts create independent scans")

	da := waitDone(t, svc, a.ID)
	dbScan := waitDone(t, svc, b.ID)
	titles := func(sc model.Scan) []string {
		var out []string
		for _, v := range sc.Vulnerabilities {
			out = append(out, v.Title)
		}
		return out
	}
	assert.Equal(t, titles(da), titles(dbScan))
	assert.Equal(t, "https://a.example", da.Vulnerabilities[0].Location)
}

func TestStart_InvalidTarget(t *testing.T) {
	svc, rec := newTestService(t, 0.005)

	_, err := svc.Start(context.Background(), "not a url", "", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidTarget)

	list, err := svc.List()
	require.NoError(t, err)
	assert.Empty(t, list)

	toasts := rec.Recent()
	require.Len(t, toasts, 1)
	assert.Equal(t, notify.LevelError, toasts[0].Level)
	assert.Equal(t, model.MsgInvalidTarget, toasts[0].Message)

	_, err = svc.Current()
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStart_InvalidMode(t *testing.T) {
	svc, _ := newTestService(t, 0.005)
	_, err := svc.Start(context.Background(), "https://example.com", "loud", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	_, err = svc.Start(context.Background(), "https://example.com", "", "deep")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestStop(t *testing.T) {
	svc, rec := newTestService(t, 0.05)

	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)

	stopped, err := svc.Stop(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, stopped.Status)
	assert.Equal(t, 0.0, stopped.Progress)

	// Nothing lands after stop even once every phase would have elapsed.
	time.Sleep(simulation.TotalDuration(svc.Phases()) + 100*time.Millisecond)
	after, err := svc.Get(sc.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, after.Status)
	assert.Equal(t, 0.0, after.Progress)
	assert.Equal(t, len(stopped.Vulnerabilities), len(after.Vulnerabilities))
	assert.Equal(t, len(stopped.Logs), len(after.Logs))

	_, err = svc.Stop(context.Background(), sc.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = svc.Stop(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.Equal(t, notify.EventCancel, rec.ForScan(sc.ID)[0].Event)
}

func TestStop_KeepsRecordedFindings(t *testing.T) {
	svc, _ := newTestService(t, 0.05)
	events, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)

	deadline := time.After(5 * time.Second)
	for found := false; !found; {
		select {
		case e := <-events:
			found = e.Type == EventVulnerability && e.ScanID == sc.ID
		case <-deadline:
			t.Fatal("no finding before deadline")
		}
	}

	stopped, err := svc.Stop(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, stopped.Vulnerabilities)
	assert.Equal(t, 0.0, stopped.Progress)
}

func TestPauseResume(t *testing.T) {
	svc, _ := newTestService(t, 0.02)

	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)

	paused, err := svc.Pause(sc.ID)
	require.NoError(t, err)
	assert.True(t, paused.Paused)

	_, err = svc.Pause(sc.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	frozen, err := svc.Get(sc.ID)
	require.NoError(t, err)
	time.Sleep(simulation.TotalDuration(svc.Phases()) + 50*time.Millisecond)
	later, err := svc.Get(sc.ID)
	require.NoError(t, err)
	assert.Equal(t, frozen.Progress, later.Progress)
	assert.Equal(t, model.StatusRunning, later.Status)

	resumed, err := svc.Resume(sc.ID)
	require.NoError(t, err)
	assert.False(t, resumed.Paused)

	done := waitDone(t, svc, sc.ID)
	assert.Equal(t, model.StatusCompleted, done.Status)

	_, err = svc.Pause(sc.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	_, err = svc.Resume("missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestStopWhilePaused(t *testing.T) {
	svc, _ := newTestService(t, 0.02)

	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)
	_, err = svc.Pause(sc.ID)
	require.NoError(t, err)

	stopped, err := svc.Stop(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.False(t, stopped.Paused)

	done := waitDone(t, svc, sc.ID)
	assert.Equal(t, model.StatusCancelled, done.Status)
}

func TestRetry(t *testing.T) {
	svc, _ := newTestService(t, 0.005)

	sc, err := svc.Start(context.Background(), "https://example.com", model.ModeSilent, model.TypeFull)
	require.NoError(t, err)

	_, err = svc.Retry(context.Background(), sc.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = svc.Stop(context.Background(), sc.ID)
	require.NoError(t, err)

	retried, err := svc.Retry(context.Background(), sc.ID)
	require.NoError(t, err)
	assert.NotEqual(t, sc.ID, retried.ID)
	assert.Equal(t, sc.TargetURL, retried.TargetURL)
	assert.Equal(t, model.ModeSilent, retried.Mode)
	assert.Equal(t, model.TypeFull, retried.Type)

	current, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, retried.ID, current.ID)

	done := waitDone(t, svc, retried.ID)
	assert.Equal(t, model.StatusCompleted, done.Status)

	_, err = svc.Retry(context.Background(), done.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestDelete(t *testing.T) {
	svc, _ := newTestService(t, 0.02)

	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)
	assert.True(t, svc.Active())

	assert.ErrorIs(t, svc.Delete(sc.ID), apperrors.ErrInvalidState)

	waitDone(t, svc, sc.ID)
	require.NoError(t, svc.Delete(sc.ID))

	_, err = svc.Get(sc.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.Current()
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(sc.ID), apperrors.ErrNotFound)
}

func TestVulnerabilitiesAndTriage(t *testing.T) {
	svc, _ := newTestService(t, 0.005)

	all, err := svc.Vulnerabilities()
	require.NoError(t, err)
	require.Len(t, all, 3, "samples only")

	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)
	done := waitDone(t, svc, sc.ID)

	all, err = svc.Vulnerabilities()
	require.NoError(t, err)
	require.Len(t, all, 6)
	assert.Equal(t, sc.ID, all[0].ScanID)
	for _, f := range all {
		assert.Equal(t, model.TriageOpen, f.Status)
	}

	id := done.Vulnerabilities[1].ID
	f, err := svc.SetTriage(id, model.TriageConfirmed)
	require.NoError(t, err)
	assert.Equal(t, model.TriageConfirmed, f.Status)
	assert.Equal(t, "SQL Injection Detected", f.Title)

	got, err := svc.Vulnerability(id)
	require.NoError(t, err)
	assert.Equal(t, model.TriageConfirmed, got.Status)

	stored, err := svc.Get(sc.ID)
	require.NoError(t, err)
	assert.Equal(t, done.Vulnerabilities, stored.Vulnerabilities, "records are never mutated")

	_, err = svc.SetTriage(id, "ignored")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
	_, err = svc.SetTriage(424242, model.TriageFixed)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	sample, err := svc.Vulnerability(3)
	require.NoError(t, err)
	assert.Equal(t, "CVE-2024-9012", sample.CVE)
}

func TestSubscribe(t *testing.T) {
	svc, _ := newTestService(t, 0.005)
	events, unsubscribe := svc.Subscribe()
	defer unsubscribe()

	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)

	var types []EventType
	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-events:
			require.Equal(t, sc.ID, e.ScanID)
			types = append(types, e.Type)
			if e.Terminal() {
				assert.Equal(t, EventStarted, types[0])
				assert.Equal(t, EventCompleted, types[len(types)-1])
				count := func(want EventType) int {
					n := 0
					for _, ty := range types {
						if ty == want {
							n++
						}
					}
					return n
				}
				assert.Equal(t, 6, count(EventPhase))
				assert.Equal(t, 6, count(EventProgress))
				assert.Equal(t, 3, count(EventVulnerability))
				return
			}
		case <-timeout:
			t.Fatalf("timed out, saw %v", types)
		}
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	svc, _ := newTestService(t, 0.005)
	events, unsubscribe := svc.Subscribe()
	unsubscribe()
	unsubscribe()
	_, ok := <-events
	assert.False(t, ok)
}

func TestWaitHonoursContext(t *testing.T) {
	svc, _ := newTestService(t, 1)
	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = svc.Wait(ctx, sc.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServiceMetrics(t *testing.T) {
	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc, _ := newTestService(t, 0.005, WithMetrics(m))

	sc, err := svc.Start(context.Background(), "https://example.com", model.ModeAggressive, "")
	require.NoError(t, err)
	waitDone(t, svc, sc.ID)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansStarted.WithLabelValues("aggressive")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ScansFinished.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FixturesInjected.WithLabelValues("Injection")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ScansInProgress))
}

func TestSummary(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(t, 0.005,
		WithIDSource(func() string { return "scan_fixed" }),
		WithClock(func() time.Time { return fixed }),
	)

	sc, err := svc.Start(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, "scan_fixed", sc.ID)
	assert.True(t, sc.CreatedAt.Equal(fixed))
	waitDone(t, svc, sc.ID)

	sum, err := svc.Summary(sc.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Critical)
	assert.Equal(t, 1, sum.High)
	assert.Equal(t, 1, sum.Medium)
	assert.Equal(t, 21, sum.RiskScore)
	assert.Equal(t, 79, sum.SecurityScore)
}

func TestSummarize(t *testing.T) {
	empty := Summarize(nil)
	assert.Equal(t, 0, empty.Total)
	assert.Equal(t, 100, empty.SecurityScore)

	var many []model.Vulnerability
	for range 12 {
		many = append(many, model.Vulnerability{Severity: model.SeverityCritical})
	}
	many = append(many, model.Vulnerability{Severity: model.SeverityInfo})
	sum := Summarize(many)
	assert.Equal(t, 120, sum.RiskScore)
	assert.Equal(t, 0, sum.SecurityScore)
	assert.Equal(t, 1, sum.Info)
	assert.Equal(t, 12, sum.BySeverity[model.SeverityCritical])
}
