package simulation

import (
	"context"
	"sync"
	"testing"
	"time"

	"scandemo/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	started   []int
	fixtures  []model.Vulnerability
	progress  []float64
	completed bool
	events    []string
}

func (s *recordingSink) PhaseStarted(step int, p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, step)
	s.events = append(s.events, "start:"+p.Name)
}

func (s *recordingSink) FixtureFound(step int, v model.Vulnerability) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixtures = append(s.fixtures, v)
	s.events = append(s.events, "fixture:"+v.Title)
}

func (s *recordingSink) PhaseCompleted(step int, progress float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, progress)
	s.events = append(s.events, "done")
}

func (s *recordingSink) Completed() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = true
}

func (s *recordingSink) snapshot() recordingSink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return recordingSink{
		started:   append([]int(nil), s.started...),
		fixtures:  append([]model.Vulnerability(nil), s.fixtures...),
		progress:  append([]float64(nil), s.progress...),
		completed: s.completed,
		events:    append([]string(nil), s.events...),
	}
}

// fastPhases shrinks the 16s sequence to 80ms.
func fastPhases() []Phase {
	return Scale(DefaultPhases(), 0.005)
}

func TestDefaultPhases(t *testing.T) {
	phases := DefaultPhases()
	require.Len(t, phases, 6)
	assert.Equal(t, 16*time.Second, TotalDuration(phases))

	var withFixture []string
	for _, p := range phases {
		if p.Fixture != nil {
			withFixture = append(withFixture, p.Name)
		}
	}
	assert.Equal(t, []string{"XSS Test", "SQL Injection Test", "Security Headers"}, withFixture)
}

func TestScale(t *testing.T) {
	phases := DefaultPhases()
	scaled := Scale(phases, 0.5)
	assert.Equal(t, 8*time.Second, TotalDuration(scaled))
	assert.Equal(t, time.Second, scaled[2].Fixture.Delay)
	// The source slice is untouched.
	assert.Equal(t, 2*time.Second, phases[2].Fixture.Delay)

	assert.Equal(t, TotalDuration(phases), TotalDuration(Scale(phases, 0)))
}

func TestProgress(t *testing.T) {
	assert.InDelta(t, 50.0, Progress(3, 6), 0.0001)
	assert.InDelta(t, 100.0, Progress(6, 6), 0.0001)
	assert.Equal(t, 100.0, Progress(0, 0))
}

func TestRunner_CompletesAllPhases(t *testing.T) {
	sink := &recordingSink{}
	r := NewRunner(fastPhases(), nil)

	start := time.Now()
	err := r.Run(context.Background(), "https://a.test", sink)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), TotalDuration(fastPhases()))

	got := sink.snapshot()
	assert.True(t, got.completed)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, got.started)
	require.Len(t, got.progress, 6)
	for i, p := range got.progress {
		assert.InDelta(t, Progress(i+1, 6), p, 0.0001)
	}
	assert.InDelta(t, 100.0, got.progress[5], 0.0001)
}

func TestRunner_FixturesAreIndependentOfTarget(t *testing.T) {
	titles := func(target string) []string {
		sink := &recordingSink{}
		require.NoError(t, NewRunner(fastPhases(), nil).Run(context.Background(), target, sink))
		var out []string
		for _, v := range sink.snapshot().fixtures {
			out = append(out, v.Title)
			assert.Equal(t, target, v.Location)
		}
		return out
	}

	a := titles("https://a.test")
	b := titles("https://b.test")
	assert.Equal(t, []string{"Reflected XSS Detected", "SQL Injection Detected", "Missing Security Headers"}, a)
	assert.Equal(t, a, b)
}

func TestRunner_FixtureFiresBeforePhaseCompletes(t *testing.T) {
	sink := &recordingSink{}
	require.NoError(t, NewRunner(fastPhases(), nil).Run(context.Background(), "https://a.test", sink))

	assert.Equal(t, []string{
		"start:Connectivity Check", "done",
		"start:Port Scan", "done",
		"start:XSS Test", "fixture:Reflected XSS Detected", "done",
		"start:SQL Injection Test", "fixture:SQL Injection Detected", "done",
		"start:Security Headers", "fixture:Missing Security Headers", "done",
		"start:Result Analysis", "done",
	}, sink.snapshot().events)
}

func TestRunner_CancelStopsFurtherCallbacks(t *testing.T) {
	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner(Scale(DefaultPhases(), 0.05), nil) // 800ms total

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, "https://a.test", sink) }()

	time.Sleep(120 * time.Millisecond) // inside the port scan phase
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}

	before := sink.snapshot()
	time.Sleep(900 * time.Millisecond)
	after := sink.snapshot()

	assert.False(t, after.completed)
	assert.Equal(t, before.events, after.events)
	assert.Empty(t, after.fixtures)
}

func TestRunner_PauseFreezesProgress(t *testing.T) {
	sink := &recordingSink{}
	gate := NewGate()
	phases := []Phase{
		{Name: "one", Duration: 100 * time.Millisecond},
		{Name: "two", Duration: 100 * time.Millisecond},
	}
	r := NewRunner(phases, gate)

	done := make(chan error, 1)
	go func() { done <- r.Run(context.Background(), "https://a.test", sink) }()

	time.Sleep(30 * time.Millisecond)
	require.True(t, gate.Pause())
	assert.False(t, gate.Pause())
	assert.True(t, gate.Paused())

	time.Sleep(250 * time.Millisecond)
	assert.Empty(t, sink.snapshot().progress, "no phase may complete while paused")

	require.True(t, gate.Resume())
	assert.False(t, gate.Resume())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not finish after resume")
	}
	assert.True(t, sink.snapshot().completed)
}

func TestRunner_CancelWhilePaused(t *testing.T) {
	gate := NewGate()
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner([]Phase{{Name: "only", Duration: time.Second}}, gate)
	gate.Pause()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, "https://a.test", &recordingSink{}) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("paused runner ignored cancellation")
	}
}
