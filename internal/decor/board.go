// Package decor produces the decorative dashboard counters: threat count,
// security score, active connections and engine label. The values are random
// and unrelated to any scan. They are for display only and must never be
// exported as metrics.
package decor

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"scandemo/internal/polling"
)

// Engines are the labels the engine counter cycles through.
var Engines = []string{"Nmap", "Nuclei", "ZAP", "SQLMap", "Nikto", "Dirb"}

// Intervals sets how often each counter ticks.
type Intervals struct {
	Threats     time.Duration
	Score       time.Duration
	Connections time.Duration
	Engine      time.Duration
}

// DefaultIntervals matches the dashboard animation.
var DefaultIntervals = Intervals{
	Threats:     2 * time.Second,
	Score:       1500 * time.Millisecond,
	Connections: time.Second,
	Engine:      3 * time.Second,
}

// Snapshot is a consistent read of every counter.
type Snapshot struct {
	Active        bool    `json:"active"`
	Threats       int     `json:"detected_threats"`
	SecurityScore float64 `json:"security_score"`
	Connections   int     `json:"active_connections"`
	Engine        string  `json:"current_engine"`
	Decorative    bool    `json:"decorative"`
}

// Board holds the counters and the goroutines ticking them.
type Board struct {
	mu        sync.Mutex
	rng       *rand.Rand
	intervals Intervals
	snap      Snapshot
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Option configures a Board.
type Option func(*Board)

// WithRand replaces the random source.
func WithRand(r *rand.Rand) Option {
	return func(b *Board) { b.rng = r }
}

// WithIntervals replaces DefaultIntervals.
func WithIntervals(iv Intervals) Option {
	return func(b *Board) { b.intervals = iv }
}

// NewBoard returns an inactive board showing the first engine.
func NewBoard(opts ...Option) *Board {
	b := &Board{
		rng:       rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		intervals: DefaultIntervals,
		snap:      Snapshot{Engine: Engines[0], Decorative: true},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Activate resets threats, score and connections to zero and starts
// ticking. Activating an active board only resets the values.
func (b *Board) Activate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snap.Threats = 0
	b.snap.SecurityScore = 0
	b.snap.Connections = 0
	if b.snap.Active {
		return
	}
	b.snap.Active = true

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.tick(ctx, "threats", b.intervals.Threats, func() {
		b.snap.Threats = NextThreats(b.rng, b.snap.Threats)
	})
	b.tick(ctx, "score", b.intervals.Score, func() {
		b.snap.SecurityScore = NextScore(b.rng, b.snap.SecurityScore)
	})
	b.tick(ctx, "connections", b.intervals.Connections, func() {
		b.snap.Connections = NextConnections(b.rng, b.snap.Connections)
	})
	b.tick(ctx, "engine", b.intervals.Engine, func() {
		b.snap.Engine = NextEngine(b.rng)
	})
}

// Deactivate stops every ticker and freezes the values. It returns once no
// tick can change them any more.
func (b *Board) Deactivate() {
	b.mu.Lock()
	if !b.snap.Active {
		b.mu.Unlock()
		return
	}
	b.snap.Active = false
	b.cancel()
	b.mu.Unlock()
	b.wg.Wait()
}

// Snapshot returns the current values.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.snap
}

func (b *Board) tick(ctx context.Context, name string, every time.Duration, step func()) {
	p := polling.NewPoller("decor-"+name, &polling.Config{Interval: every})
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		p.Start(ctx, func(ctx context.Context) {
			b.mu.Lock()
			defer b.mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			step()
		})
	}()
}

// NextThreats adds 0, 1 or 2.
func NextThreats(r *rand.Rand, prev int) int {
	return prev + r.IntN(3)
}

// NextScore adds a value in [0,5) and caps at 100.
func NextScore(r *rand.Rand, prev float64) float64 {
	return min(100, prev+r.Float64()*5)
}

// NextConnections adds a value in [-5,5) and never drops below 0.
func NextConnections(r *rand.Rand, prev int) int {
	return max(0, prev+r.IntN(10)-5)
}

// NextEngine picks an engine label uniformly.
func NextEngine(r *rand.Rand) string {
	return Engines[r.IntN(len(Engines))]
}
