package simulation

import "sync"

// Gate pauses and resumes a run. Waits in progress observe the change
// through the channel returned by state, which is closed and replaced on
// every transition.
type Gate struct {
	mu      sync.Mutex
	paused  bool
	changed chan struct{}
}

// NewGate returns an open gate.
func NewGate() *Gate {
	return &Gate{changed: make(chan struct{})}
}

// Pause closes the gate. It reports false if the gate was already paused.
func (g *Gate) Pause() bool {
	return g.set(true)
}

// Resume opens the gate. It reports false if the gate was not paused.
func (g *Gate) Resume() bool {
	return g.set(false)
}

// Paused reports the current state.
func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}

func (g *Gate) set(paused bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.paused == paused {
		return false
	}
	g.paused = paused
	close(g.changed)
	g.changed = make(chan struct{})
	return true
}

func (g *Gate) state() (bool, <-chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused, g.changed
}
