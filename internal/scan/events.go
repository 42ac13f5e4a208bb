package scan

import (
	"sync"
	"time"

	"scandemo/internal/model"
)

// EventType names one observable step of a scan.
type EventType string

const (
	EventStarted       EventType = "started"
	EventPhase         EventType = "phase"
	EventVulnerability EventType = "vulnerability"
	EventProgress      EventType = "progress"
	EventPaused        EventType = "paused"
	EventResumed       EventType = "resumed"
	EventCompleted     EventType = "completed"
	EventCancelled     EventType = "cancelled"
)

// Event is published to subscribers whenever a scan changes.
type Event struct {
	Type          EventType            `json:"type"`
	ScanID        string               `json:"scan_id"`
	Status        model.ScanStatus     `json:"status"`
	Step          int                  `json:"step"`
	Phase         string               `json:"phase,omitempty"`
	Progress      float64              `json:"progress"`
	Vulnerability *model.Vulnerability `json:"vulnerability,omitempty"`
	Time          time.Time            `json:"time"`
}

// Terminal reports whether no further events follow for the scan.
func (e Event) Terminal() bool {
	return e.Type == EventCompleted || e.Type == EventCancelled
}

const subscriberBuffer = 64

// broker fans events out to subscribers. Slow subscribers lose events rather
// than stall a run.
type broker struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan Event)}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

func (b *broker) publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
