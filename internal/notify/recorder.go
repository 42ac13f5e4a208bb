package notify

import (
	"context"
	"sync"
)

// DefaultRecorderSize is how many toasts a Recorder keeps.
const DefaultRecorderSize = 50

// Recorder keeps the most recent toasts in memory so the dashboard can poll
// them.
type Recorder struct {
	mu     sync.Mutex
	size   int
	toasts []Toast
}

// NewRecorder keeps at most size toasts. A non-positive size uses
// DefaultRecorderSize.
func NewRecorder(size int) *Recorder {
	if size <= 0 {
		size = DefaultRecorderSize
	}
	return &Recorder{size: size}
}

// Notify stores the toast, dropping the oldest when full.
func (r *Recorder) Notify(_ context.Context, toast Toast) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toasts = append(r.toasts, toast)
	if over := len(r.toasts) - r.size; over > 0 {
		r.toasts = append([]Toast(nil), r.toasts[over:]...)
	}
	return nil
}

// Recent returns stored toasts, newest first.
func (r *Recorder) Recent() []Toast {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Toast, len(r.toasts))
	for i, t := range r.toasts {
		out[len(r.toasts)-1-i] = t
	}
	return out
}

// ForScan returns stored toasts for one scan, newest first.
func (r *Recorder) ForScan(scanID string) []Toast {
	out := []Toast{}
	for _, t := range r.Recent() {
		if t.ScanID == scanID {
			out = append(out, t)
		}
	}
	return out
}
