package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"scandemo/internal/scan"
)

// handleScanEvents streams one scan's events as server-sent events. The
// stream opens with a snapshot and closes after the terminal event.
func (s *Server) handleScanEvents(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// Subscribe before the snapshot so no event falls between the two
	events, unsubscribe := s.svc.Subscribe()
	defer unsubscribe()

	sc, err := s.svc.Get(id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	snapshot := scan.Event{
		Type:     "snapshot",
		ScanID:   sc.ID,
		Status:   sc.Status,
		Step:     sc.CurrentStep,
		Progress: sc.Progress,
		Time:     s.now(),
	}
	if err := writeEvent(w, snapshot); err != nil {
		return
	}
	flusher.Flush()
	if sc.Status.Terminal() {
		return
	}

	stopped := s.stoppedChan()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-stopped:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.ScanID != id {
				continue
			}
			if err := writeEvent(w, e); err != nil {
				return
			}
			flusher.Flush()
			if e.Terminal() {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, e scan.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}

func (s *Server) stoppedChan() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
