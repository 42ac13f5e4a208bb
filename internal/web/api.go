package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"scandemo/internal/apiclient"
	apperrors "scandemo/internal/errors"
	"scandemo/internal/filtering"
	"scandemo/internal/model"
	"scandemo/internal/report"
)

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	var req apiclient.StartScanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	sc, err := s.svc.Start(r.Context(), req.URL, req.Mode, req.ScanType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse(sc))
}

func startResponse(sc model.Scan) apiclient.StartScanResponse {
	return apiclient.StartScanResponse{
		ScanID:    sc.ID,
		Status:    "started",
		URL:       sc.TargetURL,
		Timestamp: sc.CreatedAt,
	}
}

func (s *Server) handleListScans(w http.ResponseWriter, r *http.Request) {
	scans, err := s.svc.List()
	if err != nil {
		writeError(w, err)
		return
	}
	now := s.now()
	out := make([]apiclient.ScanStatus, 0, len(scans))
	for _, sc := range scans {
		out = append(out, apiclient.NewScanStatus(sc, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleScanStatus(w http.ResponseWriter, r *http.Request) {
	sc, err := s.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiclient.NewScanStatus(sc, s.now()))
}

func (s *Server) handleScanResult(w http.ResponseWriter, r *http.Request) {
	sc, err := s.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiclient.NewScanResults(sc))
}

func (s *Server) handleScanSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summary(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (s *Server) handleScanLogs(w http.ResponseWriter, r *http.Request) {
	sc, err := s.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	logs := sc.Logs
	if logs == nil {
		logs = []model.LogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleStopScan(w http.ResponseWriter, r *http.Request) {
	sc, err := s.svc.Stop(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiclient.NewScanStatus(sc, s.now()))
}

func (s *Server) handlePauseScan(w http.ResponseWriter, r *http.Request) {
	sc, err := s.svc.Pause(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiclient.NewScanStatus(sc, s.now()))
}

func (s *Server) handleResumeScan(w http.ResponseWriter, r *http.Request) {
	sc, err := s.svc.Resume(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiclient.NewScanStatus(sc, s.now()))
}

func (s *Server) handleRetryScan(w http.ResponseWriter, r *http.Request) {
	sc, err := s.svc.Retry(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, startResponse(sc))
}

func (s *Server) handleDeleteScan(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.Delete(id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, apiclient.MessageResponse{Message: fmt.Sprintf("Scan %s deleted", id)})
}

func vulnID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid vulnerability id %q: %w", r.PathValue("id"), apperrors.ErrInvalidRequest)
	}
	return id, nil
}

func (s *Server) handleVulnerabilities(w http.ResponseWriter, r *http.Request) {
	findings, err := s.svc.Vulnerabilities()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, findings)
}

func (s *Server) handleVulnerability(w http.ResponseWriter, r *http.Request) {
	id, err := vulnID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	f, err := s.svc.Vulnerability(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleUpdateVulnerability(w http.ResponseWriter, r *http.Request) {
	id, err := vulnID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req apiclient.UpdateVulnerabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	status, ok := model.ParseTriageStatus(string(req.Status))
	if !ok {
		writeError(w, fmt.Errorf("unknown status %q: %w", req.Status, apperrors.ErrInvalidRequest))
		return
	}
	f, err := s.svc.SetTriage(id, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.PathValue("format"))
	if err != nil {
		writeError(w, err)
		return
	}
	sc, err := s.svc.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, format, report.New(sc, s.now())); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType(format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(format, sc.ID)))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.board.Snapshot())
}

func (s *Server) handleToasts(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("scan_id"); id != "" {
		writeJSON(w, http.StatusOK, s.toasts.ForScan(id))
		return
	}
	writeJSON(w, http.StatusOK, s.toasts.Recent())
}

func (s *Server) handleAPIFAQ(w http.ResponseWriter, r *http.Request) {
	cat := filtering.Normalize(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": s.catalog.FAQCategories(),
		"category":   cat,
		"items":      s.catalog.FAQ(cat),
	})
}

func (s *Server) handleAPIChangelog(w http.ResponseWriter, r *http.Request) {
	cat := filtering.Normalize(r.URL.Query().Get("category"))
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": s.catalog.ChangelogCategories(),
		"category":   cat,
		"releases":   s.catalog.Changelog(cat),
	})
}

func (s *Server) handleAPIPricing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Site.Plans)
}
