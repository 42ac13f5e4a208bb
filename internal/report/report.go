// Package report renders a finished scan in the downloadable formats.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	apperrors "scandemo/internal/errors"
	"scandemo/internal/model"
	"scandemo/internal/scan"
)

// Format is a report output format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatExcel    Format = "excel"
	FormatPDF      Format = "pdf"
	FormatMarkdown Format = "markdown"
)

// ErrUnsupportedFormat is returned for formats listed but not rendered.
var ErrUnsupportedFormat = fmt.Errorf("report format not supported: %w", apperrors.ErrUnsupported)

// FormatInfo describes a format for the export menu.
type FormatInfo struct {
	Format        Format `json:"format"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	FileExtension string `json:"file_extension"`
	Available     bool   `json:"available"`
}

// Formats lists every format in menu order.
func Formats() []FormatInfo {
	return []FormatInfo{
		{Format: FormatJSON, Name: "JSON", Description: "Structured data", FileExtension: ".json", Available: true},
		{Format: FormatPDF, Name: "PDF", Description: "Printable report", FileExtension: ".pdf"},
		{Format: FormatExcel, Name: "Excel", Description: "Spreadsheet (CSV)", FileExtension: ".csv", Available: true},
		{Format: FormatMarkdown, Name: "Markdown", Description: "Plain text summary", FileExtension: ".md", Available: true},
	}
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats() {
		if string(f.Format) == strings.ToLower(s) {
			return f.Format, nil
		}
	}
	return "", fmt.Errorf("unknown report format %q: %w", s, apperrors.ErrInvalidRequest)
}

// Report is a scan plus its aggregate.
type Report struct {
	Scan        model.Scan   `json:"scan"`
	Summary     scan.Summary `json:"summary"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// New builds a report for sc.
func New(sc model.Scan, at time.Time) Report {
	return Report{Scan: sc, Summary: scan.Summarize(sc.Vulnerabilities), GeneratedAt: at}
}

// ContentType is the HTTP content type for f.
func ContentType(f Format) string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatExcel:
		return "text/csv"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// Filename is the download name for a report of scanID.
func Filename(f Format, scanID string) string {
	for _, info := range Formats() {
		if info.Format == f {
			return "scan-report-" + scanID + info.FileExtension
		}
	}
	return "scan-report-" + scanID
}

// Render writes r in format f.
func Render(w io.Writer, f Format, r Report) error {
	switch f {
	case FormatJSON:
		return renderJSON(w, r)
	case FormatExcel:
		return renderCSV(w, r)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(r))
		return err
	case FormatPDF:
		return ErrUnsupportedFormat
	default:
		return fmt.Errorf("unknown report format %q: %w", f, apperrors.ErrInvalidRequest)
	}
}

func renderJSON(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var csvHeader = []string{"ID", "Title", "Severity", "CVE", "CVSS", "Type", "Location", "Scanner", "Timestamp"}

func renderCSV(w io.Writer, r Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, v := range r.Scan.Vulnerabilities {
		row := []string{
			strconv.FormatInt(v.ID, 10),
			v.Title,
			v.Severity.Title(),
			v.CVE,
			strconv.FormatFloat(v.CVSS, 'f', 1, 64),
			v.Type,
			v.Location,
			v.Scanner,
			v.Timestamp.UTC().Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Markdown renders r as a readable summary.
func Markdown(r Report) string {
	var b strings.Builder
	sc := r.Scan
	fmt.Fprintf(&b, "# Scan Report: %s\n\n", sc.TargetURL)
	fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Scan ID | `%s` |\n", sc.ID)
	fmt.Fprintf(&b, "| Status | %s |\n", sc.Status)
	fmt.Fprintf(&b, "| Mode | %s |\n", sc.Mode)
	fmt.Fprintf(&b, "| Type | %s |\n", sc.Type)
	fmt.Fprintf(&b, "| Progress | %.0f%% |\n", sc.Progress)
	fmt.Fprintf(&b, "| Security score | %d/100 |\n\n", r.Summary.SecurityScore)

	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "- Critical: %d\n- High: %d\n- Medium: %d\n- Low: %d\n- Info: %d\n\n",
		r.Summary.Critical, r.Summary.High, r.Summary.Medium, r.Summary.Low, r.Summary.Info)

	fmt.Fprintf(&b, "## Findings\n\n")
	if len(sc.Vulnerabilities) == 0 {
		b.WriteString("_No vulnerabilities recorded._\n")
		return b.String()
	}
	for _, v := range sc.Vulnerabilities {
		fmt.Fprintf(&b, "### %s\n\n", v.Title)
		fmt.Fprintf(&b, "**%s** · CVSS %.1f", v.Severity.Title(), v.CVSS)
		if v.CVE != "" {
			fmt.Fprintf(&b, " · %s", v.CVE)
		}
		fmt.Fprintf(&b, "\n\n%s\n\n", v.Description)
		if v.Evidence != "" {
			fmt.Fprintf(&b, "```\n%s\n```\n\n", v.Evidence)
		}
	}
	return b.String()
}
