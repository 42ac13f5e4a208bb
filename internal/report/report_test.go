package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "scandemo/internal/errors"
	"scandemo/internal/model"
	"scandemo/internal/simulation"
)

func sampleReport() Report {
	at := time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC)
	var vulns []model.Vulnerability
	for i, p := range simulation.DefaultPhases() {
		if p.Fixture != nil {
			v := p.Fixture.Build("https://example.com", at)
			v.ID = int64(i)
			vulns = append(vulns, v)
		}
	}
	sc := model.Scan{
		ID:              "scan_1",
		TargetURL:       "https://example.com",
		Mode:            model.ModeStealth,
		Type:            model.TypeQuick,
		Status:          model.StatusCompleted,
		Progress:        100,
		Vulnerabilities: vulns,
		CreatedAt:       at,
	}
	return New(sc, at)
}

func TestNew(t *testing.T) {
	r := sampleReport()
	assert.Equal(t, 3, r.Summary.Total)
	assert.Equal(t, 79, r.Summary.SecurityScore)
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, sampleReport()))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, 3.0, summary["total_vulnerabilities"])
	assert.Equal(t, 79.0, summary["security_score"])
	assert.Equal(t, "scan_1", decoded["scan"].(map[string]any)["id"])
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatExcel, sampleReport()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, "Reflected XSS Detected", rows[1][1])
	assert.Equal(t, "High", rows[1][2])
	assert.Equal(t, "9.8", rows[2][4])
	assert.Equal(t, "2024-12-15T10:00:00Z", rows[3][8])
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatMarkdown, sampleReport()))
	out := buf.String()
	assert.Contains(t, out, "# Scan Report: https://example.com")
	assert.Contains(t, out, "| Security score | 79/100 |")
	assert.Contains(t, out, "### SQL Injection Detected")
	assert.Contains(t, out, "CVE-2024-1234")

	empty := Markdown(New(model.Scan{ID: "x"}, time.Now()))
	assert.Contains(t, empty, "No vulnerabilities recorded")
}

func TestRenderPDFUnsupported(t *testing.T) {
	err := Render(&bytes.Buffer{}, FormatPDF, sampleReport())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.ErrorIs(t, err, apperrors.ErrUnsupported)
	assert.Equal(t, 501, apperrors.StatusFromError(err))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("EXCEL")
	require.NoError(t, err)
	assert.Equal(t, FormatExcel, f)

	_, err = ParseFormat("docx")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRequest)
}

func TestFilenameAndContentType(t *testing.T) {
	assert.Equal(t, "scan-report-abc.csv", Filename(FormatExcel, "abc"))
	assert.Equal(t, "scan-report-abc.json", Filename(FormatJSON, "abc"))
	assert.Equal(t, "text/csv", ContentType(FormatExcel))
	assert.Len(t, Formats(), 4)
}
