package scan

import (
	"github.com/samber/lo"

	"scandemo/internal/model"
)

// Summary is the aggregate shown next to a scan's findings.
type Summary struct {
	Total         int                    `json:"total_vulnerabilities"`
	Critical      int                    `json:"critical"`
	High          int                    `json:"high"`
	Medium        int                    `json:"medium"`
	Low           int                    `json:"low"`
	Info          int                    `json:"info"`
	BySeverity    map[model.Severity]int `json:"-"`
	RiskScore     int                    `json:"risk_score"`
	SecurityScore int                    `json:"security_score"`
}

// Summarize counts findings by severity and derives the risk score
// 10*critical + 7*high + 4*medium + 1*low and the security score
// max(0, 100-risk).
func Summarize(vulns []model.Vulnerability) Summary {
	counts := lo.CountValuesBy(vulns, func(v model.Vulnerability) model.Severity {
		return v.Severity
	})
	risk := lo.SumBy(vulns, func(v model.Vulnerability) int {
		return v.Severity.Weight()
	})
	return Summary{
		Total:         len(vulns),
		Critical:      counts[model.SeverityCritical],
		High:          counts[model.SeverityHigh],
		Medium:        counts[model.SeverityMedium],
		Low:           counts[model.SeverityLow],
		Info:          counts[model.SeverityInfo],
		BySeverity:    counts,
		RiskScore:     risk,
		SecurityScore: max(0, 100-risk),
	}
}
