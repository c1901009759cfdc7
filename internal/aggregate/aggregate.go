// Package aggregate reduces a finding list into the summary report.
package aggregate

import (
	"math"
	"time"

	"github.com/confaudit/confaudit/internal/models"
)

// Aggregate computes totals and the compliance score. Pure: the
// timestamp is a parameter, so identical inputs and a fixed clock yield
// byte-identical reports.
func Aggregate(findings []models.Finding, inputRecords, rulesEvaluated int, generatedAt time.Time) *models.SummaryReport {
	summary := models.Summary{TotalChecks: len(findings)}
	for _, f := range findings {
		switch f.Status {
		case models.StatusPassed:
			summary.Passed++
		case models.StatusFailed:
			summary.Failed++
		case models.StatusWarning:
			summary.Warning++
		}
	}

	if summary.TotalChecks > 0 {
		summary.ComplianceScore = Score(summary.Passed, summary.TotalChecks)
	}

	if findings == nil {
		findings = []models.Finding{}
	}

	return &models.SummaryReport{
		Report: models.ReportMeta{
			GeneratedAt:    generatedAt,
			InputRecords:   inputRecords,
			RulesEvaluated: rulesEvaluated,
		},
		Summary:  summary,
		Findings: findings,
	}
}

// Score is passed/total as a percentage, rounded to one decimal place.
func Score(passed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(passed)/float64(total)*1000) / 10
}
