package aggregate

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/confaudit/confaudit/internal/models"
)

func finding(status models.Status) models.Finding {
	return models.Finding{RuleID: "R", Status: status, Severity: models.SeverityLow}
}

func TestAggregateTotals(t *testing.T) {
	findings := []models.Finding{
		finding(models.StatusPassed),
		finding(models.StatusPassed),
		finding(models.StatusFailed),
		finding(models.StatusWarning),
	}

	report := Aggregate(findings, 2, 2, time.Unix(0, 0).UTC())

	if report.Summary.TotalChecks != 4 || report.Summary.Passed != 2 || report.Summary.Failed != 1 || report.Summary.Warning != 1 {
		t.Errorf("summary = %+v", report.Summary)
	}
	if report.Summary.ComplianceScore != 50.0 {
		t.Errorf("score = %v, want 50.0", report.Summary.ComplianceScore)
	}
	if report.Report.InputRecords != 2 || report.Report.RulesEvaluated != 2 {
		t.Errorf("meta = %+v", report.Report)
	}
}

func TestScoreRounding(t *testing.T) {
	tests := []struct {
		passed, total int
		want          float64
	}{
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 1, 100},
		{0, 5, 0},
		{0, 0, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := Score(tt.passed, tt.total); got != tt.want {
			t.Errorf("Score(%d, %d) = %v, want %v", tt.passed, tt.total, got, tt.want)
		}
	}
}

func TestScoreStaysInRange(t *testing.T) {
	for passed := 0; passed <= 7; passed++ {
		got := Score(passed, 7)
		if got < 0 || got > 100 {
			t.Errorf("Score(%d, 7) = %v, outside [0,100]", passed, got)
		}
	}
}

func TestAggregateEmptyFindings(t *testing.T) {
	report := Aggregate(nil, 0, 3, time.Unix(0, 0).UTC())
	if report.Summary.ComplianceScore != 0 {
		t.Errorf("score over empty findings = %v, want 0", report.Summary.ComplianceScore)
	}
	if report.Findings == nil {
		t.Error("findings must marshal as [], not null")
	}
}

func TestAggregateIsDeterministic(t *testing.T) {
	findings := []models.Finding{
		finding(models.StatusPassed),
		finding(models.StatusFailed),
	}
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := json.Marshal(Aggregate(findings, 1, 2, at))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	second, err := json.Marshal(Aggregate(findings, 1, 2, at))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("identical inputs produced different report bytes")
	}
}
