package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/confaudit/confaudit/internal/aggregate"
	"github.com/confaudit/confaudit/internal/differ"
	"github.com/confaudit/confaudit/internal/models"
)

func TestParseFailOnLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    FailOnLevel
		wantErr bool
	}{
		{"critical", FailOnCritical, false},
		{"MODERATE", FailOnModerate, false},
		{"info", FailOnInfo, false},
		{"bogus", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFailOnLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFailOnLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseFailOnLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFailOnLevelShouldFail(t *testing.T) {
	tests := []struct {
		level    FailOnLevel
		severity differ.SeverityLevel
		want     bool
	}{
		{FailOnCritical, differ.SeverityCritical, true},
		{FailOnCritical, differ.SeverityModerate, false},
		{FailOnModerate, differ.SeverityModerate, true},
		{FailOnModerate, differ.SeverityInfo, false},
		{FailOnInfo, differ.SeverityInfo, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldFail(tt.severity); got != tt.want {
			t.Errorf("%s.ShouldFail(%s) = %v, want %v",
				tt.level, differ.SeverityString(tt.severity), got, tt.want)
		}
	}
}

func TestFormatReportText(t *testing.T) {
	findings := []models.Finding{
		{
			RuleID:           "MFA-1",
			Title:            "MFA enabled",
			Status:           models.StatusFailed,
			Severity:         models.SeverityHigh,
			Evidence:         "expected true, got false",
			Remediation:      "enable MFA for all accounts",
			EvaluationResult: false,
		},
		{
			RuleID:           "PWD-1",
			Title:            "Password policy present",
			Status:           models.StatusPassed,
			Severity:         models.SeverityMedium,
			Evidence:         "value present",
			EvaluationResult: true,
		},
	}
	report := aggregate.Aggregate(findings, 1, 2, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	out := FormatReportText(report, "identity checks")

	for _, want := range []string{
		"identity checks",
		"MFA-1",
		"FAILED",
		"remediation: enable MFA for all accounts",
		"PWD-1",
		"Compliance score",
		"50.0%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Remediation only shows on failures.
	if strings.Count(out, "remediation:") != 1 {
		t.Errorf("expected exactly one remediation line:\n%s", out)
	}
}

func TestFormatDriftText(t *testing.T) {
	t.Run("no drift", func(t *testing.T) {
		out := FormatDriftText(&differ.Result{ScoreDelta: 0, Items: []differ.DriftItem{}})
		if !strings.Contains(out, "No drift detected") {
			t.Errorf("missing no-drift banner:\n%s", out)
		}
	})

	t.Run("grouped by severity", func(t *testing.T) {
		result := &differ.Result{
			HasDrift:   true,
			ScoreDelta: -25.0,
			Items: []differ.DriftItem{
				{Type: differ.DriftStatusChanged, Severity: differ.SeverityCritical, RuleID: "A", Message: "rule A status changed: passed -> failed"},
				{Type: differ.DriftDetailChanged, Severity: differ.SeverityInfo, RuleID: "B", Message: "rule B finding detail changed", Changes: []string{"evidence changed"}},
			},
		}
		out := FormatDriftText(result)
		for _, want := range []string{"CRITICAL (1)", "INFO (1)", "evidence changed", "Score delta: -25.0"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})
}

func TestLoadRecords(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
		return path
	}

	t.Run("array", func(t *testing.T) {
		records, err := loadRecords(write("array.json", `[{"a":1},{"a":2}]`))
		if err != nil {
			t.Fatalf("loadRecords failed: %v", err)
		}
		if len(records) != 2 {
			t.Errorf("len = %d, want 2", len(records))
		}
	})

	t.Run("single object wraps", func(t *testing.T) {
		records, err := loadRecords(write("object.json", `{"a":1}`))
		if err != nil {
			t.Fatalf("loadRecords failed: %v", err)
		}
		if len(records) != 1 {
			t.Errorf("len = %d, want 1", len(records))
		}
	})

	t.Run("scalar rejected", func(t *testing.T) {
		if _, err := loadRecords(write("scalar.json", `42`)); err == nil {
			t.Error("expected error for scalar records file")
		}
	})

	t.Run("malformed rejected", func(t *testing.T) {
		if _, err := loadRecords(write("bad.json", `{"a":`)); err == nil {
			t.Error("expected error for malformed JSON")
		}
	})
}
