package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/confaudit/confaudit/internal/differ"
	"github.com/confaudit/confaudit/internal/models"
)

// ANSI color codes
const (
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorReset  = "\033[0m"
)

// FailOnLevel threshold for drift failure
type FailOnLevel string

const (
	FailOnCritical FailOnLevel = "critical"
	FailOnModerate FailOnLevel = "moderate"
	FailOnInfo     FailOnLevel = "info"
)

// ParseFailOnLevel from string
func ParseFailOnLevel(s string) (FailOnLevel, error) {
	switch strings.ToLower(s) {
	case "critical":
		return FailOnCritical, nil
	case "moderate":
		return FailOnModerate, nil
	case "info":
		return FailOnInfo, nil
	default:
		return "", fmt.Errorf("invalid fail-on level: %s (use critical, moderate, or info)", s)
	}
}

// ShouldFail checks limits
func (f FailOnLevel) ShouldFail(severity differ.SeverityLevel) bool {
	switch f {
	case FailOnCritical:
		return severity == differ.SeverityCritical
	case FailOnModerate:
		return severity >= differ.SeverityModerate
	case FailOnInfo:
		return true
	default:
		return severity == differ.SeverityCritical
	}
}

func statusColor(s models.Status) string {
	switch s {
	case models.StatusPassed:
		return colorGreen
	case models.StatusFailed:
		return colorRed
	default:
		return colorYellow
	}
}

// FormatReportText human readable
func FormatReportText(report *models.SummaryReport, ruleSetName string) string {
	var sb strings.Builder

	name := ruleSetName
	if name == "" {
		name = "rule set"
	}
	sb.WriteString(fmt.Sprintf("Compliance report: %s\n", name))
	sb.WriteString(fmt.Sprintf("Generated: %s  Records: %d  Rules: %d\n",
		report.Report.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
		report.Report.InputRecords,
		report.Report.RulesEvaluated))
	sb.WriteString("\n")

	for _, f := range report.Findings {
		color := statusColor(f.Status)
		sb.WriteString(fmt.Sprintf("%s[%s]%s %s (%s, %s)\n",
			color, strings.ToUpper(string(f.Status)), colorReset, f.RuleID, f.Title, f.Severity))
		if f.Evidence != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", f.Evidence))
		}
		if f.Status == models.StatusFailed && f.Remediation != "" {
			sb.WriteString(fmt.Sprintf("    remediation: %s\n", f.Remediation))
		}
	}
	sb.WriteString("\n")

	scoreColor := colorGreen
	if report.Summary.Failed > 0 {
		scoreColor = colorRed
	} else if report.Summary.Warning > 0 {
		scoreColor = colorYellow
	}
	sb.WriteString(fmt.Sprintf("Checks: %d  Passed: %d  Failed: %d  Warning: %d\n",
		report.Summary.TotalChecks,
		report.Summary.Passed,
		report.Summary.Failed,
		report.Summary.Warning))
	sb.WriteString(fmt.Sprintf("Compliance score: %s%.1f%%%s\n",
		scoreColor, report.Summary.ComplianceScore, colorReset))

	return sb.String()
}

// FormatDriftText human readable
func FormatDriftText(result *differ.Result) string {
	var sb strings.Builder

	if !result.HasDrift {
		sb.WriteString(fmt.Sprintf("%s✓ No drift detected%s\n", colorGreen, colorReset))
		sb.WriteString(fmt.Sprintf("Score delta: %+.1f\n", result.ScoreDelta))
		return sb.String()
	}

	groups := map[differ.SeverityLevel][]differ.DriftItem{}
	for _, item := range result.Items {
		groups[item.Severity] = append(groups[item.Severity], item)
	}

	levels := []struct {
		level differ.SeverityLevel
		color string
	}{
		{differ.SeverityCritical, colorRed},
		{differ.SeverityModerate, colorYellow},
		{differ.SeverityInfo, ""},
	}

	for _, l := range levels {
		items := groups[l.level]
		if len(items) == 0 {
			continue
		}
		label := strings.ToUpper(differ.SeverityString(l.level))
		if l.color != "" {
			sb.WriteString(fmt.Sprintf("%s%s (%d)%s\n", l.color, label, len(items), colorReset))
		} else {
			sb.WriteString(fmt.Sprintf("%s (%d)\n", label, len(items)))
		}
		for _, item := range items {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", item.Type, item.Message))
			for _, change := range item.Changes {
				sb.WriteString(fmt.Sprintf("    %s\n", change))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Score delta: %+.1f\n", result.ScoreDelta))
	return sb.String()
}

// FormatJSONOutput raw json
func FormatJSONOutput(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}
