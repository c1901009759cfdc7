// Package differ compares two summary reports, typically a committed
// baseline against the current run, and classifies compliance drift
// per finding.
package differ

import (
	"fmt"

	"github.com/wI2L/jsondiff"

	"github.com/confaudit/confaudit/internal/models"
)

// DriftType enum
type DriftType string

const (
	DriftFindingAdded   DriftType = "FINDING_ADDED"
	DriftFindingRemoved DriftType = "FINDING_REMOVED"
	DriftStatusChanged  DriftType = "STATUS_CHANGED"
	DriftDetailChanged  DriftType = "DETAIL_CHANGED"
)

// SeverityLevel 0=info, 1=moderate, 2=critical
type SeverityLevel int

const (
	SeverityInfo SeverityLevel = iota
	SeverityModerate
	SeverityCritical
)

// SeverityString to lowercase
func SeverityString(s SeverityLevel) string {
	switch s {
	case SeverityCritical:
		return "critical"
	case SeverityModerate:
		return "moderate"
	case SeverityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// DriftItem is one classified difference between the reports.
type DriftItem struct {
	Type       DriftType     `json:"type"`
	Severity   SeverityLevel `json:"severity"`
	RuleID     string        `json:"ruleId"`
	Occurrence int           `json:"occurrence"` // nth finding for this rule id (per-record)
	Message    string        `json:"message"`
	Changes    []string      `json:"changes,omitempty"`
}

// Result details
type Result struct {
	HasDrift   bool        `json:"hasDrift"`
	ScoreDelta float64     `json:"scoreDelta"`
	Items      []DriftItem `json:"items"`
}

// Compare diffs current against baseline. Findings are matched by rule
// id and per-record occurrence order, which both reports share because
// finding order is deterministic.
func Compare(baseline, current *models.SummaryReport) (*Result, error) {
	result := &Result{
		ScoreDelta: current.Summary.ComplianceScore - baseline.Summary.ComplianceScore,
		Items:      []DriftItem{},
	}

	baseByRule := groupByRule(baseline.Findings)
	currByRule := groupByRule(current.Findings)

	for _, ruleID := range ruleOrder(baseline.Findings, current.Findings) {
		base := baseByRule[ruleID]
		curr := currByRule[ruleID]

		n := len(base)
		if len(curr) < n {
			n = len(curr)
		}

		for i := 0; i < n; i++ {
			items, err := compareFinding(ruleID, i, base[i], curr[i])
			if err != nil {
				return nil, err
			}
			result.Items = append(result.Items, items...)
		}
		for i := n; i < len(base); i++ {
			result.Items = append(result.Items, DriftItem{
				Type:       DriftFindingRemoved,
				Severity:   SeverityModerate,
				RuleID:     ruleID,
				Occurrence: i,
				Message:    fmt.Sprintf("finding for rule %s is no longer produced", ruleID),
			})
		}
		for i := n; i < len(curr); i++ {
			severity := SeverityInfo
			if curr[i].Status == models.StatusFailed {
				severity = SeverityCritical
			}
			result.Items = append(result.Items, DriftItem{
				Type:       DriftFindingAdded,
				Severity:   severity,
				RuleID:     ruleID,
				Occurrence: i,
				Message:    fmt.Sprintf("new finding for rule %s with status %s", ruleID, curr[i].Status),
			})
		}
	}

	result.HasDrift = len(result.Items) > 0
	return result, nil
}

func compareFinding(ruleID string, occurrence int, base, curr models.Finding) ([]DriftItem, error) {
	if base == curr {
		return nil, nil
	}

	patches, err := jsondiff.Compare(base, curr)
	if err != nil {
		return nil, fmt.Errorf("failed to diff finding %s[%d]: %w", ruleID, occurrence, err)
	}
	changes := Translate(patches)

	if base.Status != curr.Status {
		return []DriftItem{{
			Type:       DriftStatusChanged,
			Severity:   statusChangeSeverity(base.Status, curr.Status),
			RuleID:     ruleID,
			Occurrence: occurrence,
			Message:    fmt.Sprintf("rule %s status changed: %s -> %s", ruleID, base.Status, curr.Status),
			Changes:    changes,
		}}, nil
	}

	return []DriftItem{{
		Type:       DriftDetailChanged,
		Severity:   SeverityInfo,
		RuleID:     ruleID,
		Occurrence: occurrence,
		Message:    fmt.Sprintf("rule %s finding detail changed", ruleID),
		Changes:    changes,
	}}, nil
}

// statusChangeSeverity grades regressions harder than improvements: a
// passed finding turning failed is the critical case.
func statusChangeSeverity(old, new models.Status) SeverityLevel {
	rank := map[models.Status]int{
		models.StatusPassed:  0,
		models.StatusWarning: 1,
		models.StatusFailed:  2,
	}
	switch {
	case rank[new] <= rank[old]:
		return SeverityInfo
	case old == models.StatusPassed && new == models.StatusFailed:
		return SeverityCritical
	default:
		return SeverityModerate
	}
}

func groupByRule(findings []models.Finding) map[string][]models.Finding {
	grouped := make(map[string][]models.Finding)
	for _, f := range findings {
		grouped[f.RuleID] = append(grouped[f.RuleID], f)
	}
	return grouped
}

// ruleOrder yields rule ids in first-seen order across both reports, so
// drift output is stable.
func ruleOrder(baseline, current []models.Finding) []string {
	var order []string
	seen := make(map[string]bool)
	for _, findings := range [][]models.Finding{baseline, current} {
		for _, f := range findings {
			if !seen[f.RuleID] {
				seen[f.RuleID] = true
				order = append(order, f.RuleID)
			}
		}
	}
	return order
}
