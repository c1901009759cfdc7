package models

import "time"

// Status classifies one finding
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusWarning Status = "warning"
)

// Finding is the classified outcome of evaluating a single rule against
// a single configuration record.
type Finding struct {
	RuleID           string   `json:"ruleId"`
	Title            string   `json:"title"`
	Status           Status   `json:"status"`
	Severity         Severity `json:"severity"`
	Evidence         string   `json:"evidence"`
	Remediation      string   `json:"remediation,omitempty"`
	EvaluationResult bool     `json:"evaluationResult"`
}

// ReportMeta run metadata
type ReportMeta struct {
	GeneratedAt    time.Time `json:"generatedAt"`
	InputRecords   int       `json:"inputRecords"`
	RulesEvaluated int       `json:"rulesEvaluated"`
}

// Summary totals
type Summary struct {
	TotalChecks     int     `json:"totalChecks"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	Warning         int     `json:"warning"`
	ComplianceScore float64 `json:"complianceScore"`
}

// SummaryReport is the terminal artifact of a run. Downstream renderers
// consume it verbatim.
type SummaryReport struct {
	Report   ReportMeta `json:"report"`
	Summary  Summary    `json:"summary"`
	Findings []Finding  `json:"findings"`
}
