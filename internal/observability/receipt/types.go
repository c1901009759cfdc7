// Package receipt provides stable evidence artifacts for audit trails.
package receipt

// ReceiptSchemaVersion current
const ReceiptSchemaVersion = "1.0"

// Receipt structure
type Receipt struct {
	SchemaVersion string             `json:"schema_version"`
	RunID         string             `json:"run_id"`
	TsStart       string             `json:"ts_start"`
	TsEnd         string             `json:"ts_end"`
	Command       string             `json:"command"`
	Args          []string           `json:"args"`
	Result        Result             `json:"result"`
	RuleSet       *InputRef          `json:"ruleset,omitempty"`
	Records       *InputRef          `json:"records,omitempty"`
	Evaluation    *EvaluationSummary `json:"evaluation,omitempty"`
	Drift         *DriftSummary      `json:"drift,omitempty"`
}

// Result status
type Result struct {
	Status string `json:"status"` // "success" or "fail"
	Error  string `json:"error,omitempty"`
}

// InputRef points at an input file with its content digest.
type InputRef struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256,omitempty"`
}

// EvaluationSummary detail
type EvaluationSummary struct {
	TotalChecks     int     `json:"total_checks"`
	Passed          int     `json:"passed"`
	Failed          int     `json:"failed"`
	Warning         int     `json:"warning"`
	ComplianceScore float64 `json:"compliance_score"`
	ReportDigest    string  `json:"report_digest,omitempty"`
	Preset          string  `json:"preset,omitempty"`
}

// DriftSummary detail
type DriftSummary struct {
	Critical int    `json:"critical"`
	Moderate int    `json:"moderate"`
	Info     int    `json:"info"`
	Summary  string `json:"summary,omitempty"`
}
