package models

import "fmt"

// Severity levels accepted in rule definitions
type Severity string

const (
	SeverityInformational Severity = "informational"
	SeverityLow           Severity = "low"
	SeverityMedium        Severity = "medium"
	SeverityHigh          Severity = "high"
	SeverityCritical      Severity = "critical"
)

// Valid reports whether s is one of the known severity levels.
func (s Severity) Valid() bool {
	switch s {
	case SeverityInformational, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Logic combines composite rule conditions
type Logic string

const (
	LogicAnd Logic = "AND"
	LogicOr  Logic = "OR"
)

// Condition is one sub-check inside a composite rule
type Condition struct {
	TargetPath    string      `json:"targetPath" yaml:"targetPath"`
	Evaluator     string      `json:"evaluator" yaml:"evaluator"`
	ExpectedValue interface{} `json:"expectedValue,omitempty" yaml:"expectedValue,omitempty"`
	ExpectedType  string      `json:"expectedType,omitempty" yaml:"expectedType,omitempty"`
}

// RuleDefinition is one declarative compliance rule. Exactly one of the
// three shapes must be set: simple (TargetPath+Evaluator), composite
// (Logic+Conditions), or custom (CustomEvaluator).
type RuleDefinition struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Severity    Severity `json:"severity" yaml:"severity"`
	Remediation string   `json:"remediation,omitempty" yaml:"remediation,omitempty"`

	// simple shape
	TargetPath    string      `json:"targetPath,omitempty" yaml:"targetPath,omitempty"`
	Evaluator     string      `json:"evaluator,omitempty" yaml:"evaluator,omitempty"`
	ExpectedValue interface{} `json:"expectedValue,omitempty" yaml:"expectedValue,omitempty"`
	ExpectedType  string      `json:"expectedType,omitempty" yaml:"expectedType,omitempty"`

	// composite shape
	Logic      Logic       `json:"logic,omitempty" yaml:"logic,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`

	// custom shape: a CEL expression over the variable "value"
	CustomEvaluator string `json:"customEvaluator,omitempty" yaml:"customEvaluator,omitempty"`

	DependsOn    []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
	EvidencePath string   `json:"evidencePath,omitempty" yaml:"evidencePath,omitempty"`
}

// RuleShape enum
type RuleShape int

const (
	ShapeSimple RuleShape = iota
	ShapeComposite
	ShapeCustom
)

// Shape determines which of the three rule shapes r carries. It is an
// error for a rule to declare none, or more than one. TargetPath alone
// does not make a rule simple: custom rules may carry a targetPath to
// select the value handed to the expression.
func (r *RuleDefinition) Shape() (RuleShape, error) {
	var shapes []RuleShape
	if r.Evaluator != "" {
		shapes = append(shapes, ShapeSimple)
	}
	if r.Logic != "" || len(r.Conditions) > 0 {
		shapes = append(shapes, ShapeComposite)
	}
	if r.CustomEvaluator != "" {
		shapes = append(shapes, ShapeCustom)
	}

	switch len(shapes) {
	case 0:
		return 0, fmt.Errorf("rule %q declares no shape: need targetPath+evaluator, logic+conditions, or customEvaluator", r.ID)
	case 1:
		return shapes[0], nil
	default:
		return 0, fmt.Errorf("rule %q declares multiple shapes: exactly one of simple, composite, or custom is allowed", r.ID)
	}
}

// RuleSet is the loaded, validated collection of rules for one run
type RuleSet struct {
	Name  string           `json:"name,omitempty" yaml:"name,omitempty"`
	Rules []RuleDefinition `json:"rules" yaml:"rules"`
}
