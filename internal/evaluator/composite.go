package evaluator

import (
	"fmt"
	"strings"

	"github.com/confaudit/confaudit/internal/models"
	"github.com/confaudit/confaudit/internal/resolver"
)

// ConditionOutcome is the evaluation of one condition inside a
// composite rule.
type ConditionOutcome struct {
	TargetPath string
	Evaluator  string
	Outcome    Outcome
}

// EvaluateComposite evaluates every condition against the record (no
// short-circuiting, so evidence is complete) and combines the booleans
// per the rule's logic.
func EvaluateComposite(record interface{}, logic models.Logic, conditions []models.Condition) (bool, []ConditionOutcome) {
	outcomes := make([]ConditionOutcome, 0, len(conditions))

	for _, cond := range conditions {
		value := resolver.Resolve(record, cond.TargetPath)
		spec := Parse(cond.Evaluator, cond.ExpectedValue, cond.ExpectedType)
		outcomes = append(outcomes, ConditionOutcome{
			TargetPath: cond.TargetPath,
			Evaluator:  cond.Evaluator,
			Outcome:    Evaluate(value, spec),
		})
	}

	result := logic == models.LogicAnd
	for _, oc := range outcomes {
		if logic == models.LogicAnd {
			result = result && oc.Outcome.Result
		} else {
			result = result || oc.Outcome.Result
		}
	}
	return result, outcomes
}

// CompositeEvidence renders per-condition outcomes into one evidence
// string for the finding.
func CompositeEvidence(logic models.Logic, outcomes []ConditionOutcome) string {
	parts := make([]string, 0, len(outcomes))
	for _, oc := range outcomes {
		parts = append(parts, fmt.Sprintf("%s %s: %s", oc.TargetPath, oc.Evaluator, oc.Outcome.Evidence))
	}
	return fmt.Sprintf("%s(%s)", logic, strings.Join(parts, "; "))
}
