package executor

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/confaudit/confaudit/internal/models"
	"github.com/confaudit/confaudit/internal/predicate"
	"github.com/confaudit/confaudit/internal/ruleset"
)

func newExecutor(t *testing.T, rules []models.RuleDefinition, workers int) *Executor {
	t.Helper()
	sandbox, err := predicate.New(0)
	if err != nil {
		t.Fatalf("failed to create sandbox: %v", err)
	}
	rs := &models.RuleSet{Rules: rules}
	if err := ruleset.Validate(rs, sandbox); err != nil {
		t.Fatalf("test rule set failed validation: %v", err)
	}
	return New(rs, sandbox, workers)
}

func record(pairs map[string]interface{}) interface{} {
	m := make(map[string]interface{}, len(pairs))
	for k, v := range pairs {
		m[k] = v
	}
	return m
}

func TestEndToEndClassification(t *testing.T) {
	rules := []models.RuleDefinition{{
		ID:            "MFA-1",
		Title:         "MFA enforced",
		Severity:      models.SeverityHigh,
		TargetPath:    "$.State",
		Evaluator:     "equals",
		ExpectedValue: "Enforced",
	}}

	tests := []struct {
		name   string
		record interface{}
		want   models.Status
	}{
		{"non-compliant", record(map[string]interface{}{"State": "Enabled"}), models.StatusFailed},
		{"compliant", record(map[string]interface{}{"State": "Enforced"}), models.StatusPassed},
		{"not configured", record(map[string]interface{}{}), models.StatusWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := newExecutor(t, rules, 1)
			findings := exec.Run(context.Background(), []interface{}{tt.record})
			if len(findings) != 1 {
				t.Fatalf("expected 1 finding, got %d", len(findings))
			}
			if findings[0].Status != tt.want {
				t.Errorf("status = %q, want %q (evidence: %s)", findings[0].Status, tt.want, findings[0].Evidence)
			}
		})
	}
}

func TestExistsEvaluatorNullIsFailedNotWarning(t *testing.T) {
	rules := []models.RuleDefinition{{
		ID: "EX-1", Severity: models.SeverityLow, TargetPath: "$.Missing", Evaluator: "exists",
	}}
	exec := newExecutor(t, rules, 1)

	findings := exec.Run(context.Background(), []interface{}{record(map[string]interface{}{})})
	if findings[0].Status != models.StatusFailed {
		t.Errorf("exists over null = %q, want failed (null is the meaningful answer)", findings[0].Status)
	}
}

func TestDependencyPropagation(t *testing.T) {
	// A fails on this record; B depends on A. B's finding must be a
	// warning naming A, and B's evaluator must never run: B's custom
	// expression would error loudly (division by zero) if invoked.
	rules := []models.RuleDefinition{
		{ID: "A", Severity: models.SeverityHigh, TargetPath: "$.State", Evaluator: "equals", ExpectedValue: "Enforced"},
		{ID: "B", Severity: models.SeverityHigh, CustomEvaluator: "1 / 0 > 0", DependsOn: []string{"A"}},
	}
	exec := newExecutor(t, rules, 1)

	findings := exec.Run(context.Background(), []interface{}{record(map[string]interface{}{"State": "Enabled"})})
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	if findings[0].Status != models.StatusFailed {
		t.Fatalf("A = %q, want failed", findings[0].Status)
	}
	if findings[1].Status != models.StatusWarning {
		t.Errorf("B = %q, want warning", findings[1].Status)
	}
	if !strings.Contains(findings[1].Evidence, "dependency not satisfied: A") {
		t.Errorf("B evidence = %q, want reference to A", findings[1].Evidence)
	}
	if strings.Contains(findings[1].Evidence, "custom evaluator") {
		t.Errorf("B evidence = %q: evaluator ran despite unmet dependency", findings[1].Evidence)
	}
}

func TestDependencyMetRunsEvaluator(t *testing.T) {
	rules := []models.RuleDefinition{
		{ID: "A", Severity: models.SeverityHigh, TargetPath: "$.State", Evaluator: "exists"},
		{ID: "B", Severity: models.SeverityHigh, TargetPath: "$.State", Evaluator: "equals", ExpectedValue: "Enforced", DependsOn: []string{"A"}},
	}
	exec := newExecutor(t, rules, 1)

	findings := exec.Run(context.Background(), []interface{}{record(map[string]interface{}{"State": "Enforced"})})
	if findings[1].Status != models.StatusPassed {
		t.Errorf("B = %q, want passed once A passed", findings[1].Status)
	}
}

func TestForwardReferenceIsUnmet(t *testing.T) {
	rules := []models.RuleDefinition{
		{ID: "B", Severity: models.SeverityLow, TargetPath: "$.X", Evaluator: "exists", DependsOn: []string{"A"}},
		{ID: "A", Severity: models.SeverityLow, TargetPath: "$.X", Evaluator: "exists"},
	}
	exec := newExecutor(t, rules, 1)

	findings := exec.Run(context.Background(), []interface{}{record(map[string]interface{}{"X": "y"})})
	if findings[0].Status != models.StatusWarning {
		t.Errorf("forward reference = %q, want warning", findings[0].Status)
	}
	if findings[1].Status != models.StatusPassed {
		t.Errorf("A = %q, want passed", findings[1].Status)
	}
}

func TestResultTableDoesNotLeakAcrossRecords(t *testing.T) {
	rules := []models.RuleDefinition{
		{ID: "A", Severity: models.SeverityHigh, TargetPath: "$.Mfa", Evaluator: "equals", ExpectedValue: "on"},
		{ID: "B", Severity: models.SeverityHigh, TargetPath: "$.Name", Evaluator: "exists", DependsOn: []string{"A"}},
	}
	exec := newExecutor(t, rules, 1)

	records := []interface{}{
		record(map[string]interface{}{"Mfa": "on", "Name": "alice"}),
		record(map[string]interface{}{"Mfa": "off", "Name": "bob"}),
	}
	findings := exec.Run(context.Background(), records)
	if len(findings) != 4 {
		t.Fatalf("expected 4 findings, got %d", len(findings))
	}

	// Record 0: A passed so B evaluated; record 1: A failed so B warned.
	if findings[1].Status != models.StatusPassed {
		t.Errorf("record 0 rule B = %q, want passed", findings[1].Status)
	}
	if findings[3].Status != models.StatusWarning {
		t.Errorf("record 1 rule B = %q, want warning (A failed for this record only)", findings[3].Status)
	}
}

func TestEvidencePathEnrichment(t *testing.T) {
	rules := []models.RuleDefinition{{
		ID: "A", Severity: models.SeverityLow,
		TargetPath: "$.Mfa", Evaluator: "exists",
		EvidencePath: "$.UserPrincipalName",
	}}
	exec := newExecutor(t, rules, 1)

	findings := exec.Run(context.Background(), []interface{}{
		record(map[string]interface{}{"Mfa": "on", "UserPrincipalName": "alice@x.com"}),
	})
	if !strings.Contains(findings[0].Evidence, `alice@x.com`) {
		t.Errorf("evidence = %q, want evidencePath value appended", findings[0].Evidence)
	}
}

func TestCompositeRuleClassifiesFailedNotWarning(t *testing.T) {
	// Composite evaluation actually ran, so a false result is failed
	// even when one condition's target is absent.
	rules := []models.RuleDefinition{{
		ID: "C", Severity: models.SeverityMedium, Logic: models.LogicAnd,
		Conditions: []models.Condition{
			{TargetPath: "$.Present", Evaluator: "exists"},
			{TargetPath: "$.Absent", Evaluator: "exists"},
		},
	}}
	exec := newExecutor(t, rules, 1)

	findings := exec.Run(context.Background(), []interface{}{record(map[string]interface{}{"Present": "x"})})
	if findings[0].Status != models.StatusFailed {
		t.Errorf("composite = %q, want failed", findings[0].Status)
	}
}

func TestCustomRuleTargetPathDefaultsToRoot(t *testing.T) {
	rules := []models.RuleDefinition{{
		ID: "C", Severity: models.SeverityLow,
		CustomEvaluator: `value.Enabled == true && size(value.Roles) <= 2`,
	}}
	exec := newExecutor(t, rules, 1)

	findings := exec.Run(context.Background(), []interface{}{
		record(map[string]interface{}{"Enabled": true, "Roles": []interface{}{"reader"}}),
	})
	if findings[0].Status != models.StatusPassed {
		t.Errorf("custom over root = %q, want passed (evidence: %s)", findings[0].Status, findings[0].Evidence)
	}
}

func TestCustomRuleErrorIsRecoveredLocally(t *testing.T) {
	rules := []models.RuleDefinition{
		{ID: "BAD", Severity: models.SeverityLow, CustomEvaluator: `value.no.such.field == 1`, TargetPath: "$.Scalar"},
		{ID: "OK", Severity: models.SeverityLow, TargetPath: "$.Scalar", Evaluator: "exists"},
	}
	exec := newExecutor(t, rules, 1)

	findings := exec.Run(context.Background(), []interface{}{record(map[string]interface{}{"Scalar": "x"})})
	if findings[0].Status != models.StatusFailed {
		t.Errorf("erroring custom rule = %q, want failed", findings[0].Status)
	}
	if !strings.Contains(findings[0].Evidence, "custom evaluator error") {
		t.Errorf("evidence = %q, want captured error", findings[0].Evidence)
	}
	// The run continued past the bad rule.
	if findings[1].Status != models.StatusPassed {
		t.Errorf("following rule = %q, want passed", findings[1].Status)
	}
}

func TestConcurrentRunIsDeterministic(t *testing.T) {
	rules := []models.RuleDefinition{
		{ID: "A", Severity: models.SeverityHigh, TargetPath: "$.Mfa.State", Evaluator: "equals", ExpectedValue: "Enforced"},
		{ID: "B", Severity: models.SeverityMedium, TargetPath: "$.Roles", Evaluator: "arrayLength<=2"},
		{ID: "C", Severity: models.SeverityLow, TargetPath: "$.Name", Evaluator: "exists", DependsOn: []string{"A"}},
	}

	records := make([]interface{}, 50)
	for i := range records {
		state := "Enforced"
		if i%3 == 0 {
			state = "Enabled"
		}
		records[i] = record(map[string]interface{}{
			"Name": "u",
			"Mfa":  map[string]interface{}{"State": state},
			"Roles": []interface{}{
				"reader",
			},
		})
	}

	first := newExecutor(t, rules, 8).Run(context.Background(), records)
	second := newExecutor(t, rules, 3).Run(context.Background(), records)

	if len(first) != len(records)*len(rules) {
		t.Fatalf("findings = %d, want %d", len(first), len(records)*len(rules))
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("findings differ across runs with different worker counts")
	}
}
