// Package executor drives rule evaluation. Per (record, rule) pair the
// lifecycle is: dependency check, evaluation (by rule shape),
// classification, recording. Records fan out across a worker pool;
// rules within one record run sequentially in rule-set order because
// later rules may depend on earlier outcomes for the same record.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/confaudit/confaudit/internal/evaluator"
	"github.com/confaudit/confaudit/internal/models"
	"github.com/confaudit/confaudit/internal/observability/logging"
	"github.com/confaudit/confaudit/internal/predicate"
	"github.com/confaudit/confaudit/internal/resolver"
)

// Executor evaluates one validated rule set against records.
type Executor struct {
	rules   []models.RuleDefinition
	sandbox *predicate.Sandbox
	workers int
}

func New(rs *models.RuleSet, sandbox *predicate.Sandbox, workers int) *Executor {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Executor{rules: rs.Rules, sandbox: sandbox, workers: workers}
}

// Run evaluates every rule against every record and returns the
// findings ordered by (record index, rule index), so identical inputs
// produce identical output regardless of worker interleaving.
func (e *Executor) Run(ctx context.Context, records []interface{}) []models.Finding {
	log := logging.From(ctx)

	perRecord := make([][]models.Finding, len(records))
	g := new(errgroup.Group)
	g.SetLimit(e.workers)

	for i, record := range records {
		g.Go(func() error {
			perRecord[i] = e.evaluateRecord(ctx, record)
			return nil
		})
	}
	// Workers never return errors: per-rule and per-record problems are
	// recovered into findings.
	_ = g.Wait()

	findings := make([]models.Finding, 0, len(records)*len(e.rules))
	for _, recordFindings := range perRecord {
		findings = append(findings, recordFindings...)
	}

	log.Debug("executor", "run complete",
		"records", len(records),
		"rules", len(e.rules),
		"findings", len(findings))
	return findings
}

// evaluateRecord runs the full rule set against one record. The result
// table is scoped to this record and never leaks: dependency checks are
// always relative to the same entity's data. Rules are processed in
// input order, so a forward reference is simply absent and unmet.
func (e *Executor) evaluateRecord(ctx context.Context, record interface{}) []models.Finding {
	table := make(map[string]models.Status, len(e.rules))
	findings := make([]models.Finding, 0, len(e.rules))

	for i := range e.rules {
		rule := &e.rules[i]
		finding := e.evaluateRule(ctx, record, rule, table)
		findings = append(findings, finding)
		table[rule.ID] = finding.Status
	}
	return findings
}

func (e *Executor) evaluateRule(ctx context.Context, record interface{}, rule *models.RuleDefinition, table map[string]models.Status) models.Finding {
	finding := models.Finding{
		RuleID:      rule.ID,
		Title:       rule.Title,
		Severity:    rule.Severity,
		Remediation: rule.Remediation,
	}

	// DependencyCheck: on an unmet dependency the rule is skipped; no
	// evaluator or resolver runs for this record.
	if ok, unmet := checkDependencies(rule.DependsOn, table); !ok {
		finding.Status = models.StatusWarning
		finding.Evidence = e.enrich(record, rule, "dependency not satisfied: "+strings.Join(unmet, ", "))
		return finding
	}

	status, outcome := e.evaluate(ctx, record, rule)

	finding.Status = status
	finding.Evidence = e.enrich(record, rule, outcome.Evidence)
	finding.EvaluationResult = outcome.Result
	return finding
}

// evaluate dispatches on the rule shape and classifies the outcome:
// passed when the result is true; failed when false and a value was
// actually examined; warning when the target resolved to null with no
// custom evaluator and an evaluator other than exists, which separates
// "not configured" from "explicitly non-compliant".
func (e *Executor) evaluate(ctx context.Context, record interface{}, rule *models.RuleDefinition) (models.Status, evaluator.Outcome) {
	shape, err := rule.Shape()
	if err != nil {
		// Unreachable after load-time validation; classify rather than abort.
		return models.StatusFailed, evaluator.Outcome{Evidence: err.Error()}
	}

	switch shape {
	case models.ShapeComposite:
		result, outcomes := evaluator.EvaluateComposite(record, rule.Logic, rule.Conditions)
		return classify(result), evaluator.Outcome{
			Result:   result,
			Evidence: evaluator.CompositeEvidence(rule.Logic, outcomes),
		}

	case models.ShapeCustom:
		path := rule.TargetPath
		if path == "" {
			path = "$"
		}
		value := resolver.Resolve(record, path)
		if rule.ExpectedType != "" {
			if shapeName := evaluator.ShapeOf(value); shapeName != rule.ExpectedType {
				return models.StatusFailed, evaluator.Outcome{
					Evidence: fmt.Sprintf("type mismatch: expected %q, got %q", rule.ExpectedType, shapeName),
				}
			}
		}
		outcome := e.sandbox.Evaluate(ctx, rule.CustomEvaluator, value)
		return classify(outcome.Result), outcome

	default: // ShapeSimple
		value := resolver.Resolve(record, rule.TargetPath)
		spec := evaluator.Parse(rule.Evaluator, rule.ExpectedValue, rule.ExpectedType)

		if value == nil && spec.Kind != evaluator.KindExists {
			return models.StatusWarning, evaluator.Outcome{
				Evidence: fmt.Sprintf("target path %s resolved to null: not configured", rule.TargetPath),
			}
		}

		outcome := evaluator.Evaluate(value, spec)
		return classify(outcome.Result), outcome
	}
}

func classify(result bool) models.Status {
	if result {
		return models.StatusPassed
	}
	return models.StatusFailed
}

// enrich appends the evidencePath value, when declared, to the evidence
// text. Best effort: a path miss adds nothing.
func (e *Executor) enrich(record interface{}, rule *models.RuleDefinition, evidence string) string {
	if rule.EvidencePath == "" {
		return evidence
	}
	value := resolver.Resolve(record, rule.EvidencePath)
	if value == nil {
		return evidence
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return evidence
	}
	return fmt.Sprintf("%s [%s: %s]", evidence, rule.EvidencePath, encoded)
}
