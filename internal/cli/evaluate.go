package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/confaudit/confaudit/internal/aggregate"
	"github.com/confaudit/confaudit/internal/canonical"
	"github.com/confaudit/confaudit/internal/executor"
	"github.com/confaudit/confaudit/internal/observability"
	"github.com/confaudit/confaudit/internal/observability/logging"
	otelobs "github.com/confaudit/confaudit/internal/observability/otel"
	"github.com/confaudit/confaudit/internal/observability/receipt"
	"github.com/confaudit/confaudit/internal/predicate"
	"github.com/confaudit/confaudit/internal/ruleset"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultPredicateTimeout = 5 * time.Second

// evaluateCmd runs a rule set against configuration records
var evaluateCmd = &cobra.Command{
	Use:   "evaluate --rules <ruleset|preset> --records <records.json>",
	Short: "Evaluate a rule set against configuration records",
	Long: `Evaluates every rule against every configuration record and prints
a compliance report with per-finding classification and an aggregate score.

Rules come from a JSON or YAML file, or from a built-in preset
(see 'confaudit presets').

Examples:
  # Evaluate a rule file against exported user records
  confaudit evaluate --rules rules.yaml --records users.json

  # Use a built-in preset and get JSON output for CI
  confaudit evaluate --rules identity-baseline --records users.json --format=json

  # Gate CI on a minimum compliance score
  confaudit evaluate --rules rules.yaml --records users.json --fail-below 90`,
	RunE:         runEvaluate,
	SilenceUsage: true,
}

var (
	evalRulesFlag     string
	evalRecordsFlag   string
	evalFormatFlag    string
	evalOutFlag       string
	evalWorkersFlag   int
	evalPredTimeout   time.Duration
	evalFailBelowFlag float64
)

func init() {
	evaluateCmd.Flags().StringVar(&evalRulesFlag, "rules", "", "Rule set file (JSON or YAML) or preset name")
	evaluateCmd.Flags().StringVar(&evalRecordsFlag, "records", "", "Configuration records file (JSON array)")
	evaluateCmd.Flags().StringVar(&evalFormatFlag, "format", "text", "Output format: text or json")
	evaluateCmd.Flags().StringVar(&evalOutFlag, "out", "", "Also write the JSON report to this path")
	evaluateCmd.Flags().IntVar(&evalWorkersFlag, "workers", 0, "Record evaluation concurrency (0 = number of CPUs)")
	evaluateCmd.Flags().DurationVar(&evalPredTimeout, "predicate-timeout", defaultPredicateTimeout, "Per-expression timeout for custom evaluators")
	evaluateCmd.Flags().Float64Var(&evalFailBelowFlag, "fail-below", -1, "Exit non-zero when the compliance score is below this percentage")
	_ = evaluateCmd.MarkFlagRequired("rules")
	_ = evaluateCmd.MarkFlagRequired("records")
}

// GetEvaluateCmd export
func GetEvaluateCmd() *cobra.Command {
	return evaluateCmd
}

func runEvaluate(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "confaudit evaluate", os.Args[1:])
	var receiptOpts []receipt.Option

	defer func() {
		receiptOpts = append(receiptOpts,
			receipt.WithRuleSet(evalRulesFlag),
			receipt.WithRecords(evalRecordsFlag))
		_ = sess.Finish(err, receiptOpts...)
	}()

	log := logging.From(ctx)
	start := time.Now()

	if h := otelobs.From(ctx); h != nil {
		var span trace.Span
		ctx, span = h.Tracer.Start(ctx, "confaudit.evaluate",
			trace.WithAttributes(
				attribute.String("confaudit.run_id", observability.RunID(ctx)),
				attribute.String("confaudit.command", "evaluate"),
				attribute.String("confaudit.rules", evalRulesFlag),
			))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed")
			} else {
				span.SetStatus(codes.Ok, "success")
			}
			span.End()
		}()
	}

	log.Event(ctx, "evaluate.start", map[string]any{"rules": evalRulesFlag})

	if evalFormatFlag != "text" && evalFormatFlag != "json" {
		return fmt.Errorf("invalid format: %s (use text or json)", evalFormatFlag)
	}

	sandbox, err := predicate.New(evalPredTimeout)
	if err != nil {
		return fmt.Errorf("failed to build evaluator sandbox: %w", err)
	}

	rs, err := ruleset.LoadOrPreset(evalRulesFlag, sandbox)
	if err != nil {
		return err
	}

	records, err := loadRecords(evalRecordsFlag)
	if err != nil {
		return err
	}

	exec := executor.New(rs, sandbox, evalWorkersFlag)
	findings := exec.Run(ctx, records)
	report := aggregate.Aggregate(findings, len(records), len(rs.Rules), time.Now().UTC())

	presetName := ""
	if ruleset.GetPreset(evalRulesFlag) != nil {
		presetName = evalRulesFlag
	}
	// The digest is over the canonical form, so formatting and key order
	// in saved reports never affect it.
	digest, digestErr := canonical.Hash(report)
	if digestErr != nil {
		digest = ""
	}
	receiptOpts = append(receiptOpts, receipt.WithEvaluation(receipt.EvaluationSummary{
		TotalChecks:     report.Summary.TotalChecks,
		Passed:          report.Summary.Passed,
		Failed:          report.Summary.Failed,
		Warning:         report.Summary.Warning,
		ComplianceScore: report.Summary.ComplianceScore,
		ReportDigest:    digest,
		Preset:          presetName,
	}))

	log.Event(ctx, "evaluate.complete", map[string]any{
		"duration_ms": time.Since(start).Milliseconds(),
		"records":     len(records),
		"rules":       len(rs.Rules),
		"score":       report.Summary.ComplianceScore,
	})

	if evalOutFlag != "" {
		data, marshalErr := FormatJSONOutput(report)
		if marshalErr != nil {
			return fmt.Errorf("failed to encode report: %w", marshalErr)
		}
		if writeErr := os.WriteFile(evalOutFlag, append(data, '\n'), 0644); writeErr != nil {
			return fmt.Errorf("failed to write report: %w", writeErr)
		}
	}

	if evalFormatFlag == "json" {
		data, marshalErr := FormatJSONOutput(report)
		if marshalErr != nil {
			return fmt.Errorf("failed to encode report: %w", marshalErr)
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(FormatReportText(report, rs.Name))
	}

	if evalFailBelowFlag >= 0 && report.Summary.ComplianceScore < evalFailBelowFlag {
		// For JSON format, exit without returning error so stdout stays parseable.
		if evalFormatFlag == "json" {
			os.Exit(1)
		}
		return fmt.Errorf("compliance score %.1f%% is below threshold %.1f%%",
			report.Summary.ComplianceScore, evalFailBelowFlag)
	}

	return nil
}

// loadRecords reads the configuration records file. A JSON array yields
// one record per element; a single object is treated as one record.
func loadRecords(path string) ([]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var records []interface{}
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("failed to parse records: %w", err)
		}
		return records, nil
	}

	var record interface{}
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to parse records: %w", err)
	}
	if _, ok := record.(map[string]interface{}); !ok {
		return nil, fmt.Errorf("records file must be a JSON array or object")
	}
	return []interface{}{record}, nil
}
