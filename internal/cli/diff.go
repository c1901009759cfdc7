package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/confaudit/confaudit/internal/differ"
	"github.com/confaudit/confaudit/internal/models"
	"github.com/confaudit/confaudit/internal/observability/receipt"
	"github.com/spf13/cobra"
)

// diffCmd compares two saved compliance reports
var diffCmd = &cobra.Command{
	Use:   "diff --baseline <report.json> --current <report.json>",
	Short: "Compare two compliance reports for drift",
	Long: `Compares a committed baseline report against a current report and
classifies every difference: findings added or removed, status changes,
and detail changes, each graded info, moderate, or critical.

Examples:
  # Human readable drift summary
  confaudit diff --baseline baseline.json --current report.json

  # Fail CI on any status regression
  confaudit diff --baseline baseline.json --current report.json --fail-on=moderate`,
	RunE:         runDiff,
	SilenceUsage: true,
}

var (
	diffBaselineFlag string
	diffCurrentFlag  string
	diffFormatFlag   string
	diffFailOnFlag   string
)

func init() {
	diffCmd.Flags().StringVar(&diffBaselineFlag, "baseline", "", "Baseline report (JSON)")
	diffCmd.Flags().StringVar(&diffCurrentFlag, "current", "", "Current report (JSON)")
	diffCmd.Flags().StringVar(&diffFormatFlag, "format", "text", "Output format: text or json")
	diffCmd.Flags().StringVar(&diffFailOnFlag, "fail-on", "critical", "Severity threshold for failure: critical, moderate, or info")
	_ = diffCmd.MarkFlagRequired("baseline")
	_ = diffCmd.MarkFlagRequired("current")
}

// GetDiffCmd export
func GetDiffCmd() *cobra.Command {
	return diffCmd
}

func runDiff(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "confaudit diff", os.Args[1:])
	var driftOpt receipt.Option

	defer func() {
		opts := []receipt.Option{}
		if driftOpt != nil {
			opts = append(opts, driftOpt)
		}
		_ = sess.Finish(err, opts...)
	}()

	failOn, err := ParseFailOnLevel(diffFailOnFlag)
	if err != nil {
		return err
	}
	if diffFormatFlag != "text" && diffFormatFlag != "json" {
		return fmt.Errorf("invalid format: %s (use text or json)", diffFormatFlag)
	}

	baseline, err := loadReport(diffBaselineFlag)
	if err != nil {
		return err
	}
	current, err := loadReport(diffCurrentFlag)
	if err != nil {
		return err
	}

	result, err := differ.Compare(baseline, current)
	if err != nil {
		return err
	}

	var critical, moderate, info int
	for _, item := range result.Items {
		switch item.Severity {
		case differ.SeverityCritical:
			critical++
		case differ.SeverityModerate:
			moderate++
		default:
			info++
		}
	}
	driftOpt = receipt.WithDrift(critical, moderate, info,
		fmt.Sprintf("score delta %+.1f", result.ScoreDelta))

	if diffFormatFlag == "json" {
		data, marshalErr := FormatJSONOutput(result)
		if marshalErr != nil {
			return fmt.Errorf("failed to encode drift result: %w", marshalErr)
		}
		fmt.Println(string(data))
	} else {
		fmt.Print(FormatDriftText(result))
	}

	for _, item := range result.Items {
		if failOn.ShouldFail(item.Severity) {
			if diffFormatFlag == "json" {
				os.Exit(1)
			}
			return fmt.Errorf("drift at or above %s severity detected", failOn)
		}
	}
	return nil
}

func loadReport(path string) (*models.SummaryReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var report models.SummaryReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &report, nil
}
