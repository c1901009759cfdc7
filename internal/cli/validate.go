package cli

import (
	"fmt"
	"os"

	"github.com/confaudit/confaudit/internal/observability/receipt"
	"github.com/confaudit/confaudit/internal/predicate"
	"github.com/confaudit/confaudit/internal/ruleset"
	"github.com/spf13/cobra"
)

// validateCmd checks a rule set without evaluating any records
var validateCmd = &cobra.Command{
	Use:   "validate --rules <ruleset|preset>",
	Short: "Validate a rule set without evaluating records",
	Long: `Loads a rule set and applies every load-time check: rule ids,
severities, rule shapes, custom expression compilation, and dependency
cycles. Exits non-zero on the first defect.

Example:
  confaudit validate --rules rules.yaml`,
	RunE:         runValidate,
	SilenceUsage: true,
}

var validateRulesFlag string

func init() {
	validateCmd.Flags().StringVar(&validateRulesFlag, "rules", "", "Rule set file (JSON or YAML) or preset name")
	_ = validateCmd.MarkFlagRequired("rules")
}

// GetValidateCmd export
func GetValidateCmd() *cobra.Command {
	return validateCmd
}

func runValidate(cmd *cobra.Command, args []string) (err error) {
	ctx := cmd.Context()
	sess := receipt.Start(ctx, "confaudit validate", os.Args[1:])
	defer func() {
		_ = sess.Finish(err, receipt.WithRuleSet(validateRulesFlag))
	}()

	sandbox, err := predicate.New(0)
	if err != nil {
		return fmt.Errorf("failed to build evaluator sandbox: %w", err)
	}

	rs, err := ruleset.LoadOrPreset(validateRulesFlag, sandbox)
	if err != nil {
		return err
	}

	name := rs.Name
	if name == "" {
		name = validateRulesFlag
	}
	fmt.Printf("%s✓ %s is valid%s (%d rules)\n", colorGreen, name, colorReset, len(rs.Rules))
	return nil
}
