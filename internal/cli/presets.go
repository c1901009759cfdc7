package cli

import (
	"fmt"

	"github.com/confaudit/confaudit/internal/ruleset"
	"github.com/spf13/cobra"
)

// presetsCmd lists built-in rule sets
var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List built-in rule set presets",
	Long: `Lists the rule set presets compiled into the binary. A preset name
can be passed anywhere a rule set file is expected.`,
	RunE:         runPresets,
	SilenceUsage: true,
}

// GetPresetsCmd export
func GetPresetsCmd() *cobra.Command {
	return presetsCmd
}

func runPresets(cmd *cobra.Command, args []string) error {
	for _, name := range ruleset.ListPresetNames() {
		preset := ruleset.GetPreset(name)
		if preset == nil {
			continue
		}
		fmt.Printf("%-20s %s (%d rules)\n", name, preset.Name, len(preset.Rules))
	}
	return nil
}
