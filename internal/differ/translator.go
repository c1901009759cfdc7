package differ

import (
	"fmt"
	"strings"

	"github.com/wI2L/jsondiff"
)

// Translate renders JSON patch operations on a finding as plain
// sentences for the drift report.
func Translate(patches jsondiff.Patch) []string {
	if len(patches) == 0 {
		return nil
	}

	var translations []string
	seen := make(map[string]bool)

	for _, op := range patches {
		translation := translateOperation(op)
		if translation != "" && !seen[translation] {
			seen[translation] = true
			translations = append(translations, translation)
		}
	}
	return translations
}

func translateOperation(op jsondiff.Operation) string {
	if op.Type != jsondiff.OperationReplace {
		return fmt.Sprintf("field %s %sed", op.Path, op.Type)
	}

	switch {
	case strings.HasSuffix(op.Path, "/status"):
		return fmt.Sprintf("status: %v -> %v", op.OldValue, op.Value)
	case strings.HasSuffix(op.Path, "/evaluationResult"):
		return fmt.Sprintf("evaluation result: %v -> %v", op.OldValue, op.Value)
	case strings.HasSuffix(op.Path, "/evidence"):
		return "evidence text changed"
	case strings.HasSuffix(op.Path, "/severity"):
		return fmt.Sprintf("severity: %v -> %v", op.OldValue, op.Value)
	case strings.HasSuffix(op.Path, "/remediation"):
		return "remediation text changed"
	default:
		return fmt.Sprintf("field %s changed", op.Path)
	}
}
