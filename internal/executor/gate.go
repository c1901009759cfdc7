package executor

import "github.com/confaudit/confaudit/internal/models"

// checkDependencies consults the record's result table. Satisfied iff
// every listed rule id is present with status exactly "passed"; a
// dangling reference or any other status counts as unmet. An empty list
// is trivially satisfied.
func checkDependencies(dependsOn []string, table map[string]models.Status) (bool, []string) {
	var unmet []string
	for _, id := range dependsOn {
		if table[id] != models.StatusPassed {
			unmet = append(unmet, id)
		}
	}
	return len(unmet) == 0, unmet
}
