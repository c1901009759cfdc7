// Package ruleset loads and validates rule sets. All structural defects
// (missing ids, duplicate ids, malformed shapes, uncompilable custom
// expressions, dependency cycles) are fatal here, before any record is
// processed; per-rule runtime problems are the executor's concern.
package ruleset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confaudit/confaudit/internal/models"
	"github.com/confaudit/confaudit/internal/predicate"
)

// Load parses a rule set from a JSON or YAML file. The file may be a
// bare array of rules or an object with name/rules.
func Load(path string) (*models.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return parseYAML(data)
	default:
		return parseJSON(data)
	}
}

func parseJSON(data []byte) (*models.RuleSet, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var rules []models.RuleDefinition
		if err := json.Unmarshal(data, &rules); err != nil {
			return nil, fmt.Errorf("failed to parse rule set: %w", err)
		}
		return &models.RuleSet{Rules: rules}, nil
	}

	var rs models.RuleSet
	if err := json.Unmarshal(data, &rs); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	return &rs, nil
}

func parseYAML(data []byte) (*models.RuleSet, error) {
	var rs models.RuleSet
	if err := yaml.Unmarshal(data, &rs); err == nil && len(rs.Rules) > 0 {
		return &rs, nil
	}

	var rules []models.RuleDefinition
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse rule set: %w", err)
	}
	return &models.RuleSet{Rules: rules}, nil
}

// Validate applies the load-time fatal checks. The sandbox is used to
// compile custom expressions up front; compiled programs stay cached
// for evaluation.
func Validate(rs *models.RuleSet, sandbox *predicate.Sandbox) error {
	if len(rs.Rules) == 0 {
		return fmt.Errorf("rule set contains no rules")
	}

	seen := make(map[string]bool, len(rs.Rules))
	for i := range rs.Rules {
		rule := &rs.Rules[i]

		if rule.ID == "" {
			return fmt.Errorf("rule at index %d has no id", i)
		}
		if seen[rule.ID] {
			return fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		seen[rule.ID] = true

		if rule.Severity == "" {
			rule.Severity = models.SeverityInformational
		}
		if !rule.Severity.Valid() {
			return fmt.Errorf("rule %q has invalid severity %q", rule.ID, rule.Severity)
		}

		if err := validateShape(rule, sandbox); err != nil {
			return err
		}
	}

	return detectCycles(rs.Rules)
}

func validateShape(rule *models.RuleDefinition, sandbox *predicate.Sandbox) error {
	shape, err := rule.Shape()
	if err != nil {
		return err
	}

	switch shape {
	case models.ShapeSimple:
		if rule.TargetPath == "" || rule.Evaluator == "" {
			return fmt.Errorf("rule %q needs both targetPath and evaluator", rule.ID)
		}
	case models.ShapeComposite:
		if rule.Logic != models.LogicAnd && rule.Logic != models.LogicOr {
			return fmt.Errorf("rule %q has invalid logic %q (want AND or OR)", rule.ID, rule.Logic)
		}
		if len(rule.Conditions) == 0 {
			return fmt.Errorf("rule %q declares logic but no conditions", rule.ID)
		}
		for j, cond := range rule.Conditions {
			if cond.TargetPath == "" || cond.Evaluator == "" {
				return fmt.Errorf("rule %q condition %d needs both targetPath and evaluator", rule.ID, j)
			}
		}
	case models.ShapeCustom:
		if err := sandbox.Compile(rule.CustomEvaluator); err != nil {
			return fmt.Errorf("rule %q: %w", rule.ID, err)
		}
	}
	return nil
}

// detectCycles rejects circular dependsOn chains. Edges to unknown ids
// are not errors here; a dangling reference is defined as unmet at
// evaluation time.
func detectCycles(rules []models.RuleDefinition) error {
	graph := make(map[string][]string, len(rules))
	known := make(map[string]bool, len(rules))
	for _, r := range rules {
		known[r.ID] = true
	}
	for _, r := range rules {
		for _, dep := range r.DependsOn {
			if known[dep] {
				graph[r.ID] = append(graph[r.ID], dep)
			}
		}
	}

	const (
		white = 0 // unvisited
		gray  = 1 // on the current path
		black = 2 // done
	)
	color := make(map[string]int, len(rules))
	var path []string

	var visit func(id string) error
	visit = func(id string) error {
		color[id] = gray
		path = append(path, id)
		for _, dep := range graph[id] {
			switch color[dep] {
			case gray:
				return fmt.Errorf("dependency cycle: %s -> %s", strings.Join(path, " -> "), dep)
			case white:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, r := range rules {
		if color[r.ID] == white {
			if err := visit(r.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadAndValidate is the standard entrypoint for a path on disk.
func LoadAndValidate(path string, sandbox *predicate.Sandbox) (*models.RuleSet, error) {
	rs, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := Validate(rs, sandbox); err != nil {
		return nil, err
	}
	return rs, nil
}
