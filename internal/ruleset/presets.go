package ruleset

import (
	"embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/confaudit/confaudit/internal/models"
	"github.com/confaudit/confaudit/internal/predicate"
)

//go:embed presets/*.yaml
var presetFS embed.FS

// presetCache holds parsed presets to avoid re-reading the embedded FS
var presetCache = map[string]*models.RuleSet{}

// presetFiles maps preset names to embedded file paths
var presetFiles = map[string]string{
	"identity-baseline": "presets/identity-baseline.yaml",
	"identity-strict":   "presets/identity-strict.yaml",
}

// GetPreset returns an embedded rule-set preset by name, or nil.
func GetPreset(name string) *models.RuleSet {
	if cached, ok := presetCache[name]; ok {
		return cached
	}

	path, ok := presetFiles[name]
	if !ok {
		return nil
	}

	data, err := presetFS.ReadFile(path)
	if err != nil {
		return nil
	}

	var rs models.RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return nil
	}

	presetCache[name] = &rs
	return &rs
}

// ListPresetNames returns the available preset names, sorted.
func ListPresetNames() []string {
	names := make([]string, 0, len(presetFiles))
	for name := range presetFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadOrPreset resolves ref as a preset name first, then as a path.
// Either way the rule set goes through the same validation.
func LoadOrPreset(ref string, sandbox *predicate.Sandbox) (*models.RuleSet, error) {
	if preset := GetPreset(ref); preset != nil {
		// Presets are validated too: a copy keeps severity defaulting
		// from mutating the cached set.
		rs := &models.RuleSet{Name: preset.Name, Rules: append([]models.RuleDefinition(nil), preset.Rules...)}
		if err := Validate(rs, sandbox); err != nil {
			return nil, fmt.Errorf("preset %q: %w", ref, err)
		}
		return rs, nil
	}
	return LoadAndValidate(ref, sandbox)
}
