// Package evaluator implements the named boolean predicates a rule can
// apply to a resolved value, plus AND/OR composition over conditions.
// Evaluators are a closed enum registered in a lookup table; adding one
// is a compile-time change, not a new string pattern.
package evaluator

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the built-in evaluators.
type Kind int

const (
	KindUnknown Kind = iota
	KindExists
	KindType
	KindEquals
	KindContains
	KindArrayLengthMin
	KindArrayLengthMax
)

const (
	arrayLengthMinPrefix = "arrayLength>="
	arrayLengthMaxPrefix = "arrayLength<="
)

var kindNames = map[string]Kind{
	"exists":   KindExists,
	"type":     KindType,
	"equals":   KindEquals,
	"contains": KindContains,
}

// Spec is one parsed evaluator invocation.
type Spec struct {
	Kind          Kind
	Raw           string
	Threshold     int
	ThresholdErr  error // malformed arrayLength threshold; evaluates to false, never panics
	ExpectedValue interface{}
	ExpectedType  string
}

// Outcome pairs the boolean result with human-readable evidence.
type Outcome struct {
	Result   bool
	Evidence string
}

// Parse maps an evaluator name to its Spec. Unrecognized names yield
// KindUnknown, which always evaluates to false.
func Parse(name string, expectedValue interface{}, expectedType string) Spec {
	spec := Spec{Raw: name, ExpectedValue: expectedValue, ExpectedType: expectedType}

	if kind, ok := kindNames[name]; ok {
		spec.Kind = kind
		return spec
	}

	switch {
	case strings.HasPrefix(name, arrayLengthMinPrefix):
		spec.Kind = KindArrayLengthMin
		spec.Threshold, spec.ThresholdErr = parseThreshold(name, arrayLengthMinPrefix)
	case strings.HasPrefix(name, arrayLengthMaxPrefix):
		spec.Kind = KindArrayLengthMax
		spec.Threshold, spec.ThresholdErr = parseThreshold(name, arrayLengthMaxPrefix)
	default:
		spec.Kind = KindUnknown
	}
	return spec
}

func parseThreshold(name, prefix string) (int, error) {
	raw := strings.TrimPrefix(name, prefix)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid arrayLength threshold %q", raw)
	}
	return n, nil
}

// Evaluate applies spec to a resolved value. Pure: no side effects. An
// expectedType mismatch short-circuits to false before any evaluator
// logic runs.
func Evaluate(value interface{}, spec Spec) Outcome {
	if spec.ExpectedType != "" {
		if shape := ShapeOf(value); shape != spec.ExpectedType {
			return Outcome{false, fmt.Sprintf("type mismatch: expected %q, got %q", spec.ExpectedType, shape)}
		}
	}

	switch spec.Kind {
	case KindExists:
		return evalExists(value)
	case KindType:
		return evalType(value, spec.ExpectedType)
	case KindEquals:
		return evalEquals(value, spec.ExpectedValue)
	case KindContains:
		return evalContains(value, spec.ExpectedValue)
	case KindArrayLengthMin, KindArrayLengthMax:
		return evalArrayLength(value, spec)
	default:
		return Outcome{false, fmt.Sprintf("unknown evaluator %q", spec.Raw)}
	}
}

func evalExists(value interface{}) Outcome {
	if value == nil {
		return Outcome{false, "value is null or absent"}
	}
	if s, ok := value.(string); ok && s == "" {
		return Outcome{false, "value is an empty string"}
	}
	return Outcome{true, fmt.Sprintf("value %s is present", formatValue(value))}
}

func evalType(value interface{}, expectedType string) Outcome {
	shape := ShapeOf(value)
	if shape == expectedType {
		return Outcome{true, fmt.Sprintf("value type is %q", shape)}
	}
	return Outcome{false, fmt.Sprintf("type mismatch: expected %q, got %q", expectedType, shape)}
}

func evalEquals(value, expected interface{}) Outcome {
	switch value.(type) {
	case []interface{}, map[string]interface{}:
		// Deliberately unsupported: no structural equality, no coercion.
		return Outcome{false, "equals does not support array or object values"}
	}
	if scalarEqual(value, expected) {
		return Outcome{true, fmt.Sprintf("value %s equals expected value", formatValue(value))}
	}
	return Outcome{false, fmt.Sprintf("expected %s, got %s", formatValue(expected), formatValue(value))}
}

// evalContains tests array membership (scalar equality) or, for strings,
// case-insensitive substring containment. Documented choice: case
// insensitivity mirrors the wildcard matching this replaces.
func evalContains(value, expected interface{}) Outcome {
	switch v := value.(type) {
	case []interface{}:
		for _, element := range v {
			if scalarEqual(element, expected) {
				return Outcome{true, fmt.Sprintf("array contains %s", formatValue(expected))}
			}
		}
		return Outcome{false, fmt.Sprintf("array does not contain %s", formatValue(expected))}
	case string:
		needle := strings.ToLower(stringify(expected))
		if strings.Contains(strings.ToLower(v), needle) {
			return Outcome{true, fmt.Sprintf("value %s contains %s", formatValue(v), formatValue(expected))}
		}
		return Outcome{false, fmt.Sprintf("value %s does not contain %s", formatValue(v), formatValue(expected))}
	default:
		return Outcome{false, fmt.Sprintf("contains requires an array or string value, got %q", ShapeOf(value))}
	}
}

func evalArrayLength(value interface{}, spec Spec) Outcome {
	if spec.ThresholdErr != nil {
		return Outcome{false, spec.ThresholdErr.Error()}
	}
	arr, ok := value.([]interface{})
	if !ok {
		return Outcome{false, fmt.Sprintf("type mismatch: %s requires an array, got %q", spec.Raw, ShapeOf(value))}
	}

	if spec.Kind == KindArrayLengthMin {
		if len(arr) >= spec.Threshold {
			return Outcome{true, fmt.Sprintf("array length %d >= %d", len(arr), spec.Threshold)}
		}
		return Outcome{false, fmt.Sprintf("array length %d < %d", len(arr), spec.Threshold)}
	}
	if len(arr) <= spec.Threshold {
		return Outcome{true, fmt.Sprintf("array length %d <= %d", len(arr), spec.Threshold)}
	}
	return Outcome{false, fmt.Sprintf("array length %d > %d", len(arr), spec.Threshold)}
}

// ShapeOf reports the runtime shape of a decoded JSON value as one of
// array, object, string, boolean, number, or unknown.
func ShapeOf(value interface{}) string {
	switch value.(type) {
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, uint, uint32, uint64:
		return "number"
	default:
		return "unknown"
	}
}

// scalarEqual compares scalars, normalizing numeric types so a YAML int
// and a JSON float64 compare equal.
func scalarEqual(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	return a == b
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(val)
	case []interface{}:
		return fmt.Sprintf("array(len=%d)", len(val))
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%v", val)
	}
}
