// Package predicate executes user-supplied boolean expressions against a
// resolved value. Expressions are CEL, evaluated in an environment that
// declares exactly one variable ("value") and nothing else: no file,
// network, or environment access exists inside the sandbox.
package predicate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/confaudit/confaudit/internal/evaluator"
)

// DefaultTimeout bounds a single expression evaluation.
const DefaultTimeout = 5 * time.Second

// Sandbox compiles and runs custom rule expressions. Safe for
// concurrent use by record workers.
type Sandbox struct {
	env     *cel.Env
	timeout time.Duration

	mu       sync.Mutex
	programs map[string]cel.Program
}

func New(timeout time.Duration) (*Sandbox, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	env, err := cel.NewEnv(
		cel.Variable("value", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &Sandbox{
		env:      env,
		timeout:  timeout,
		programs: make(map[string]cel.Program),
	}, nil
}

// Compile validates an expression and caches its program. Called at
// rule-set load time so malformed expressions are fatal before any
// record is processed.
func (s *Sandbox) Compile(expr string) error {
	_, err := s.program(expr)
	return err
}

func (s *Sandbox) program(expr string) (cel.Program, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prg, ok := s.programs[expr]; ok {
		return prg, nil
	}

	ast, issues := s.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL compile error: %w", issues.Err())
	}
	prg, err := s.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("CEL program error: %w", err)
	}
	s.programs[expr] = prg
	return prg, nil
}

// Evaluate runs expr with the resolved value bound to "value". Any
// execution error, including a timeout, is converted into a false
// outcome carrying the error text; it never aborts the run.
func (s *Sandbox) Evaluate(ctx context.Context, expr string, value interface{}) evaluator.Outcome {
	prg, err := s.program(expr)
	if err != nil {
		return evaluator.Outcome{Result: false, Evidence: fmt.Sprintf("custom evaluator error: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	out, _, err := prg.ContextEval(ctx, map[string]interface{}{"value": value})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return evaluator.Outcome{Result: false, Evidence: fmt.Sprintf("custom evaluator timed out after %s", s.timeout)}
		}
		return evaluator.Outcome{Result: false, Evidence: fmt.Sprintf("custom evaluator error: %v", err)}
	}

	result := truthy(out.Value())
	return evaluator.Outcome{
		Result:   result,
		Evidence: fmt.Sprintf("custom evaluator returned %t", result),
	}
}

// truthy applies the coercion contract: null, false, zero, and the
// empty string are false; everything else is true.
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case structpb.NullValue:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int64:
		return t != 0
	case uint64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
