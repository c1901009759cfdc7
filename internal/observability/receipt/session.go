package receipt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/confaudit/confaudit/internal/observability"
)

// MaxErrorLength is the maximum length for error strings in receipts.
const MaxErrorLength = 2048

// Session tracks command execution
type Session struct {
	ctx     context.Context
	start   time.Time
	command string
	args    []string
}

// Start session
func Start(ctx context.Context, cmd string, args []string) *Session {
	return &Session{
		ctx:     ctx,
		start:   time.Now(),
		command: cmd,
		args:    args,
	}
}

// Option configures receipt
type Option func(*Receipt)

// WithRuleSet records the rule set input and its digest.
func WithRuleSet(path string) Option {
	return func(r *Receipt) {
		if path == "" {
			return
		}
		ref := &InputRef{Path: path}
		if hash, err := computeSHA256(path); err == nil {
			ref.SHA256 = hash
		}
		r.RuleSet = ref
	}
}

// WithRecords records the records input and its digest.
func WithRecords(path string) Option {
	return func(r *Receipt) {
		if path == "" {
			return
		}
		ref := &InputRef{Path: path}
		if hash, err := computeSHA256(path); err == nil {
			ref.SHA256 = hash
		}
		r.Records = ref
	}
}

// WithEvaluation option
func WithEvaluation(s EvaluationSummary) Option {
	return func(r *Receipt) {
		r.Evaluation = &s
	}
}

// WithDrift option
func WithDrift(critical, moderate, info int, summary string) Option {
	return func(r *Receipt) {
		r.Drift = &DriftSummary{
			Critical: critical,
			Moderate: moderate,
			Info:     info,
			Summary:  summary,
		}
	}
}

// Finish and write receipt
func (s *Session) Finish(err error, opts ...Option) error {
	w := From(s.ctx)
	if w == nil {
		// No writer configured, receipts disabled
		return nil
	}

	r := Receipt{
		SchemaVersion: ReceiptSchemaVersion,
		RunID:         observability.RunID(s.ctx),
		TsStart:       s.start.Format(time.RFC3339Nano),
		TsEnd:         time.Now().Format(time.RFC3339Nano),
		Command:       s.command,
		Args:          s.args,
	}

	if err != nil {
		r.Result = Result{
			Status: "fail",
			Error:  truncateError(err.Error()),
		}
	} else {
		r.Result = Result{
			Status: "success",
		}
	}

	for _, opt := range opts {
		opt(&r)
	}

	return w.Write(r)
}

// computeSHA256 helper
func computeSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// truncateError helper
func truncateError(s string) string {
	if len(s) <= MaxErrorLength {
		return s
	}
	return s[:MaxErrorLength-3] + "..."
}
