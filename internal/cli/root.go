// Package cli wires the confaudit commands.
package cli

import (
	"fmt"
	"os"

	"github.com/confaudit/confaudit/internal/observability"
	"github.com/confaudit/confaudit/internal/observability/logging"
	otelobs "github.com/confaudit/confaudit/internal/observability/otel"
	"github.com/confaudit/confaudit/internal/observability/receipt"
	"github.com/confaudit/confaudit/internal/version"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "confaudit",
	Short: "Declarative compliance checks for configuration records",
	Long: `confaudit evaluates declarative rule sets against configuration
records and produces classified compliance reports.`,
	Version:           version.BuildVersion(),
	PersistentPreRunE: setupObservability,
	PersistentPostRun: teardownObservability,
}

var (
	logFormatFlag  string
	logLevelFlag   string
	logOutputFlag  string
	otelFlag       bool
	otelEndpoint   string
	otelProtocol   string
	otelInsecure   bool
	otelSampleFlag float64
	receiptPath    string
	receiptMode    string
	noReceiptFlag  bool
)

var (
	activeLogger  logging.Logger
	activeOtel    *otelobs.Handle
	activeReceipt receipt.Writer
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&logFormatFlag, "log-format", "off", "Log format: jsonl or off")
	pf.StringVar(&logLevelFlag, "log-level", "info", "Minimum log level: debug, info, warn, or error")
	pf.StringVar(&logOutputFlag, "log-output", "stderr", "Log destination: stderr or a file path")
	pf.BoolVar(&otelFlag, "otel", false, "Enable OpenTelemetry tracing")
	pf.StringVar(&otelEndpoint, "otel-endpoint", "", "OTLP endpoint (default from OTEL_EXPORTER_OTLP_ENDPOINT)")
	pf.StringVar(&otelProtocol, "otel-protocol", otelobs.ProtocolHTTP, "OTLP protocol: otlphttp or otlpgrpc")
	pf.BoolVar(&otelInsecure, "otel-insecure", false, "Allow insecure OTLP connections")
	pf.Float64Var(&otelSampleFlag, "otel-sample-ratio", 1.0, "Trace sampling ratio (0..1)")
	pf.StringVar(&receiptPath, "receipt", "confaudit-receipt.json", "Receipt output path")
	pf.StringVar(&receiptMode, "receipt-mode", string(receipt.ModeOverwrite), "Receipt write mode: overwrite or append")
	pf.BoolVar(&noReceiptFlag, "no-receipt", false, "Disable receipt writing")

	rootCmd.AddCommand(GetEvaluateCmd())
	rootCmd.AddCommand(GetValidateCmd())
	rootCmd.AddCommand(GetDiffCmd())
	rootCmd.AddCommand(GetPresetsCmd())
}

// setupObservability builds the run context shared by every command:
// run id, logger, optional tracer, optional receipt writer.
func setupObservability(cmd *cobra.Command, args []string) error {
	ctx := observability.WithRunID(cmd.Context())

	logger, err := logging.NewLogger(logging.Config{
		Format: logFormatFlag,
		Level:  logLevelFlag,
		Output: logOutputFlag,
	})
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	activeLogger = logger
	ctx = logging.WithLogger(ctx, logger)

	if otelFlag {
		cfg := otelobs.DefaultConfig()
		cfg.Enabled = true
		cfg.Endpoint = otelEndpoint
		cfg.Protocol = otelProtocol
		cfg.Insecure = otelInsecure
		cfg.SampleRatio = otelSampleFlag

		handle, err := otelobs.Init(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		activeOtel = handle
		ctx = otelobs.WithHandle(ctx, handle)
	}

	if !noReceiptFlag {
		w, err := receipt.NewWriter(receiptPath, receiptMode)
		if err != nil {
			return fmt.Errorf("failed to open receipt: %w", err)
		}
		activeReceipt = w
		ctx = receipt.WithWriter(ctx, w)
	}

	cmd.SetContext(ctx)
	return nil
}

func teardownObservability(cmd *cobra.Command, args []string) {
	if activeReceipt != nil {
		_ = activeReceipt.Close()
	}
	if activeOtel != nil {
		_ = activeOtel.Shutdown(cmd.Context())
	}
	if activeLogger != nil {
		_ = activeLogger.Close()
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
