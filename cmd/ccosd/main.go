// Package main implements ccosd, the CCOS Runtime Service daemon: it loads
// a goal from the command line or an interactive prompt, runs it through
// the Intent Graph / Modular Planner / Capability Marketplace / MicroVM
// pipeline, and streams the Runtime Service's events to the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mandubian/ccos-sub008/ccoserr"
	"github.com/mandubian/ccos-sub008/config"
)

// Build information (set via ldflags).
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a returned error onto spec §6's exit code contract: 0
// success, 2 config error, 3 security refusal, 4 sandbox failure, 5 ledger
// integrity failure. Anything else is a generic failure (1).
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return 2
	}
	switch ccoserr.KindOf(err) {
	case ccoserr.KindSecurityViolation, ccoserr.KindPermissionDenied:
		return 3
	case ccoserr.KindResourceLimitExceeded, ccoserr.KindTimeout, ccoserr.KindProviderError:
		return 4
	case ccoserr.KindIntegrityError:
		return 5
	default:
		return 1
	}
}

// configError tags a config-loading/validation failure so exitCodeFor can
// distinguish it from a runtime failure without string-matching.
type configError struct{ cause error }

func (e *configError) Error() string { return e.cause.Error() }
func (e *configError) Unwrap() error { return e.cause }

func run() error {
	var (
		configPath string
		natsURL    string
		metricsAddr string
	)

	rootCmd := &cobra.Command{
		Use:   "ccosd [goal]",
		Short: "CCOS Runtime Service daemon",
		Long: `ccosd runs natural-language goals through the Cognitive Computing
Orchestration Substrate: Intent Graph decomposition, Capability Marketplace
resolution, Plan Language synthesis, and sandboxed execution, with every
step recorded to an append-only Causal Chain ledger.

Run without arguments for an interactive prompt, or provide a goal for
one-shot execution.`,
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd.Context(), configPath, natsURL, metricsAddr, args)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.Flags().StringVar(&natsURL, "nats-url", "", "NATS server URL (default: embedded)")
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus /metrics listen address (empty disables)")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func runDaemon(ctx context.Context, configPath, natsURL, metricsAddr string, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.NewLoader(logger).Load()
	}
	if err != nil {
		return &configError{cause: fmt.Errorf("load config: %w", err)}
	}

	if natsURL != "" {
		cfg.NATS.URL = natsURL
		cfg.NATS.Embedded = false
	}
	if err := cfg.Validate(); err != nil {
		return &configError{cause: fmt.Errorf("invalid config: %w", err)}
	}

	app, err := NewApp(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer app.Shutdown(5 * time.Second)

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start app: %w", err)
	}

	if metricsAddr != "" {
		app.ServeMetrics(metricsAddr)
	}

	if len(args) > 0 {
		return app.RunOneShot(ctx, args[0])
	}
	return app.RunREPL(ctx)
}
