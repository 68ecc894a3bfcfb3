package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/timvw/pane-relay/internal/config"
	"github.com/timvw/pane-relay/internal/execution"
	"github.com/timvw/pane-relay/internal/history"
	"github.com/timvw/pane-relay/internal/logging"
	"github.com/timvw/pane-relay/internal/mux"
	telem "github.com/timvw/pane-relay/internal/otel"
)

// Version is set at build time via -ldflags "-X github.com/timvw/pane-relay/cmd.Version=...".
var Version = "dev"

var (
	// Global flags.
	flagMux       string
	flagSocket    string
	flagShellType string
	flagJSON      bool
)

// Per-invocation state set up by PersistentPreRunE.
var (
	cfg  *config.Config
	tel  *telem.Telemetry
	hist *history.Store
)

var cliLog = logging.ForComponent(logging.CompCLI)

var rootCmd = &cobra.Command{
	Use:   "pane-relay",
	Short: "Run commands in tmux panes and collect their exit status and output",
	Long: `pane-relay exposes tmux sessions, windows and panes and runs shell
commands inside a pane, reporting each command's exit status and output.

tmux has no "run this and tell me when it is done" primitive, so pane-relay
arms a small shell hook before each command. The hook prints a start marker
and, once the command finishes, an end marker carrying the exit status.
Install it with:

  eval "$(pane-relay hook bash)"   # or zsh, or: pane-relay hook fish | source`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err := rootCmd.ExecuteContext(ctx)
	teardown(ctx)
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagMux, "mux", "", "terminal multiplexer: tmux (default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&flagSocket, "socket", "", "tmux socket name (-L) or absolute socket path (-S)")
	rootCmd.PersistentFlags().StringVar(&flagShellType, "shell-type", "", "shell family of the target panes: bash, zsh, fish (default: bash)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print JSON instead of tables")
}

// setup loads configuration and starts logging, telemetry and the optional
// history store. Flags override everything loaded from env and file.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if flagMux != "" {
		cfg.Mux = flagMux
	}
	if flagSocket != "" {
		cfg.TmuxSocket = flagSocket
	}
	if flagShellType != "" {
		cfg.Shell = flagShellType
	}
	if err := cfg.Resolve(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if err := logging.Init(logging.Config{
		LogDir: cfg.LogDir,
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "warning: logging init failed: %v\n", err)
	}
	cliLog.Debug("config loaded", "file", cfg.ConfigFile, "shell", cfg.Family, "command", cmd.Name())

	// Wire build version into OTEL service metadata
	telem.Version = Version

	// Initialize OTEL (no-op if no endpoint configured)
	tel, err = telem.Init(cmd.Context(), telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: otel init failed: %v\n", err)
	}

	if cfg.HistoryDB != "" {
		hist, err = history.Open(cfg.HistoryDB)
		if err != nil {
			logging.ForComponent(logging.CompHistory).Warn("history disabled", "path", cfg.HistoryDB, "error", err)
			fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
			hist = nil
		}
	}
	return nil
}

func teardown(ctx context.Context) {
	if hist != nil {
		_ = hist.Close()
		hist = nil
	}
	if tel != nil {
		tel.Shutdown(context.WithoutCancel(ctx))
		tel = nil
	}
	logging.Shutdown()
}

func metrics() *telem.Metrics {
	if tel == nil {
		return nil
	}
	return tel.Metrics
}

// getClient returns a topology client for the configured or auto-detected
// multiplexer.
func getClient(ctx context.Context) (*mux.Client, error) {
	var (
		t   *mux.Tmux
		err error
	)
	if cfg.Mux != "" {
		t, err = mux.FromName(cfg.Mux, cfg.TmuxSocket)
	} else {
		t, err = mux.Detect(ctx, cfg.TmuxSocket)
	}
	if err != nil {
		return nil, err
	}
	t.Metrics = metrics()
	return mux.NewClient(t), nil
}

// getDispatcher wires a dispatcher and a fresh tracker to the multiplexer.
func getDispatcher(ctx context.Context) (*execution.Dispatcher, error) {
	c, err := getClient(ctx)
	if err != nil {
		return nil, err
	}
	opts := []execution.TrackerOption{
		execution.WithCaptureLines(cfg.CaptureLines),
		execution.WithMetrics(metrics()),
	}
	if hist != nil {
		opts = append(opts, execution.WithRecorder(hist))
	}
	return execution.NewDispatcher(c, execution.NewTracker(c, opts...), metrics()), nil
}
