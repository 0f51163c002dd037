// Copyright 2026 The Geoloc Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/geoloc-cli/geoloc/locate"
)

var (
	flagFormat        string
	flagProvider      string
	flagTimeout       int
	flagVerbose       bool
	flagHTTPTrace     bool
	flagHTTPBodyTrace bool
	flagConfig        string
	flagH3Resolution  int
)

var rootCmd = &cobra.Command{
	Use:   "geoloc",
	Short: "Print the host's current geographic location in a pipe-friendly format",
	Long: `
geoloc resolves the machine's coordinates through the OS location
service (GeoClue2, or CoreLocation on macOS) and, when that is
unavailable, through IP-based geolocation. It
performs a single resolution per invocation and exits with a scripting-
friendly status: 0 on success, 1 on network failure, 70 when the
location service is unavailable and 77 on permission denial.
`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runResolve,
}

var Version = "dev"

func init() {
	rootCmd.Flags().StringVar(&flagFormat, "format", string(locate.StylePlain),
		"output format: plain, machine, json, csv, env or h3")
	rootCmd.Flags().StringVar(&flagProvider, "provider", string(locate.ModeAuto),
		"provider to use: auto, geoclue, corelocation or ip")
	rootCmd.Flags().IntVar(&flagTimeout, "timeout", int(locate.DefaultPrimaryTimeout/time.Second),
		"seconds to wait for a native fix before falling back")
	rootCmd.Flags().BoolVar(&flagVerbose, "verbose", false,
		"enable debug diagnostics on stderr")
	rootCmd.Flags().BoolVar(&flagHTTPTrace, "http-trace", false,
		"dump fallback HTTP transactions to stderr")
	rootCmd.Flags().BoolVar(&flagHTTPBodyTrace, "http-body-trace", false,
		"include bodies in the HTTP trace")
	rootCmd.Flags().StringVar(&flagConfig, "config", "",
		"config file (default $XDG_CONFIG_HOME/geoloc/config.yaml)")
	rootCmd.Flags().IntVar(&flagH3Resolution, "h3-resolution", locate.DefaultH3Resolution,
		"cell resolution for --format h3 (0..15)")
}

// Execute runs the CLI and returns the process exit code.
func Execute(version string) int {
	Version = version
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "geoloc: %s\n", err)

		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}

		return locate.ExitFailure
	}

	return locate.ExitOK
}

// exitError carries a resolution failure's exit code through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func runResolve(cmd *cobra.Command, _ []string) error {
	logger := newLogger(flagVerbose)

	cfg, err := loadConfig(cmd, logger)
	if err != nil {
		return err
	}

	style, err := locate.ParseStyle(cfg.Format)
	if err != nil {
		return err
	}

	mode, err := locate.ParseMode(cfg.Provider)
	if err != nil {
		return err
	}

	// An interrupt cancels the in-flight attempt through the context;
	// the native provider releases its session on that path too.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var trace io.Writer
	if flagHTTPTrace || flagHTTPBodyTrace {
		trace = os.Stderr
	}

	resolver := &locate.Resolver{
		Primary: locate.NewNativeProvider(cfg.Primary, logger),
		Fallback: locate.NewIPAPIProvider(locate.IPAPIOptions{
			Endpoint:  cfg.Fallback.Endpoint,
			Timeout:   cfg.FallbackTimeout(),
			UserAgent: "geoloc/" + Version,
			HTTPTrace: trace,
			TraceBody: flagHTTPBodyTrace,
		}),
		Mode:           mode,
		PrimaryTimeout: cfg.PrimaryTimeout(),
		Logger:         logger,
	}

	stopSpinner := startSpinner(trace == nil)
	result := resolver.Resolve(ctx)
	stopSpinner()

	if !result.Resolved() {
		return &exitError{code: locate.ExitCode(result), msg: result.Kind.String()}
	}

	text, err := locate.Format(result.Fix, style, cfg.H3Resolution)
	if err != nil {
		return err
	}

	logger.Debug("location resolved", "source", result.Source)
	fmt.Fprintln(cmd.OutOrStdout(), text)

	return nil
}

// loadConfig layers defaults, the config file, environment overrides
// and explicitly-set flags, in that order.
func loadConfig(cmd *cobra.Command, logger *slog.Logger) (*locate.Config, error) {
	path := flagConfig
	explicit := path != ""
	if !explicit {
		path = locate.DefaultConfigPath()
	}

	cfg := locate.DefaultConfig()
	if path != "" {
		loaded, err := locate.LoadConfig(path)
		switch {
		case err == nil:
			cfg = loaded
			logger.Debug("config loaded", "path", path)
		case explicit:
			return nil, err
		case !os.IsNotExist(err):
			logger.Warn("ignoring config file", "path", path, "err", err)
		}
	}

	cfg.ApplyEnvOverrides()

	if cmd.Flags().Changed("format") {
		cfg.Format = flagFormat
	}
	if cmd.Flags().Changed("provider") {
		cfg.Provider = flagProvider
	}
	if cmd.Flags().Changed("timeout") {
		cfg.TimeoutSeconds = flagTimeout
	}
	if cmd.Flags().Changed("h3-resolution") {
		cfg.H3Resolution = flagH3Resolution
	}

	return cfg, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		TimeFormat: time.Kitchen,
	}))
}

// startSpinner shows a spinner on stderr while the resolution is in
// flight. It stays silent when stderr is not a terminal or when an
// HTTP trace would interleave with it. The returned func stops and
// clears it.
func startSpinner(enabled bool) func() {
	if !enabled || !isatty.IsTerminal(os.Stderr.Fd()) {
		return func() {}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("resolving location"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	return func() {
		close(done)
		_ = bar.Finish()
	}
}
