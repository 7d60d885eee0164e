package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ritzau/depscope/pkg/config"
	"github.com/ritzau/depscope/pkg/logging"
	"github.com/ritzau/depscope/pkg/output"
	"github.com/ritzau/depscope/pkg/scan"
	"github.com/ritzau/depscope/pkg/watcher"
	"github.com/ritzau/depscope/pkg/web"
)

// Version is set at build time with -ldflags "-X main.Version=..."
var Version = "dev"

// exitError carries the process exit status for an error
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func execute(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return scan.ExitOK
	}

	fmt.Fprintf(stderr, "ERROR: %v\n", err)
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	// Flag and argument errors from cobra
	return scan.ExitUsage
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "depscope",
		Short:         "Build-derived SBOM and dependency reporting for CMake projects",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(newScanCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the depscope version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "depscope %s\n", Version)
		},
	}
}

func newScanCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a CMake build directory and emit an SBOM and report",
		Long: `Scan reads the CMake File API reply set of a configured build tree
(<build-dir>/.cmake/api/v1/reply) and writes a CycloneDX SBOM plus a
dependency report to the output directory.

Exit status: 0 success, 1 usage or missing build directory, 2 no File API
reply set, 3 unusable reply set, 4 output could not be written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFile(configPath, cmd.Flags())
			if err != nil {
				return &exitError{code: scan.ExitUsage, err: err}
			}
			if cfg.BuildDir == "" {
				return &exitError{code: scan.ExitUsage, err: errors.New("--build-dir is required")}
			}

			setupLogging(cfg, cmd.ErrOrStderr())
			return runScan(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	defaults := config.Defaults()
	f := cmd.Flags()
	f.StringVar(&configPath, "config", config.DefaultFile, "Path to an optional TOML config file")
	f.StringP("build-dir", "b", "", "Path to the CMake build directory (e.g. build/)")
	f.StringP("out", "o", defaults["out"].(string), "Output directory")
	f.String("project-name", "", "Override the project name shown in outputs")
	f.CountP("verbose", "v", "Increase log verbosity (-v info, -vv debug, -vvv trace)")
	f.String("verbosity", "", "Log level: trace, debug, info, warn, error")
	f.String("log-format", defaults["log-format"].(string), "Log format: text or json")
	f.Bool("watch", false, "Rescan whenever CMake writes a new File API reply")
	f.Bool("web", false, "Serve the latest scan over HTTP")
	f.Int("port", defaults["port"].(int), "Port for the web view (only used with --web)")
	f.String("report", defaults["report"].(string), "Report format: text, html, both or none")
	f.String("sbom-file", defaults["sbom-file"].(string), "File name of the SBOM in the output directory")
	f.String("report-file", defaults["report-file"].(string), "Base name of the report in the output directory")

	return cmd
}

func setupLogging(cfg *config.Config, stderr io.Writer) {
	logging.SetOutput(stderr)
	level := logging.LevelFromVerbosity(cfg.Verbosity, cfg.VerboseCnt)
	if cfg.LogFormat == "json" {
		logging.SetJSONOutput(level)
		return
	}
	logging.SetLevel(level)
}

func runScan(ctx context.Context, cfg *config.Config, stdout io.Writer) error {
	var (
		server    *web.Server
		publisher scan.Publisher
	)
	if cfg.WebMode {
		server = web.NewServer()
		publisher = server
	}

	runner := scan.NewRunner(scan.OptionsFromConfig(cfg, Version), publisher)
	colorize := !color.NoColor

	report := func(result *scan.Result) {
		if err := output.PrintReport(stdout, result.Summary, colorize); err != nil {
			logging.Warn("failed to print report", "error", err)
		}
		if len(result.Written) > 0 {
			fmt.Fprintf(stdout, "OK: wrote %v\n", result.Written)
		}
	}

	result, err := runner.Run(ctx, "initial scan")
	if err != nil {
		if !cfg.Watch && !cfg.WebMode {
			return &exitError{code: scan.ExitCode(err), err: err}
		}
		// Long-running modes keep going and wait for the next reply set
		logging.Error("initial scan failed", "error", err)
		if server != nil {
			server.SetError(err)
		}
	} else {
		report(result)
	}

	if !cfg.Watch && !cfg.WebMode {
		return nil
	}

	errs := make(chan error, 2)
	if server != nil {
		go func() {
			errs <- server.Start(ctx, cfg.Port)
		}()
	}

	if cfg.Watch {
		go func() {
			errs <- watcher.Watch(ctx, runner.BuildDir(), watcher.DefaultOptions, func(ctx context.Context, reason string) {
				result, err := runner.Run(ctx, reason)
				if err != nil {
					logging.Error("rescan failed", "reason", reason, "error", err)
					if server != nil {
						server.SetError(err)
					}
					return
				}
				report(result)
			})
		}()
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errs:
		if err != nil && !errors.Is(err, context.Canceled) {
			return &exitError{code: scan.ExitUsage, err: err}
		}
		return nil
	}
}
