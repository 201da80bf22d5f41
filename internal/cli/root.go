// Package cli implements the kramtex command line: flag parsing, path
// validation, and dispatch to the check, analyze, and build flows.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/backmassage/kramtex/internal/check"
	"github.com/backmassage/kramtex/internal/config"
	"github.com/backmassage/kramtex/internal/display"
	"github.com/backmassage/kramtex/internal/journal"
	"github.com/backmassage/kramtex/internal/logging"
	"github.com/backmassage/kramtex/internal/pipeline"
	"github.com/backmassage/kramtex/internal/planner"
)

// version and commit are reported by --version. See SetVersion.
var (
	version = "dev"
	commit  = "unknown"
)

// SetVersion sets the build identity reported by --version.
func SetVersion(v, c string) {
	version, commit = v, c
}

// NewRootCommand creates the kramtex command with its subcommands.
func NewRootCommand() *cobra.Command {
	cfg := config.DefaultConfig()
	bf := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "kramtex [flags] <src_dir> <dst_dir>",
		Short: "Batch-encode textures with kram",
		Long: "kramtex walks a source tree of textures, picks a GPU format per file from its\n" +
			"name suffix and the target platform, and encodes every stale texture with kram\n" +
			"into a mirrored destination tree.",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if cfg.CheckOnly {
				return cobra.MaximumNArgs(2)(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			bf.apply(&cfg)
			if len(args) == 2 {
				cfg.SourceDir = config.NormalizeDirArg(args[0])
				cfg.DestDir = config.NormalizeDirArg(args[1])
			}
			return runBuild(cmd, &cfg)
		},
	}

	bindFlags(cmd.Flags(), &cfg, bf)
	cmd.AddCommand(NewHistoryCommand())
	return cmd
}

// Execute runs the root command with SIGINT/SIGTERM wired to cancellation
// and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kramtex: %v\n", err)
	}
	return GetExitCode(err)
}

// runBuild is the root command body.
//
// Flow:
//  1. Validate config and open the logger
//  2. --check: print diagnostics and stop
//  3. Resolve paths: source must exist, destination must not be inside it
//  4. Load presets; --analyze: print the report and stop
//  5. Verify kram (and ktx2check when validating) resolve
//  6. Run the build; any failed job makes the exit status ExitFailure
func runBuild(cmd *cobra.Command, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	log, err := logging.NewLogger(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot open log", err)
	}
	defer log.Close()

	display.PrintBanner(cmd.OutOrStdout(), log.Palette())

	if cfg.CheckOnly {
		check.RunCheck(cfg, log)
		return nil
	}

	if err := resolvePaths(cfg); err != nil {
		return err
	}

	presets, err := planner.LoadPresets(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot load presets", err)
	}

	ctx := cmd.Context()
	if cfg.Analyze {
		pipeline.Analyze(ctx, cfg, presets, log, cmd.OutOrStdout())
		return nil
	}

	if err := check.CheckDeps(cfg); err != nil {
		return WrapExitError(ExitCommandError, "missing dependency", err)
	}

	opts := pipeline.Options{}
	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			log.Warn("Journal disabled: %v", err)
		} else {
			defer j.Close()
			opts.Journal = j
		}
	}

	run := pipeline.NewBuildRun(cfg, presets, log, opts)
	stats := run.Execute(ctx)
	if code := stats.ExitStatus(); code != 0 {
		return NewExitError(ExitFailure, display.FormatCount(stats.Failed, "failed job"))
	}
	return nil
}

// resolvePaths checks that the source directory exists, creates the
// destination unless nothing will be written, and rejects a destination
// inside the source tree.
func resolvePaths(cfg *config.Config) error {
	srcAbs, err := absPath(cfg.SourceDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "source not found", err)
	}
	fi, err := os.Stat(srcAbs)
	if err != nil {
		return WrapExitError(ExitCommandError, "source not found", err)
	}
	if !fi.IsDir() {
		return NewExitError(ExitCommandError, "source is not a directory: "+cfg.SourceDir)
	}

	writes := !cfg.DryRun && !cfg.Analyze
	if writes {
		if err := os.MkdirAll(cfg.DestDir, 0o755); err != nil {
			return WrapExitError(ExitCommandError, "cannot create destination", err)
		}
	}
	dstAbs, err := absPath(cfg.DestDir)
	if errors.Is(err, os.ErrNotExist) && !writes {
		dstAbs, err = filepath.Abs(cfg.DestDir)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot resolve destination", err)
	}
	if err := cfg.ValidatePaths(srcAbs, dstAbs); err != nil {
		return WrapExitError(ExitCommandError, "choose a destination outside "+cfg.SourceDir, err)
	}
	return nil
}

// absPath returns the absolute path with symlinks resolved, for comparing
// the source and destination hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
