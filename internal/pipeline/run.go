package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/kramtex/internal/config"
	"github.com/backmassage/kramtex/internal/display"
	"github.com/backmassage/kramtex/internal/journal"
	"github.com/backmassage/kramtex/internal/kram"
	"github.com/backmassage/kramtex/internal/logging"
	"github.com/backmassage/kramtex/internal/naming"
	"github.com/backmassage/kramtex/internal/planner"
)

// State is the lifecycle stage of a BuildRun.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateDispatching
	StateDraining
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDiscovering:
		return "discovering"
	case StateDispatching:
		return "dispatching"
	case StateDraining:
		return "draining"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Options carries the collaborators of a BuildRun that tests replace.
type Options struct {
	// Runner starts kram and ktx2check. Nil means a kram.ExecRunner.
	Runner kram.Runner

	// Journal records the run when non-nil.
	Journal *journal.Journal

	// HostCPUs overrides runtime.NumCPU when positive.
	HostCPUs int
}

// BuildRun holds everything one build needs. There is no process-wide
// state: two BuildRuns in the same process are independent.
type BuildRun struct {
	ID string

	cfg        *config.Config
	presets    planner.PresetTable
	log        *logging.Logger
	encoder    *kram.Encoder
	validator  *kram.Validator
	journal    *journal.Journal
	strategy   Strategy
	collisions *naming.CollisionTracker
	workers    int

	// cancelled only ever goes from false to true.
	cancelled atomic.Bool

	// completed counts finished jobs for progress lines.
	completed atomic.Int64
	total     int

	mu    sync.Mutex
	state State
}

// NewBuildRun prepares a run for cfg. presets must be the final table for
// cfg.Platform, including the global arguments.
func NewBuildRun(cfg *config.Config, presets planner.PresetTable, log *logging.Logger, opts Options) *BuildRun {
	runner := opts.Runner
	if runner == nil {
		runner = kram.ExecRunner{Verbose: cfg.Verbose}
	}
	host := opts.HostCPUs
	if host <= 0 {
		host = runtime.NumCPU()
	}

	r := &BuildRun{
		ID:         uuid.Must(uuid.NewV7()).String(),
		cfg:        cfg,
		presets:    presets,
		log:        log,
		encoder:    &kram.Encoder{Path: cfg.KramPath, Runner: runner},
		validator:  &kram.Validator{Path: cfg.ValidatorPath, Runner: runner},
		journal:    opts.Journal,
		collisions: naming.NewCollisionTracker(),
		workers:    Workers(host, cfg.Jobs),
	}
	r.strategy = SelectStrategy(cfg, r.workers)
	return r
}

// Workers returns the worker count for a host with host logical cores and a
// user cap of limit: the smaller of the two, and at least 1.
func Workers(host, limit int) int {
	return max(1, min(host, limit))
}

// Cancel requests that no further jobs start. Jobs already running finish
// normally. Safe to call from any goroutine, any number of times.
func (r *BuildRun) Cancel() {
	if r.cancelled.CompareAndSwap(false, true) {
		r.log.Warn("Interrupted: finishing running jobs, not starting new ones")
	}
}

// Cancelled reports whether Cancel has been called.
func (r *BuildRun) Cancelled() bool { return r.cancelled.Load() }

// State returns the current lifecycle state.
func (r *BuildRun) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *BuildRun) setState(s State) {
	r.mu.Lock()
	prev := r.state
	r.state = s
	r.mu.Unlock()
	r.log.Debug("State: %s -> %s", prev, s)
}

// Strategy returns the dispatch strategy selected for the run.
func (r *BuildRun) Strategy() Strategy { return r.strategy }

// Execute runs the build to completion and returns its statistics.
// Cancelling ctx has the same effect as Cancel: running jobs finish,
// queued jobs are reported as cancelled.
//
// Flow:
//  1. Discover: walk the source tree, plan each asset, record skips
//  2. Dispatch: hand the encode plans to the strategy (or log them on a dry run)
//  3. Drain: wait for running jobs
//  4. Aggregate outcomes, finish the journal entry, log the summary
func (r *BuildRun) Execute(ctx context.Context) Stats {
	start := time.Now()
	stop := context.AfterFunc(ctx, r.Cancel)
	defer stop()

	r.beginJournal(ctx, start)
	r.logBatchHeader()

	r.setState(StateDiscovering)
	outcomes, plans := r.discover(ctx)
	r.total = len(plans)
	if len(plans) == 0 {
		r.log.Info("Nothing to encode")
	} else {
		r.log.Info("Found %s to encode", display.FormatCount(len(plans), "job"))
	}

	r.setState(StateDispatching)
	if r.cfg.DryRun {
		outcomes = append(outcomes, r.dryRun(ctx, plans)...)
	} else {
		outcomes = append(outcomes, r.strategy.Dispatch(ctx, r, plans)...)
	}

	// Strategies move to Draining themselves once every job is submitted;
	// a dry run has nothing to drain.
	r.setState(StateDone)

	stats := Aggregate(outcomes)
	stats.Elapsed = time.Since(start)
	r.finishJournal(ctx, stats)
	r.logSummary(&stats)
	return stats
}

// discover walks the source tree and returns the skip outcomes and the
// encode plans in discovery order.
func (r *BuildRun) discover(ctx context.Context) ([]JobOutcome, []*planner.JobPlan) {
	var (
		outcomes []JobOutcome
		plans    []*planner.JobPlan
	)
	for asset, err := range Walk(r.cfg.SourceDir) {
		if r.Cancelled() {
			break
		}
		if err != nil {
			r.log.Warn("Cannot read: %v", err)
			continue
		}

		job, err := planner.NewJob(r.cfg, asset)
		if err != nil {
			r.log.Warn("Cannot map output for %s: %v", asset.Path, err)
			continue
		}
		plan := planner.BuildPlan(r.cfg, r.presets, job)
		if plan.Action == planner.ActionEncode {
			if owner, collided := r.collisions.Claim(asset.Path, plan.DestPath); collided {
				r.log.Warn("Skip (destination collision): %s -> %s already written by %s",
					r.rel(asset.Path), filepath.Base(plan.DestPath), r.rel(owner))
				plan.Action = planner.ActionSkip
				plan.SkipReason = planner.SkipCollision
			}
		}

		if plan.Action == planner.ActionSkip {
			r.logSkip(plan)
			o := JobOutcome{Plan: plan, Status: StatusSkipped}
			r.record(ctx, &o)
			outcomes = append(outcomes, o)
			continue
		}
		plans = append(plans, plan)
	}
	return outcomes, plans
}

func (r *BuildRun) logSkip(plan *planner.JobPlan) {
	name := r.rel(plan.Job.Asset.Path)
	switch plan.SkipReason {
	case planner.SkipIgnored, planner.SkipCollision:
		// Ignored files are silent; collisions were already warned about.
	case planner.SkipUpToDate, planner.SkipNoPreset:
		r.log.Debug("Skip (%s): %s", plan.SkipReason, name)
	default:
		r.log.Info("Skip (%s): %s", plan.SkipReason, name)
	}
}

// dryRun logs each plan's command and reports it as encoded.
func (r *BuildRun) dryRun(ctx context.Context, plans []*planner.JobPlan) []JobOutcome {
	outcomes := make([]JobOutcome, 0, len(plans))
	for _, plan := range plans {
		if r.Cancelled() {
			outcomes = append(outcomes, JobOutcome{Plan: plan, Status: StatusCancelled})
			continue
		}
		r.log.Success("[DRY] %s %s", r.cfg.KramPath, plan.Command())
		o := JobOutcome{Plan: plan, Status: StatusSucceeded}
		r.record(ctx, &o)
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// runJob encodes one plan and, when enabled, validates the result.
func (r *BuildRun) runJob(ctx context.Context, plan *planner.JobPlan) JobOutcome {
	start := time.Now()
	o := JobOutcome{Plan: plan, Status: StatusSucceeded}
	name := r.rel(plan.Job.Asset.Path)

	defer func() {
		o.Elapsed = time.Since(start)
		n := r.completed.Add(1)
		switch o.Status {
		case StatusSucceeded:
			r.log.Success("[%d/%d] %s -> %s (%s)", n, r.total, name,
				filepath.Base(plan.DestPath), display.FormatDuration(o.Elapsed))
		case StatusFailed:
			r.log.Error("[%d/%d] Failed (exit %d): %s %s", n, r.total, o.ExitCode,
				r.cfg.KramPath, plan.Command())
		}
		if o.Elapsed > SlowJobThreshold {
			r.log.Outlier("perf: encode %s took %s", filepath.Base(plan.DestPath), display.FormatDuration(o.Elapsed))
		}
		r.record(ctx, &o)
	}()

	if err := os.MkdirAll(filepath.Dir(plan.DestPath), 0o755); err != nil {
		r.log.Error("Cannot create output directory: %v", err)
		o.Status, o.ExitCode = StatusFailed, -1
		return o
	}

	code, err := r.encoder.Encode(ctx, plan.Args)
	if err != nil {
		r.log.Error("%v", err)
	}
	if code != 0 {
		o.Status, o.ExitCode = StatusFailed, code
		return o
	}

	if r.validates() {
		code, err := r.validator.Validate(ctx, plan.DestPath)
		if err != nil {
			r.log.Error("%v", err)
		}
		if code != 0 {
			r.log.Error("Validation failed (exit %d): %s", code, plan.DestPath)
			o.Status, o.ExitCode = StatusFailed, code
		}
	}
	return o
}

// validates reports whether produced files are checked with ktx2check.
func (r *BuildRun) validates() bool {
	return r.cfg.ValidateOutput && r.cfg.SecondGeneration()
}

// rel returns path relative to the source root for log lines.
func (r *BuildRun) rel(path string) string {
	if rel, err := filepath.Rel(r.cfg.SourceDir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}

// --- Journal ---

// Journal writes use a context detached from cancellation so an interrupt
// still leaves a complete record. Write failures are warnings only.

func (r *BuildRun) beginJournal(ctx context.Context, start time.Time) {
	if r.journal == nil {
		return
	}
	err := r.journal.BeginRun(context.WithoutCancel(ctx), r.ID,
		string(r.cfg.Platform), string(r.cfg.Container), r.modeName(), start)
	if err != nil {
		r.log.Warn("Journal: %v", err)
		r.journal = nil
	}
}

func (r *BuildRun) record(ctx context.Context, o *JobOutcome) {
	if r.journal == nil {
		return
	}
	rec := journal.JobRecord{
		Status:   o.Status.String(),
		ExitCode: o.ExitCode,
		Elapsed:  o.Elapsed,
	}
	if o.Plan != nil {
		rec.Source = o.Plan.Job.Asset.Path
		rec.Dest = o.Plan.DestPath
	} else {
		rec.Source = r.cfg.ScriptFile
		rec.Dest = r.cfg.DestDir
	}
	if err := r.journal.RecordOutcome(context.WithoutCancel(ctx), r.ID, rec); err != nil {
		r.log.Warn("Journal: %v", err)
	}
}

func (r *BuildRun) finishJournal(ctx context.Context, stats Stats) {
	if r.journal == nil {
		return
	}
	if err := r.journal.FinishRun(context.WithoutCancel(ctx), r.ID, time.Now(), stats.ExitStatus()); err != nil {
		r.log.Warn("Journal: %v", err)
	}
}

func (r *BuildRun) modeName() string {
	if r.cfg.DryRun {
		return "dry-run"
	}
	return r.strategy.Name()
}

// --- Logging helpers ---

func (r *BuildRun) logBatchHeader() {
	cfg := r.cfg
	r.log.Info("Run %s", r.ID)
	r.log.Info("Source: %s", cfg.SourceDir)
	r.log.Info("Output: %s", cfg.DestDir)
	r.log.Info("Platform: %s, container: %s, quality: %d, mipmax: %d",
		cfg.Platform, strings.ToUpper(string(cfg.Container)), cfg.Quality, cfg.MipMax)
	r.log.Info("Mode: %s, workers: %d", r.modeName(), r.workers)
	if cfg.Force {
		r.log.Info("Force: rebuilding every texture")
	}
	if cfg.ValidateOutput && cfg.SecondGeneration() {
		if cfg.ScriptMode {
			r.log.Warn("Validation is not run in script mode")
		} else {
			r.log.Info("Validation: %s", cfg.ValidatorPath)
		}
	}
	if cfg.DryRun {
		r.log.Info("Dry run: commands are printed, kram is not started")
	}
}

func (r *BuildRun) logSummary(s *Stats) {
	r.log.Info("==============================")
	r.log.Info("Done: %d encoded, %d skipped, %d failed, %d cancelled",
		s.Encoded, s.Skipped, s.Failed, s.Cancelled)
	r.log.Info("  Elapsed: %s", display.FormatDuration(s.Elapsed))
	if !r.cfg.DryRun {
		r.log.Info("  Output written: %s", display.FormatBytes(s.OutputBytes))
	}
	if len(s.Slow) > 0 {
		r.log.Outlier("  %s over %s", display.FormatCount(len(s.Slow), "slow job"),
			display.FormatDuration(SlowJobThreshold))
	}
	if s.Failed > 0 {
		r.log.Error("%s", display.FormatCount(s.Failed, "failure"))
		return
	}
	if s.Cancelled > 0 {
		r.log.Warn("Interrupted before %s started", display.FormatCount(s.Cancelled, "job"))
		return
	}
	r.log.Success("Build complete for %s", r.cfg.Platform)
}
