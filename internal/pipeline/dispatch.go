package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/backmassage/kramtex/internal/config"
	"github.com/backmassage/kramtex/internal/display"
	"github.com/backmassage/kramtex/internal/kram"
	"github.com/backmassage/kramtex/internal/planner"
)

// Strategy turns encode plans into outcomes. Implementations are
// DirectDispatch and ScriptDispatch; the choice is made once per run.
type Strategy interface {
	Name() string
	Dispatch(ctx context.Context, r *BuildRun, plans []*planner.JobPlan) []JobOutcome
}

// SelectStrategy returns the strategy cfg asks for.
func SelectStrategy(cfg *config.Config, workers int) Strategy {
	if cfg.ScriptMode {
		return ScriptDispatch{Path: cfg.ScriptFile, Workers: workers}
	}
	return DirectDispatch{Workers: workers}
}

// DirectDispatch runs one kram process per job with at most Workers running
// at once.
type DirectDispatch struct {
	Workers int
}

// Name implements [Strategy].
func (DirectDispatch) Name() string { return "direct" }

// Dispatch implements [Strategy]. Outcomes are returned in plan order.
//
// The cancel flag is checked before each submission and again when a worker
// picks the job up, so after an interrupt no queued job starts. Running
// kram processes are detached from ctx; kram.ExecRunner also keeps them out
// of the terminal's process group on Unix, so an interrupt lets them finish.
func (d DirectDispatch) Dispatch(ctx context.Context, r *BuildRun, plans []*planner.JobPlan) []JobOutcome {
	outcomes := make([]JobOutcome, len(plans))
	ran := make([]bool, len(plans))
	jobCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(max(1, d.Workers))
	for i, plan := range plans {
		if r.Cancelled() {
			break
		}
		// Blocks while Workers jobs are running.
		g.Go(func() error {
			if r.Cancelled() {
				return nil
			}
			outcomes[i] = r.runJob(jobCtx, plan)
			ran[i] = true
			return nil
		})
	}

	r.setState(StateDraining)
	_ = g.Wait()

	for i, plan := range plans {
		if !ran[i] {
			outcomes[i] = JobOutcome{Plan: plan, Status: StatusCancelled}
		}
	}
	return outcomes
}

// ScriptDispatch writes every job's command line to the script at Path and
// runs the script with a single kram invocation using Workers threads.
// The batch produces one outcome covering all written jobs.
type ScriptDispatch struct {
	Path    string
	Workers int
}

// Name implements [Strategy].
func (ScriptDispatch) Name() string { return "script" }

// Dispatch implements [Strategy].
func (s ScriptDispatch) Dispatch(ctx context.Context, r *BuildRun, plans []*planner.JobPlan) []JobOutcome {
	var outcomes []JobOutcome

	written, failed, err := s.writeScript(r, plans)
	outcomes = append(outcomes, failed...)
	if err != nil {
		r.log.Error("Cannot write script %s: %v", s.Path, err)
		batch := append(written, plans[len(written)+len(failed):]...)
		return append(outcomes, JobOutcome{Batch: batch, Status: StatusFailed, ExitCode: -1})
	}

	r.setState(StateDraining)

	// Jobs never written to the script were cut off by an interrupt.
	for _, plan := range plans[len(written)+len(failed):] {
		outcomes = append(outcomes, JobOutcome{Plan: plan, Status: StatusCancelled})
	}
	if len(written) == 0 {
		return outcomes
	}
	if r.Cancelled() {
		return append(outcomes, JobOutcome{Batch: written, Status: StatusCancelled})
	}

	r.log.Info("Running script: %s (%s, %d workers)", s.Path,
		display.FormatCount(len(written), "job"), s.Workers)
	start := time.Now()
	code, err := r.encoder.RunScript(context.WithoutCancel(ctx), s.Path, s.Workers)
	o := JobOutcome{Batch: written, Status: StatusSucceeded, ExitCode: code, Elapsed: time.Since(start)}
	if err != nil {
		r.log.Error("%v", err)
	}
	if code != 0 {
		o.Status = StatusFailed
		r.log.Error("Script failed (exit %d): %s %s", code, r.cfg.KramPath,
			strings.Join(kram.ScriptArgs(s.Path, s.Workers), " "))
	} else {
		r.log.Success("Script finished in %s", display.FormatDuration(o.Elapsed))
	}
	r.record(ctx, &o)
	return append(outcomes, o)
}

// writeScript writes one line per plan in order, stopping early on cancel.
// Plans whose paths contain whitespace, or whose output directory cannot be
// created, are returned as failed outcomes and left out of the script.
func (s ScriptDispatch) writeScript(r *BuildRun, plans []*planner.JobPlan) (written []*planner.JobPlan, failed []JobOutcome, err error) {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.Create(s.Path)
	if err != nil {
		return nil, nil, err
	}
	w := bufio.NewWriter(f)

	for _, plan := range plans {
		if r.Cancelled() {
			break
		}
		if !plan.ScriptSafe() {
			r.log.Error("Cannot script %s: path contains whitespace (run without --script)",
				r.rel(plan.Job.Asset.Path))
			failed = append(failed, JobOutcome{Plan: plan, Status: StatusFailed, ExitCode: -1})
			continue
		}
		if err := os.MkdirAll(filepath.Dir(plan.DestPath), 0o755); err != nil {
			r.log.Error("Cannot create output directory: %v", err)
			failed = append(failed, JobOutcome{Plan: plan, Status: StatusFailed, ExitCode: -1})
			continue
		}
		if _, err := fmt.Fprintln(w, plan.Command()); err != nil {
			f.Close()
			return written, failed, err
		}
		written = append(written, plan)
	}

	if err := w.Flush(); err != nil {
		f.Close()
		return written, failed, err
	}
	if err := f.Close(); err != nil {
		return written, failed, err
	}
	r.log.Debug("Wrote %s to %s", display.FormatCount(len(written), "command"), s.Path)
	return written, failed, nil
}
