package pipeline

import (
	"os"
	"time"

	"github.com/backmassage/kramtex/internal/planner"
)

// SlowJobThreshold is the elapsed time above which a finished job is
// reported as an outlier, whether it passed or failed.
const SlowJobThreshold = time.Second

// Status is the final state of a job.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusSkipped
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// JobOutcome is the result of one job, or of a whole script batch.
type JobOutcome struct {
	// Plan is the job's plan. Nil for a script batch outcome.
	Plan *planner.JobPlan

	// Batch lists the plans covered by a script batch outcome.
	Batch []*planner.JobPlan

	Status   Status
	ExitCode int
	Elapsed  time.Duration
}

// Covered returns the number of jobs the outcome accounts for.
func (o *JobOutcome) Covered() int {
	if o.Plan == nil {
		return len(o.Batch)
	}
	return 1
}

// plans returns every plan the outcome accounts for.
func (o *JobOutcome) plans() []*planner.JobPlan {
	if o.Plan == nil {
		return o.Batch
	}
	return []*planner.JobPlan{o.Plan}
}

// Stats aggregates the outcomes of a run.
type Stats struct {
	Total     int
	Encoded   int
	Skipped   int
	Cancelled int

	// Failed counts outcomes with a nonzero exit code. A failed script
	// batch counts once.
	Failed int

	OutputBytes int64
	Elapsed     time.Duration

	// Slow holds single-job outcomes that took longer than
	// SlowJobThreshold, in outcome order.
	Slow []JobOutcome
}

// Aggregate folds outcomes into run statistics. Output bytes are measured
// from the destination files of succeeded jobs that exist on disk.
func Aggregate(outcomes []JobOutcome) Stats {
	var s Stats
	for _, o := range outcomes {
		n := o.Covered()
		s.Total += n
		switch o.Status {
		case StatusSucceeded:
			s.Encoded += n
			for _, p := range o.plans() {
				if fi, err := os.Stat(p.DestPath); err == nil {
					s.OutputBytes += fi.Size()
				}
			}
		case StatusSkipped:
			s.Skipped += n
		case StatusCancelled:
			s.Cancelled += n
		}
		if o.ExitCode != 0 {
			s.Failed++
		}
		if o.Plan != nil && o.Elapsed > SlowJobThreshold {
			s.Slow = append(s.Slow, o)
		}
	}
	return s
}

// ExitStatus is 0 when no job failed and 1 otherwise. Skipped and
// cancelled jobs do not affect it.
func (s Stats) ExitStatus() int {
	if s.Failed > 0 {
		return 1
	}
	return 0
}
