package kram

import (
	"context"
	"strconv"
)

// Encoder invokes the kram binary at Path.
type Encoder struct {
	Path   string
	Runner Runner
}

// Encode runs one job. args is the full argument list starting with the
// "encode" operation, as produced by the planner.
func (e *Encoder) Encode(ctx context.Context, args []string) (int, error) {
	return e.Runner.Run(ctx, e.Path, args)
}

// ScriptArgs returns the argument list for a batch run of script with the
// given worker count. kram parallelizes the script lines itself.
func ScriptArgs(script string, workers int) []string {
	return []string{"script", "-v", "-j", strconv.Itoa(workers), "-i", script}
}

// RunScript runs every command line in script as a single kram invocation.
func (e *Encoder) RunScript(ctx context.Context, script string, workers int) (int, error) {
	return e.Runner.Run(ctx, e.Path, ScriptArgs(script, workers))
}

// Validator invokes the ktx2check binary at Path.
type Validator struct {
	Path   string
	Runner Runner
}

// Validate checks one produced KTX2 file. A nonzero code means the file is
// malformed.
func (v *Validator) Validate(ctx context.Context, dst string) (int, error) {
	return v.Runner.Run(ctx, v.Path, []string{"-q", dst})
}
