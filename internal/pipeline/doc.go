// Package pipeline orchestrates a build run: it walks the source tree,
// plans one job per asset, dispatches the jobs to kram, and aggregates the
// outcomes into run statistics and an exit status.
//
// A run is a [BuildRun] moving through the states Idle, Discovering,
// Dispatching, Draining, and Done. Dispatch goes through a [Strategy]:
// [DirectDispatch] runs one kram process per job on a bounded worker pool;
// [ScriptDispatch] writes every job to a script file and hands the whole
// batch to a single kram invocation.
package pipeline
