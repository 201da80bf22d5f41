// Package planner turns one discovered source file into a JobPlan: either a
// skip decision with a reason, or the literal kram argument list that encodes
// it.
//
//   - presets.go: per-platform format preset tables and the YAML override file
//   - filter.go: incremental rebuild check (source vs destination mtime)
//   - planner.go: command synthesis and the skip decision matrix
package planner
