// Package kram runs the external kram encoder and the ktx2check validator.
//
// Both tools are opaque processes: the package builds their argument lists,
// starts them, and reports the exit code. Their output is passed through to
// the terminal in verbose mode and otherwise discarded; it is never parsed.
// A [Runner] abstracts process execution so tests can substitute a fake.
package kram
