package planner

import (
	"os"
	"time"
)

// ShouldSkip reports whether the job for a source modified at srcMod can be
// skipped: force is off, dstPath exists, and its modification time is
// strictly after srcMod.
//
// Both times keep their full nanosecond resolution. Truncating to seconds
// would report an output as current when the source was edited within the
// same second the previous encode finished.
//
// The check is advisory. A destination modified by something else during the
// run only affects the decision made on the next run.
func ShouldSkip(force bool, srcMod time.Time, dstPath string) bool {
	if force {
		return false
	}
	fi, err := os.Stat(dstPath)
	if err != nil {
		return false
	}
	return fi.ModTime().After(srcMod)
}
