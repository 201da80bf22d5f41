package naming

import "sync"

// CollisionTracker records which source claimed each destination path during
// one run. Two sources can legitimately map to one output ("rock-h.png" and
// "rock-n.png" both become "rock-n.ktx"); the tracker lets the caller detect
// that instead of letting the second encode overwrite the first.
// All methods are goroutine-safe.
type CollisionTracker struct {
	mu     sync.Mutex
	owners map[string]string // destination path -> source path that owns it
}

// NewCollisionTracker creates a ready-to-use tracker.
func NewCollisionTracker() *CollisionTracker {
	return &CollisionTracker{owners: make(map[string]string)}
}

// Claim registers src as the owner of dst. If dst is unclaimed, or already
// owned by src, it returns ("", false). Otherwise the existing owner is
// returned with collided=true and ownership does not change.
func (ct *CollisionTracker) Claim(src, dst string) (owner string, collided bool) {
	ct.mu.Lock()
	defer ct.mu.Unlock()

	existing, ok := ct.owners[dst]
	if !ok || existing == src {
		ct.owners[dst] = src
		return "", false
	}
	return existing, true
}

// Len returns the number of claimed destinations.
func (ct *CollisionTracker) Len() int {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	return len(ct.owners)
}
