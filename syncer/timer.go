// Package syncer persists a session's message log to the external store:
// a debounced scheduler computes the delta above the session's sequence
// watermark and pushes it as one idempotent batch.
package syncer

import (
	"sync"
	"time"
)

// delayedTask is a cancellable single-shot timer enforcing "at most one
// pending wake-up": Arm is a no-op while a wake-up is already scheduled, so
// repeated triggers inside the window collapse into one firing.
type delayedTask struct {
	mu    sync.Mutex
	timer *time.Timer
	armed bool
}

// Arm schedules fn after d unless a wake-up is already pending. It reports
// whether a new wake-up was scheduled.
func (t *delayedTask) Arm(d time.Duration, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed {
		return false
	}
	t.armed = true
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		t.armed = false
		t.mu.Unlock()
		fn()
	})
	return true
}

// Cancel stops a pending wake-up if one exists.
func (t *delayedTask) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.armed && t.timer != nil {
		t.timer.Stop()
		t.armed = false
	}
}

// Armed reports whether a wake-up is currently pending.
func (t *delayedTask) Armed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.armed
}
