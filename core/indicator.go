package core

import (
	"sync"
	"time"
)

// indicator debounces the progress UI for one request. The timer fires on
// its own goroutine and hops through the dispatcher before showing, so a
// request that finishes inside the delay never flashes an indicator, and a
// result that races the timer wins: disarm marks the indicator stopped
// before any terminal effect is applied.
type indicator struct {
	dispatch func(fn func())
	show     func() ProgressHandle

	mu      sync.Mutex
	timer   *time.Timer
	handle  ProgressHandle
	stopped bool
}

func newIndicator(dispatch func(fn func()), show func() ProgressHandle) *indicator {
	return &indicator{dispatch: dispatch, show: show}
}

// arm starts the debounce timer. Arming twice, or arming after disarm, is a
// no-op.
func (ind *indicator) arm(delay time.Duration) {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if ind.stopped || ind.timer != nil {
		return
	}
	ind.timer = time.AfterFunc(delay, ind.fire)
}

func (ind *indicator) fire() {
	ind.dispatch(func() {
		ind.mu.Lock()
		if ind.stopped || ind.handle != nil {
			ind.mu.Unlock()
			return
		}
		ind.mu.Unlock()
		handle := ind.show()
		ind.mu.Lock()
		if ind.stopped {
			ind.mu.Unlock()
			// disarm raced the show; close what it could not see.
			if handle != nil {
				handle.Close()
			}
			return
		}
		ind.handle = handle
		ind.mu.Unlock()
	})
}

// disarm stops a pending timer and dismisses a visible indicator. It is
// idempotent and safe from any goroutine.
func (ind *indicator) disarm() {
	ind.mu.Lock()
	if ind.stopped {
		ind.mu.Unlock()
		return
	}
	ind.stopped = true
	timer := ind.timer
	handle := ind.handle
	ind.timer = nil
	ind.handle = nil
	ind.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
	if handle != nil {
		handle.Close()
	}
}
