package orchestrator

import (
	"sync"
	"time"
)

// watchdogRegistry tracks one pending deadline timer per tab. Arming a tab
// that already has a timer replaces it; a replaced or cancelled timer never
// fires.
type watchdogRegistry struct {
	mu     sync.Mutex
	timers map[int]*time.Timer
}

func newWatchdogRegistry() *watchdogRegistry {
	return &watchdogRegistry{timers: make(map[int]*time.Timer)}
}

// Arm schedules fn after d for the given tab, replacing any existing timer.
func (r *watchdogRegistry) Arm(tabID int, d time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[tabID]; ok {
		t.Stop()
	}
	r.timers[tabID] = time.AfterFunc(d, fn)
}

// Cancel stops and forgets the tab's timer if one is pending
func (r *watchdogRegistry) Cancel(tabID int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[tabID]; ok {
		t.Stop()
		delete(r.timers, tabID)
	}
}

func (r *watchdogRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}
