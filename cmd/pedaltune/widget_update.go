package main

import (
	"sync"
	"time"

	"fyne.io/fyne/v2"
)

// updateInterval limits UI refreshes to roughly 60 FPS.
const updateInterval = 16 * time.Millisecond

// UpdateWidgetOnMainThread schedules a widget update function to run on the main Fyne thread.
// Fyne widgets cannot be updated directly from goroutines; the callback
// should only touch widgets with data already copied by the caller.
func UpdateWidgetOnMainThread(callback func()) {
	if callback == nil {
		return
	}
	fyne.Do(callback)
}

// throttle drops updates arriving sooner than updateInterval after the last accepted one.
type throttle struct {
	mu   sync.Mutex
	last time.Time
}

func (t *throttle) ready(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.last.IsZero() && now.Sub(t.last) < updateInterval {
		return false
	}
	t.last = now
	return true
}
