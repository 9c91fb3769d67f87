package pedal

import "sync"

// Gate pauses sampling while configuration is replaced.
//
// A sampling cycle holds the read side for its whole duration; a mutation
// holds the write side. A waiting mutation blocks new cycles, so it is never
// starved, and the first cycle after Do returns sees every change made inside it.
type Gate struct {
	mu sync.RWMutex
}

// Cycle runs one sampling cycle. It blocks while a mutation is in progress.
func (g *Gate) Cycle(fn func()) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn()
}

// Do runs fn with sampling paused. Sampling resumes on every exit path,
// including an error return or a panic inside fn.
func (g *Gate) Do(fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}
