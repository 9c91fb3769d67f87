// Package telemetry hands the latest pedal readings from the sampling loop to
// slower consumers.
package telemetry

import (
	"encoding/json"
	"sync/atomic"
	"time"
)

// ChannelSample is the raw and output value of one channel.
type ChannelSample struct {
	Name   string `json:"-"`
	Raw    int    `json:"r"`
	Output int    `json:"o"`
}

// Snapshot is the state of all channels at one sampling instant. A published
// Snapshot is never modified; producers build a new one each time.
type Snapshot struct {
	Taken    time.Time
	Channels []ChannelSample
}

// Channel returns the sample for name.
func (s Snapshot) Channel(name string) (ChannelSample, bool) {
	for _, c := range s.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return ChannelSample{}, false
}

// MarshalJSON encodes the snapshot keyed by channel name:
// {"gas":{"r":1234,"o":2048},...}
func (s Snapshot) MarshalJSON() ([]byte, error) {
	m := make(map[string]ChannelSample, len(s.Channels))
	for _, c := range s.Channels {
		m[c.Name] = c
	}
	return json.Marshal(m)
}

// Cell is a single-slot mailbox. Store overwrites the slot; Peek returns the
// last stored value without removing it. Neither side ever blocks.
type Cell[T any] struct {
	v atomic.Pointer[T]
}

// Store replaces the slot content with v.
func (c *Cell[T]) Store(v T) {
	c.v.Store(&v)
}

// Peek returns the latest value, or false if nothing was stored yet.
func (c *Cell[T]) Peek() (T, bool) {
	p := c.v.Load()
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}
