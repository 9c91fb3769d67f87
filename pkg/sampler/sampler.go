// Package sampler runs the high-rate sampling loop: it updates every pedal
// channel, feeds the virtual joystick and publishes telemetry snapshots.
package sampler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/pedals/pkg/hid"
	"github.com/itohio/pedals/pkg/logger"
	"github.com/itohio/pedals/pkg/pedal"
	"github.com/itohio/pedals/pkg/telemetry"
)

const (
	DefaultInterval          = time.Millisecond
	DefaultTelemetryInterval = 30 * time.Millisecond
)

// Option configures a Sampler.
type Option func(*Sampler)

// WithJoystick sends every cycle's outputs to j, rescaled by axes.
func WithJoystick(j hid.Joystick, axes hid.AxisMap) Option {
	return func(s *Sampler) {
		s.joy = j
		s.axes = axes
	}
}

// WithInterval sets the sampling period.
func WithInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithTelemetryInterval sets the minimum time between telemetry snapshots.
func WithTelemetryInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.telemetryInterval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Sampler) {
		s.log = l.WithTag("sampler")
	}
}

// Sampler owns the sampling goroutine. Step and Run must not be called concurrently.
type Sampler struct {
	channels []*pedal.Channel
	gate     *pedal.Gate
	cell     *telemetry.Cell[telemetry.Snapshot]

	joy  hid.Joystick
	axes hid.AxisMap

	interval          time.Duration
	telemetryInterval time.Duration
	log               *logger.Logger

	outputs       []int
	axisValues    []int
	lastTelemetry time.Time
	hidFailing    bool

	cbMu      sync.RWMutex
	callbacks []func(telemetry.Snapshot)
}

// New creates a sampler for channels. Configuration changes must go through gate.
func New(channels []*pedal.Channel, gate *pedal.Gate, cell *telemetry.Cell[telemetry.Snapshot], opts ...Option) *Sampler {
	s := &Sampler{
		channels:          channels,
		gate:              gate,
		cell:              cell,
		joy:               hid.Discard{},
		axes:              hid.AxisMap{DeviceMax: pedal.OutputMax, Min: 0, Max: pedal.OutputMax},
		interval:          DefaultInterval,
		telemetryInterval: DefaultTelemetryInterval,
		log:               logger.Discard(),
		outputs:           make([]int, len(channels)),
		axisValues:        make([]int, 0, len(channels)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnUpdate registers fn to receive every published snapshot. Callbacks run on
// the sampling goroutine and must return quickly.
func (s *Sampler) OnUpdate(fn func(telemetry.Snapshot)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

// Begin prepares every channel's input.
func (s *Sampler) Begin() error {
	for _, ch := range s.channels {
		if err := ch.Begin(); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one sampling cycle at now.
func (s *Sampler) Step(now time.Time) {
	publish := s.lastTelemetry.IsZero() || now.Sub(s.lastTelemetry) >= s.telemetryInterval

	var snap telemetry.Snapshot
	s.gate.Cycle(func() {
		for i, ch := range s.channels {
			ch.Update()
			s.outputs[i] = ch.Output()
		}
		if publish {
			snap = s.snapshot(now)
		}
	})

	s.report()

	if publish {
		s.lastTelemetry = now
		s.cell.Store(snap)
		s.notify(snap)
	}
}

func (s *Sampler) snapshot(now time.Time) telemetry.Snapshot {
	snap := telemetry.Snapshot{
		Taken:    now,
		Channels: make([]telemetry.ChannelSample, len(s.channels)),
	}
	for i, ch := range s.channels {
		snap.Channels[i] = telemetry.ChannelSample{
			Name:   ch.Name(),
			Raw:    ch.Raw(),
			Output: s.outputs[i],
		}
	}
	return snap
}

// report forwards outputs to the joystick. A failing joystick is logged once
// and retried every cycle; sampling carries on regardless.
func (s *Sampler) report() {
	s.axisValues = s.axes.MapAll(s.axisValues, s.outputs)
	if err := s.joy.SetAxes(s.axisValues); err != nil {
		if !s.hidFailing {
			s.log.Errorf("Joystick update failed: %v", err)
			s.hidFailing = true
		}
		return
	}
	if s.hidFailing {
		s.log.Infof("Joystick updates recovered")
		s.hidFailing = false
	}
}

func (s *Sampler) notify(snap telemetry.Snapshot) {
	s.cbMu.RLock()
	callbacks := s.callbacks
	s.cbMu.RUnlock()

	for _, cb := range callbacks {
		cb(snap)
	}
}

// Run samples every interval until ctx is cancelled. A panic inside a cycle
// is logged and sampling continues with the next tick.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Infof("Sampling %d channels every %v", len(s.channels), s.interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := s.safeStep(now); err != nil {
				s.log.Errorf("%v", err)
			}
		}
	}
}

func (s *Sampler) safeStep(now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in sampling cycle: %v", r)
		}
	}()
	s.Step(now)
	return nil
}
