package pedal

import (
	"fmt"
	"sync/atomic"
)

// Source produces one debiased raw reading (0..FullScale) for a sensor pin.
type Source interface {
	Read(pin int) int
}

// Configurer is implemented by sources that need per-pin setup before the first read.
type Configurer interface {
	Configure(pin int) error
}

// Option configures a Channel.
type Option func(*Channel)

// WithResyncOnConfigChange makes the channel reset its filter state to the
// unfiltered target on the first update after a configuration change. By
// default the filter keeps its state across reconfiguration.
func WithResyncOnConfigChange(enabled bool) Option {
	return func(c *Channel) {
		c.resync = enabled
	}
}

// WithConfig sets the initial configuration.
func WithConfig(cfg Config) Option {
	return func(c *Channel) {
		c.cfg.Store(&cfg)
	}
}

// Channel is one physical pedal input.
//
// Raw, output and filter state are written only by the sampling goroutine via
// Update. The configuration is an immutable value behind an atomic pointer;
// SetConfig swaps the pointer and Update loads it once per cycle, so a cycle
// always sees one complete configuration.
type Channel struct {
	id   int
	name string
	pin  int
	src  Source

	cfg     atomic.Pointer[Config]
	changed atomic.Bool
	resync  bool

	raw    atomic.Int32
	output atomic.Int32
	filter Smoother
}

// NewChannel creates a channel reading pin from src with the default configuration.
func NewChannel(id int, name string, pin int, src Source, opts ...Option) *Channel {
	c := &Channel{
		id:   id,
		name: name,
		pin:  pin,
		src:  src,
	}
	cfg := DefaultConfig()
	c.cfg.Store(&cfg)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the channel index.
func (c *Channel) ID() int { return c.id }

// Name returns the channel name (e.g. "gas").
func (c *Channel) Name() string { return c.name }

// Pin returns the sensor pin.
func (c *Channel) Pin() int { return c.pin }

// Begin performs one-time source setup. It must run before the first Update.
func (c *Channel) Begin() error {
	if cfgr, ok := c.src.(Configurer); ok {
		if err := cfgr.Configure(c.pin); err != nil {
			return fmt.Errorf("failed to configure %s pin %d: %w", c.name, c.pin, err)
		}
	}
	return nil
}

// Update runs one sampling cycle. Only the sampling goroutine may call it.
func (c *Channel) Update() {
	raw := c.src.Read(c.pin)
	cfg := c.cfg.Load()

	c.raw.Store(int32(raw))

	stage := Evaluate(raw, *cfg)

	if c.resync && c.changed.Swap(false) {
		c.filter.Reset(stage.Target)
	}

	out := c.filter.Update(stage.Target, cfg.Smoothing)
	c.output.Store(int32(out))
}

// Raw returns the latest oversampled raw reading.
func (c *Channel) Raw() int {
	return int(c.raw.Load())
}

// Output returns the latest smoothed output in 0..OutputMax.
func (c *Channel) Output() int {
	return int(c.output.Load())
}

// Config returns a copy of the current configuration.
func (c *Channel) Config() Config {
	return *c.cfg.Load()
}

// SetConfig replaces the configuration as a whole. Callers go through Gate.Do
// so that multi-channel changes land between sampling cycles.
func (c *Channel) SetConfig(cfg Config) {
	c.cfg.Store(&cfg)
	c.changed.Store(true)
}

// CalibrateMin sets the lower calibration bound to the current raw reading.
func (c *Channel) CalibrateMin() {
	cfg := c.Config()
	cfg.CalibratedMin = c.Raw()
	c.SetConfig(cfg)
}

// CalibrateMax sets the upper calibration bound to the current raw reading.
func (c *Channel) CalibrateMax() {
	cfg := c.Config()
	cfg.CalibratedMax = c.Raw()
	c.SetConfig(cfg)
}
