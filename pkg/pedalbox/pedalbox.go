// Package pedalbox assembles a complete pedal box from the application
// configuration: ADC device, channels, sampler, service and joystick.
package pedalbox

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/itohio/pedals/pkg/adc"
	"github.com/itohio/pedals/pkg/config"
	"github.com/itohio/pedals/pkg/hid"
	"github.com/itohio/pedals/pkg/logger"
	"github.com/itohio/pedals/pkg/pedal"
	"github.com/itohio/pedals/pkg/preset"
	"github.com/itohio/pedals/pkg/profile"
	"github.com/itohio/pedals/pkg/sample"
	"github.com/itohio/pedals/pkg/sampler"
	"github.com/itohio/pedals/pkg/service"
	"github.com/itohio/pedals/pkg/telemetry"
)

// Box is a running pedal box.
type Box struct {
	Device   adc.Device
	Channels []*pedal.Channel
	Gate     *pedal.Gate
	Cell     *telemetry.Cell[telemetry.Snapshot]
	Sampler  *sampler.Sampler
	Service  *service.Service

	joystick hid.Joystick
	log      *logger.Logger
}

// NewDevice creates the ADC backend selected in cfg.
func NewDevice(cfg *config.Config, l *logger.Logger) (adc.Device, error) {
	switch cfg.Device.Kind {
	case config.DeviceSerial:
		return adc.NewSerial(cfg.Device.Port, cfg.Device.Baud, l), nil
	case config.DeviceMock:
		return adc.NewMock(&cfg.Mock), nil
	case config.DeviceIIO:
		tagged := l.WithTag("iio")
		return adc.NewIIO(cfg.Device.IIODevice, func(pin int, err error) {
			tagged.Errorf("Pin %d unreadable: %v", pin, err)
		}), nil
	default:
		return nil, fmt.Errorf("unknown device kind %q", cfg.Device.Kind)
	}
}

// New connects dev and builds every component around it. The saved active
// configuration is restored before New returns.
func New(cfg *config.Config, dev adc.Device, l *logger.Logger) (*Box, error) {
	if err := dev.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect ADC: %w", err)
	}

	b := &Box{
		Device:   dev,
		Gate:     &pedal.Gate{},
		Cell:     &telemetry.Cell[telemetry.Snapshot]{},
		joystick: hid.Discard{},
		log:      l,
	}

	src := sample.NewOversampler(dev, cfg.Sampling.Oversample, cfg.Sampling.FullScale)
	for i, c := range cfg.Channels {
		b.Channels = append(b.Channels, pedal.NewChannel(i, c.Name, c.Pin, src,
			pedal.WithResyncOnConfigChange(cfg.Sampling.ResyncFilter)))
	}

	store := profile.NewStore(cfg.Store.Dir, cfg.Store.Active)
	if err := store.Init(); err != nil {
		dev.Close()
		return nil, err
	}

	b.Service = service.New(b.Channels, b.Gate, preset.NewRegistry(), store, b.Cell, l)
	b.Service.SetBroadcastInterval(cfg.Redis.BroadcastInterval)
	if err := b.Service.LoadActive(); err != nil {
		l.Warnf("Starting with defaults: %v", err)
	}

	if cfg.HID.Enabled {
		joy, err := hid.Open(cfg.HID.Name, len(b.Channels), cfg.HID.AxisMin, cfg.HID.AxisMax)
		if err != nil {
			l.Warnf("Virtual joystick unavailable: %v", err)
		} else {
			b.joystick = joy
		}
	}

	b.Sampler = sampler.New(b.Channels, b.Gate, b.Cell,
		sampler.WithInterval(cfg.Sampling.Interval),
		sampler.WithTelemetryInterval(cfg.Sampling.TelemetryInterval),
		sampler.WithJoystick(b.joystick, hid.AxisMap{
			DeviceMax: pedal.OutputMax,
			Min:       cfg.HID.AxisMin,
			Max:       cfg.HID.AxisMax,
		}),
		sampler.WithLogger(l))

	if err := b.Sampler.Begin(); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Run samples until ctx is cancelled. When pub is non-nil telemetry is also
// broadcast through it.
func (b *Box) Run(ctx context.Context, pub service.Publisher) error {
	var wg sync.WaitGroup
	if pub != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Service.Broadcast(ctx, pub)
		}()
	}

	err := b.Sampler.Run(ctx)
	wg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close releases the joystick and the ADC.
func (b *Box) Close() error {
	return errors.Join(b.joystick.Close(), b.Device.Close())
}
