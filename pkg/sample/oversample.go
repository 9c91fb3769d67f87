// Package sample turns physical ADC readings into debiased raw pedal values
// and keeps short histories of them for display.
package sample

// DefaultCount is the number of physical readings averaged per raw value.
const DefaultCount = 16

// Reader is a physical ADC input.
type Reader interface {
	Read(pin int) int
}

type configurer interface {
	Configure(pin int) error
}

// Oversampler averages consecutive readings of a pin and inverts the result
// about full scale, since the sensors report a falling voltage for increasing
// pedal travel.
type Oversampler struct {
	dev       Reader
	count     int
	fullScale int
}

// NewOversampler wraps dev. Non-positive count and fullScale select 16 and 4095.
func NewOversampler(dev Reader, count, fullScale int) *Oversampler {
	if count <= 0 {
		count = DefaultCount
	}
	if fullScale <= 0 {
		fullScale = 4095
	}
	return &Oversampler{
		dev:       dev,
		count:     count,
		fullScale: fullScale,
	}
}

// Configure prepares pin on the underlying device, if it needs preparing.
func (o *Oversampler) Configure(pin int) error {
	if c, ok := o.dev.(configurer); ok {
		return c.Configure(pin)
	}
	return nil
}

// Read returns fullScale minus the truncated mean of count readings. Readings
// outside [0, fullScale] are clamped first, so the result is always in range.
func (o *Oversampler) Read(pin int) int {
	sum := 0
	for i := 0; i < o.count; i++ {
		v := o.dev.Read(pin)
		if v < 0 {
			v = 0
		} else if v > o.fullScale {
			v = o.fullScale
		}
		sum += v
	}
	return o.fullScale - sum/o.count
}
