// Package hid presents pedal outputs to the host as joystick axes.
package hid

import (
	"errors"

	"github.com/chewxy/math32"
)

// MaxAxes is the number of axes a joystick exposes (X, Y, Z, Rx, Ry, Rz).
const MaxAxes = 6

// ErrUnsupported is returned when no virtual joystick backend exists on this platform.
var ErrUnsupported = errors.New("virtual joystick not supported on this platform")

// Joystick receives axis positions in the joystick's own axis range.
type Joystick interface {
	SetAxes(values []int) error
	Close() error
}

// AxisMap rescales channel outputs in [0, DeviceMax] onto [Min, Max].
type AxisMap struct {
	DeviceMax int
	Min       int
	Max       int
}

// Map rescales v, rounding to the nearest axis unit. Values outside
// [0, DeviceMax] are clamped.
func (m AxisMap) Map(v int) int {
	if m.DeviceMax <= 0 {
		return m.Min
	}
	if v <= 0 {
		return m.Min
	}
	if v >= m.DeviceMax {
		return m.Max
	}
	f := float32(v) / float32(m.DeviceMax)
	return m.Min + int(math32.Round(f*float32(m.Max-m.Min)))
}

// MapAll rescales every value of src into dst and returns dst.
// Reuses dst if it has sufficient capacity, otherwise allocates.
func (m AxisMap) MapAll(dst []int, src []int) []int {
	dst = dst[:0]
	for _, v := range src {
		dst = append(dst, m.Map(v))
	}
	return dst
}

// Discard is a joystick that drops every update.
type Discard struct{}

func (Discard) SetAxes([]int) error { return nil }
func (Discard) Close() error        { return nil }
