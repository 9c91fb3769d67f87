// Package adc provides raw pedal readings from an ADC board (over serial),
// from Linux IIO sysfs, or from a simulation.
package adc

// MaxValue is the largest reading a 12-bit converter produces.
const MaxValue = 4095

// Device defines the interface for ADC backends (real or mocked).
type Device interface {
	Connect() error
	Close() error
	// Read returns the latest reading for pin. It never blocks.
	Read(pin int) int
	IsConnected() bool
}

var (
	_ Device = (*Serial)(nil)
	_ Device = (*Mock)(nil)
	_ Device = (*IIO)(nil)
)
