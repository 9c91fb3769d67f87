package adc

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// DefaultIIORoot is where the kernel exposes industrial I/O devices.
const DefaultIIORoot = "/sys/bus/iio/devices"

// IIO reads an on-board ADC through Linux IIO sysfs files. Reads are
// synchronous, one file read per call.
type IIO struct {
	dir string

	mu        sync.RWMutex
	connected bool
	lastErr   map[int]bool
	onError   func(pin int, err error)
}

// NewIIO creates a device for the named IIO device (for example "iio:device0").
// An absolute path is used as the device directory directly.
func NewIIO(device string, onError func(pin int, err error)) *IIO {
	dir := device
	if !filepath.IsAbs(device) {
		dir = filepath.Join(DefaultIIORoot, device)
	}
	return &IIO{
		dir:     dir,
		lastErr: make(map[int]bool),
		onError: onError,
	}
}

func (d *IIO) channelPath(pin int) string {
	return filepath.Join(d.dir, fmt.Sprintf("in_voltage%d_raw", pin))
}

// Connect checks that the device directory exists.
func (d *IIO) Connect() error {
	if _, err := os.Stat(d.dir); err != nil {
		return fmt.Errorf("ADC sysfs not found: %w", err)
	}
	d.mu.Lock()
	d.connected = true
	d.mu.Unlock()
	return nil
}

// Configure checks that pin is exposed by the device.
func (d *IIO) Configure(pin int) error {
	path := d.channelPath(pin)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("ADC channel %d not available: %w", pin, err)
	}
	return nil
}

func (d *IIO) Close() error {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	return nil
}

func (d *IIO) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Read returns the raw value of pin, or 0 when it cannot be read. The first
// failure after a good read is reported through the error callback.
func (d *IIO) Read(pin int) int {
	v, err := d.ReadValue(pin)

	d.mu.Lock()
	failedBefore := d.lastErr[pin]
	d.lastErr[pin] = err != nil
	d.mu.Unlock()

	if err != nil {
		if !failedBefore && d.onError != nil {
			d.onError(pin, err)
		}
		return 0
	}
	return v
}

// ReadValue reads and parses the raw sysfs value of pin.
func (d *IIO) ReadValue(pin int) (int, error) {
	path := d.channelPath(pin)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed reading %s: %w", path, err)
	}

	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("failed parsing ADC value: %w", err)
	}
	if value < 0 {
		value = 0
	} else if value > MaxValue {
		value = MaxValue
	}
	return value, nil
}
