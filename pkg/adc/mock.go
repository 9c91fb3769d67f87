package adc

import (
	"fmt"
	"sync"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/pedals/pkg/config"
)

// Mock simulates pedals being pressed and released for development without hardware.
// Every pin follows the same press cycle shifted by a third of the period.
type Mock struct {
	cfg config.MockConfig
	now func() time.Time

	mu        sync.RWMutex
	startTime time.Time
	connected bool
	held      map[int]int
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.Default().Mock
	}
	c := *cfg
	if c.Period <= 0 {
		c.Period = 4 * time.Second
	}
	if c.Travel <= 0 || c.Travel > MaxValue {
		c.Travel = MaxValue
	}

	return &Mock{
		cfg:  c,
		now:  time.Now,
		held: make(map[int]int),
	}
}

// Connect simulates connecting to the device.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}

	m.connected = true
	m.startTime = m.now()
	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Hold pins the reading of pin to value until Release is called.
func (m *Mock) Hold(pin, value int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[pin] = value
}

// Release returns pin to the simulated press cycle.
func (m *Mock) Release(pin int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, pin)
}

// Read returns the simulated reading of pin. A disconnected mock reads 0.
func (m *Mock) Read(pin int) int {
	m.mu.RLock()
	connected := m.connected
	start := m.startTime
	held, isHeld := m.held[pin]
	m.mu.RUnlock()

	if !connected {
		return 0
	}
	if isHeld {
		return held
	}

	elapsed := m.now().Sub(start)
	phase := float32(elapsed%m.cfg.Period)/float32(m.cfg.Period) + float32(pin)/3
	travel := (1 - math32.Cos(2*math32.Pi*phase)) / 2

	noise := float32(0)
	if m.cfg.Noise > 0 {
		t := float32(elapsed.Microseconds())
		noise = (math32.Sin(t*0.0071+float32(pin)) + math32.Cos(t*0.013)) * float32(m.cfg.Noise) * 0.5
	}

	v := int(travel*float32(m.cfg.Travel) + noise)
	if v < 0 {
		return 0
	}
	if v > MaxValue {
		return MaxValue
	}
	return v
}
