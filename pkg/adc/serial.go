package adc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/itohio/pedals/pkg/logger"
)

const (
	// DefaultBaudRate is the standard baud rate of the ADC board.
	DefaultBaudRate = 115200
	// MaxPins is the number of inputs a frame may carry.
	MaxPins = 8
)

// Frame is one line from the ADC board: a reading per input.
type Frame struct {
	Timestamp time.Time
	Values    []uint16
}

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial reads frames streamed by the ADC board and keeps the latest reading
// of every input.
type Serial struct {
	port     string
	baudRate int
	log      *logger.Logger

	values [MaxPins]atomic.Int32
	frames atomic.Uint64

	conn      io.ReadCloser
	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	connected bool
}

// NewSerial creates a device reading from the named port.
func NewSerial(port string, baudRate int, l *logger.Logger) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if l == nil {
		l = logger.Discard()
	}

	return &Serial{
		port:     port,
		baudRate: baudRate,
		log:      l.WithTag("adc"),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	result := make([]Port, 0, len(ports))
	for _, name := range ports {
		result = append(result, Port{
			Name:        name,
			Description: name,
		})
	}
	return result, nil
}

// Connect opens the serial port and starts reading frames.
func (d *Serial) Connect() error {
	d.mu.RLock()
	connected := d.connected
	d.mu.RUnlock()
	if connected {
		return fmt.Errorf("already connected")
	}

	port, err := serial.Open(d.port, &serial.Mode{
		BaudRate: d.baudRate,
	})
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", d.port, err)
	}

	return d.attach(port)
}

// attach starts the reader on an already open stream.
func (d *Serial) attach(conn io.ReadCloser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		conn.Close()
		return fmt.Errorf("already connected")
	}

	d.ctx, d.cancel = context.WithCancel(context.Background())
	d.done = make(chan struct{})
	d.conn = conn
	d.connected = true

	go d.readFrames(conn, d.done)

	return nil
}

// Close closes the connection and waits for the reader to stop.
func (d *Serial) Close() error {
	d.mu.Lock()
	if !d.connected {
		d.mu.Unlock()
		return nil
	}

	d.cancel()
	if err := d.conn.Close(); err != nil {
		d.log.Warnf("Error closing serial port: %v", err)
	}
	d.conn = nil
	d.connected = false
	done := d.done
	d.mu.Unlock()

	<-done
	d.log.Infof("Closed %s after %d frames", d.port, d.frames.Load())
	return nil
}

// Read returns the latest reading of pin, or 0 for a pin never reported.
func (d *Serial) Read(pin int) int {
	if pin < 0 || pin >= MaxPins {
		return 0
	}
	return int(d.values[pin].Load())
}

// IsConnected returns whether the device is currently connected.
func (d *Serial) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Serial) readFrames(conn io.Reader, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			d.log.Errorf("Panic in readFrames: %v", r)
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		if d.ctx.Err() != nil {
			return
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		frame, err := parseLine(line)
		if err != nil {
			d.log.Debugf("Failed to parse line '%s': %v", line, err)
			continue
		}
		d.store(frame)
	}

	if err := scanner.Err(); err != nil && d.ctx.Err() == nil {
		d.log.Errorf("Error reading from serial port: %v", err)
	}
}

func (d *Serial) store(f Frame) {
	for pin, v := range f.Values {
		d.values[pin].Store(int32(v))
	}
	d.frames.Add(1)
}

// parseLine parses a line from the ADC board into a Frame.
// Format: one decimal 12-bit reading per input, comma separated.
// Example: 2048,130,4095
func parseLine(line string) (Frame, error) {
	parts := strings.Split(line, ",")
	if len(parts) > MaxPins {
		return Frame{}, fmt.Errorf("invalid line format: at most %d values, got %d", MaxPins, len(parts))
	}

	values := make([]uint16, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 16)
		if err != nil {
			return Frame{}, fmt.Errorf("invalid reading %d: %w", i, err)
		}
		if v > MaxValue {
			return Frame{}, fmt.Errorf("reading %d out of range: %d (max %d)", i, v, MaxValue)
		}
		values[i] = uint16(v)
	}

	return Frame{
		Timestamp: time.Now(),
		Values:    values,
	}, nil
}
