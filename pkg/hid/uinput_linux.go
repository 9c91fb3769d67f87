//go:build linux

package hid

import (
	"encoding/binary"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	uiSetEvBit   = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBit  = 0x40045565 // _IOW('U', 101, int)
	uiSetAbsBit  = 0x40045567 // _IOW('U', 103, int)
	uiDevSetup   = 0x405c5503 // _IOW('U', 3, struct uinput_setup)
	uiAbsSetup   = 0x401c5504 // _IOW('U', 4, struct uinput_abs_setup)
	uiDevCreate  = 0x00005501 // _IO('U', 1)
	uiDevDestroy = 0x00005502 // _IO('U', 2)

	evSyn = 0x00
	evKey = 0x01
	evAbs = 0x03

	synReport  = 0
	btnTrigger = 0x120

	busUSB    = 0x03
	nameSize  = 80
	setupSize = 92
	absSize   = 28
)

// UinputPath is the uinput character device.
var UinputPath = "/dev/uinput"

// Uinput is a virtual joystick created through the Linux uinput module.
type Uinput struct {
	mu     sync.Mutex
	fd     int
	axes   int
	last   []int
	buf    []byte
	closed bool
}

var _ Joystick = (*Uinput)(nil)

// Open creates a virtual joystick called name with the given number of
// absolute axes (X, Y, Z, ...) reporting values in [min, max].
func Open(name string, axes, min, max int) (*Uinput, error) {
	if axes <= 0 || axes > MaxAxes {
		return nil, fmt.Errorf("invalid axis count %d (1..%d)", axes, MaxAxes)
	}

	fd, err := unix.Open(UinputPath, unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", UinputPath, err)
	}

	if err := setup(fd, name, axes, min, max); err != nil {
		unix.Close(fd)
		return nil, err
	}

	last := make([]int, axes)
	for i := range last {
		last[i] = min - 1
	}

	return &Uinput{
		fd:   fd,
		axes: axes,
		last: last,
	}, nil
}

func setup(fd int, name string, axes, min, max int) error {
	if err := unix.IoctlSetInt(fd, uiSetEvBit, evKey); err != nil {
		return fmt.Errorf("UI_SET_EVBIT EV_KEY: %w", err)
	}
	// Without a button joydev does not classify the device as a joystick.
	if err := unix.IoctlSetInt(fd, uiSetKeyBit, btnTrigger); err != nil {
		return fmt.Errorf("UI_SET_KEYBIT: %w", err)
	}
	if err := unix.IoctlSetInt(fd, uiSetEvBit, evAbs); err != nil {
		return fmt.Errorf("UI_SET_EVBIT EV_ABS: %w", err)
	}

	for code := 0; code < axes; code++ {
		if err := unix.IoctlSetInt(fd, uiSetAbsBit, code); err != nil {
			return fmt.Errorf("UI_SET_ABSBIT %d: %w", code, err)
		}
		abs := absSetup(uint16(code), int32(min), int32(max))
		if err := ioctlPtr(fd, uiAbsSetup, abs); err != nil {
			return fmt.Errorf("UI_ABS_SETUP %d: %w", code, err)
		}
	}

	if err := ioctlPtr(fd, uiDevSetup, devSetup(name)); err != nil {
		return fmt.Errorf("UI_DEV_SETUP: %w", err)
	}
	if err := ioctlPtr(fd, uiDevCreate, nil); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return nil
}

// devSetup encodes struct uinput_setup.
func devSetup(name string) []byte {
	b := make([]byte, setupSize)
	binary.NativeEndian.PutUint16(b[0:], busUSB)
	binary.NativeEndian.PutUint16(b[2:], 0x1209) // pid.codes vendor
	binary.NativeEndian.PutUint16(b[4:], 0x0001)
	binary.NativeEndian.PutUint16(b[6:], 1)
	n := copy(b[8:8+nameSize-1], name)
	b[8+n] = 0
	return b
}

// absSetup encodes struct uinput_abs_setup.
func absSetup(code uint16, min, max int32) []byte {
	b := make([]byte, absSize)
	binary.NativeEndian.PutUint16(b[0:], code)
	// b[4:8] value
	binary.NativeEndian.PutUint32(b[8:], uint32(min))
	binary.NativeEndian.PutUint32(b[12:], uint32(max))
	return b
}

func ioctlPtr(fd int, req uint, arg []byte) error {
	var errno unix.Errno
	if len(arg) == 0 {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), 0)
	} else {
		_, _, errno = unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(&arg[0])))
	}
	if errno != 0 {
		return errno
	}
	return nil
}

// SetAxes reports values on the first len(values) axes. Unchanged axes are
// not re-sent; a sync event follows whenever anything changed.
func (u *Uinput) SetAxes(values []int) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return fmt.Errorf("joystick closed")
	}

	u.buf = u.buf[:0]
	for code, v := range values {
		if code >= u.axes {
			break
		}
		if u.last[code] == v {
			continue
		}
		u.buf = appendEvent(u.buf, evAbs, uint16(code), int32(v))
	}
	if len(u.buf) == 0 {
		return nil
	}
	u.buf = appendEvent(u.buf, evSyn, synReport, 0)

	if _, err := unix.Write(u.fd, u.buf); err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}
	for code, v := range values {
		if code < u.axes {
			u.last[code] = v
		}
	}
	return nil
}

// Close destroys the virtual device.
func (u *Uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return nil
	}
	u.closed = true

	destroyErr := ioctlPtr(u.fd, uiDevDestroy, nil)
	if err := unix.Close(u.fd); err != nil {
		return fmt.Errorf("failed to close uinput: %w", err)
	}
	if destroyErr != nil {
		return fmt.Errorf("UI_DEV_DESTROY: %w", destroyErr)
	}
	return nil
}

var timevalSize = int(unsafe.Sizeof(unix.Timeval{}))

// appendEvent encodes struct input_event. The kernel stamps the time itself.
func appendEvent(b []byte, typ, code uint16, value int32) []byte {
	off := len(b)
	b = append(b, make([]byte, timevalSize+8)...)
	binary.NativeEndian.PutUint16(b[off+timevalSize:], typ)
	binary.NativeEndian.PutUint16(b[off+timevalSize+2:], code)
	binary.NativeEndian.PutUint32(b[off+timevalSize+4:], uint32(value))
	return b
}
