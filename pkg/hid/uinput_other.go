//go:build !linux

package hid

// Uinput is unavailable outside Linux.
type Uinput struct{ Discard }

// Open always fails with ErrUnsupported outside Linux.
func Open(name string, axes, min, max int) (*Uinput, error) {
	return nil, ErrUnsupported
}
