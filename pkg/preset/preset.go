// Package preset keeps the user-defined curve presets.
package preset

import (
	"errors"
	"fmt"
	"sync"

	"github.com/itohio/pedals/pkg/pedal"
)

// Slots is the number of custom curve presets.
const Slots = 4

// ErrTooManyPresets is returned when more rows than Slots are supplied.
var ErrTooManyPresets = errors.New("too many curve presets")

// Registry owns the custom curve presets. It is loaded once at startup and
// afterwards changed only through Load on the config apply path.
type Registry struct {
	mu     sync.RWMutex
	curves [Slots]pedal.Curve
}

// NewRegistry returns a registry with every slot set to the identity curve.
func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.curves {
		r.curves[i] = pedal.IdentityCurve()
	}
	return r
}

// Load replaces presets from rows, slot by slot. Rows that do not hold exactly
// pedal.CurvePointCount points in 0..100 leave their slot untouched. It returns the
// number of slots replaced. More than Slots rows are rejected as a whole.
func (r *Registry) Load(rows [][]int) (int, error) {
	if len(rows) > Slots {
		return 0, fmt.Errorf("%w: got %d, max %d", ErrTooManyPresets, len(rows), Slots)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	applied := 0
	for i, row := range rows {
		c, ok := pedal.CurveFromSlice(row)
		if !ok {
			continue
		}
		r.curves[i] = c
		applied++
	}
	return applied, nil
}

// Curve returns the preset in slot.
func (r *Registry) Curve(slot int) (pedal.Curve, bool) {
	if slot < 0 || slot >= Slots {
		return pedal.Curve{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.curves[slot], true
}

// Rows returns all presets as slices, in slot order.
func (r *Registry) Rows() [][]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([][]int, Slots)
	for i, c := range r.curves {
		rows[i] = c.Slice()
	}
	return rows
}
