package pedal

const (
	// CurvePointCount is the number of curve breakpoints (0%, 10%, ... 100% input).
	CurvePointCount = 11
	// FullScale is the raw ADC scale (12-bit, 0-4095).
	FullScale = 4095
	// OutputMax is the upper bound of the device output range.
	OutputMax = 4095
	// PermilleMax is the top of the intermediate 0.1% resolution scale.
	PermilleMax = 1000
	// MaxSmoothing caps the smoothing factor so the filter never freezes.
	MaxSmoothing = 98
)

// Curve holds the output percentage (0-100) for each 10% input step.
type Curve [CurvePointCount]int

// IdentityCurve returns the linear 0..100 curve.
func IdentityCurve() Curve {
	var c Curve
	for i := range c {
		c[i] = i * 10
	}
	return c
}

// CurveFromSlice converts pts into a Curve. It reports false if pts does not
// hold exactly CurvePointCount values or any value is outside 0..100.
func CurveFromSlice(pts []int) (Curve, bool) {
	var c Curve
	if len(pts) != CurvePointCount {
		return c, false
	}
	for _, v := range pts {
		if v < 0 || v > 100 {
			return c, false
		}
	}
	copy(c[:], pts)
	return c, true
}

// Slice returns the curve points as a newly allocated slice.
func (c Curve) Slice() []int {
	out := make([]int, CurvePointCount)
	copy(out, c[:])
	return out
}

// Config is the transfer function of one pedal channel. It is a value type and
// is always replaced as a whole.
type Config struct {
	CalibratedMin int  // raw value at rest; greater than CalibratedMax for a reversed sensor
	CalibratedMax int  // raw value at full travel
	DeadzoneStart int  // raw units ignored next to CalibratedMin
	DeadzoneEnd   int  // raw units ignored next to CalibratedMax
	Inverted      bool // flip the permille scale
	Curve         Curve
	Smoothing     int // 0 (raw) .. 99 (heavy)
	OutputCeiling int // 0..100 percent cap on shaped output
}

// DefaultConfig returns the configuration a channel starts with.
func DefaultConfig() Config {
	return Config{
		CalibratedMin: 0,
		CalibratedMax: FullScale,
		Curve:         IdentityCurve(),
		Smoothing:     10,
		OutputCeiling: 100,
	}
}

// Reversed reports whether the sensor is wired so that travel decreases the raw value.
func (c Config) Reversed() bool {
	return c.CalibratedMin > c.CalibratedMax
}
