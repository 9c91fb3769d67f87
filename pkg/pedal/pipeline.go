package pedal

import "github.com/chewxy/math32"

// outputPerPercent converts a 0-100 percentage into device units.
const outputPerPercent = float32(OutputMax) / 100

// Window returns the effective calibration window after deadzones are applied.
// For a reversed sensor start is the numerically larger bound.
func Window(cfg Config) (start, end int) {
	if cfg.Reversed() {
		return cfg.CalibratedMin - cfg.DeadzoneStart, cfg.CalibratedMax + cfg.DeadzoneEnd
	}
	return cfg.CalibratedMin + cfg.DeadzoneStart, cfg.CalibratedMax - cfg.DeadzoneEnd
}

// ClampRaw clamps raw into the calibration window and returns the clamped value
// together with the window used for mapping. A zero-width window is widened by
// one unit so the mapping never divides by zero.
func ClampRaw(raw int, cfg Config) (clamped, start, end int) {
	start, end = Window(cfg)
	clamped = raw

	if cfg.Reversed() {
		if clamped > start {
			clamped = start
		}
		if clamped < end {
			clamped = end
		}
	} else {
		if clamped < start {
			clamped = start
		}
		if clamped > end {
			clamped = end
		}
	}

	if start == end {
		end = start + 1
	}
	return clamped, start, end
}

// Permille maps raw onto 0..1000 through the calibration window.
func Permille(raw int, cfg Config) int {
	clamped, start, end := ClampRaw(raw, cfg)

	v := mapRange(clamped, start, end, 0, PermilleMax)
	v = clampInt(v, 0, PermilleMax)

	if cfg.Inverted {
		v = PermilleMax - v
	}
	return v
}

// Shape evaluates the piecewise-linear curve at permille and returns a
// percentage in 0..100. Breakpoints are hit exactly.
func Shape(permille int, curve Curve) float32 {
	permille = clampInt(permille, 0, PermilleMax)

	index := permille / 100
	remainder := permille % 100
	if index >= CurvePointCount-1 {
		index = CurvePointCount - 2
		remainder = 100
	}

	p1 := float32(curve[index])
	p2 := float32(curve[index+1])
	return p1 + (p2-p1)*(float32(remainder)/100)
}

// Limit clips pct to ceiling. It never rescales.
func Limit(pct float32, ceiling int) float32 {
	return math32.Min(pct, float32(ceiling))
}

// Scale converts a percentage into device units (0..OutputMax).
func Scale(pct float32) float32 {
	return pct * outputPerPercent
}

// Stage holds the intermediate values of one pass through the pipeline.
type Stage struct {
	Permille int     // calibrated, mapped input 0..1000
	Shaped   float32 // curve output 0..100
	Limited  float32 // shaped output after the ceiling
	Target   float32 // device units before smoothing
}

// Evaluate runs raw through every stage except smoothing.
func Evaluate(raw int, cfg Config) Stage {
	var s Stage
	s.Permille = Permille(raw, cfg)
	s.Shaped = Shape(s.Permille, cfg.Curve)
	s.Limited = Limit(s.Shaped, cfg.OutputCeiling)
	s.Target = Scale(s.Limited)
	return s
}

// mapRange linearly maps x from [inMin, inMax] to [outMin, outMax] with
// truncating integer arithmetic. A descending input range is allowed.
func mapRange(x, inMin, inMax, outMin, outMax int) int {
	return (x-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
