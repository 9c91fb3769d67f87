package pedal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPermille_Scenarios(t *testing.T) {
	normal := DefaultConfig()
	normal.CalibratedMin = 500
	normal.CalibratedMax = 3500
	normal.DeadzoneStart = 100
	normal.DeadzoneEnd = 100

	reversed := DefaultConfig()
	reversed.CalibratedMin = 3500
	reversed.CalibratedMax = 500

	tests := []struct {
		name string
		cfg  Config
		raw  int
		want int
	}{
		{"min maps to zero", normal, 500, 0},
		{"max maps to full", normal, 3500, 1000},
		{"midpoint", normal, 2000, 500},
		{"below window", normal, 0, 0},
		{"above window", normal, 4095, 1000},
		{"reversed min maps to zero", reversed, 3500, 0},
		{"reversed max maps to full", reversed, 500, 1000},
		{"reversed midpoint", reversed, 2000, 500},
		{"reversed beyond start", reversed, 4095, 0},
		{"reversed beyond end", reversed, 0, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Permille(tt.raw, tt.cfg))
		})
	}
}

func TestPermille_Inverted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Inverted = true

	assert.Equal(t, 1000, Permille(0, cfg))
	assert.Equal(t, 0, Permille(FullScale, cfg))
}

func TestWindow_Deadzones(t *testing.T) {
	cfg := Config{CalibratedMin: 500, CalibratedMax: 3500, DeadzoneStart: 100, DeadzoneEnd: 50}
	start, end := Window(cfg)
	assert.Equal(t, 600, start)
	assert.Equal(t, 3450, end)

	cfg = Config{CalibratedMin: 3500, CalibratedMax: 500, DeadzoneStart: 100, DeadzoneEnd: 50}
	start, end = Window(cfg)
	assert.Equal(t, 3400, start)
	assert.Equal(t, 550, end)
}

func TestClampRaw_DegenerateWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CalibratedMin = 2000
	cfg.CalibratedMax = 2000

	clamped, start, end := ClampRaw(4095, cfg)
	assert.Equal(t, 2000, clamped)
	assert.Equal(t, 2000, start)
	assert.Equal(t, 2001, end)
	assert.Equal(t, 0, Permille(4095, cfg))
}

func TestPermille_AlwaysInRange(t *testing.T) {
	configs := []Config{
		DefaultConfig(),
		{CalibratedMin: 500, CalibratedMax: 3500, DeadzoneStart: 100, DeadzoneEnd: 100},
		{CalibratedMin: 3500, CalibratedMax: 500, DeadzoneStart: 100, DeadzoneEnd: 100},
		{CalibratedMin: 2000, CalibratedMax: 2000},
		{CalibratedMin: 1000, CalibratedMax: 1100, DeadzoneStart: 100, DeadzoneEnd: 100},
		{CalibratedMin: 1100, CalibratedMax: 1000, DeadzoneStart: 300, DeadzoneEnd: 300},
		{CalibratedMin: -50, CalibratedMax: 5000, Inverted: true},
	}

	for i, cfg := range configs {
		for raw := 0; raw <= FullScale; raw++ {
			p := Permille(raw, cfg)
			if p < 0 || p > PermilleMax {
				t.Fatalf("config %d raw %d: permille %d out of range", i, raw, p)
			}
		}
	}
}

func TestPermille_Monotonic(t *testing.T) {
	normal := Config{CalibratedMin: 300, CalibratedMax: 3900, DeadzoneStart: 20, DeadzoneEnd: 40}
	reversed := Config{CalibratedMin: 3900, CalibratedMax: 300, DeadzoneStart: 20, DeadzoneEnd: 40}

	prevNormal := Permille(0, normal)
	prevReversed := Permille(0, reversed)
	for raw := 1; raw <= FullScale; raw++ {
		n := Permille(raw, normal)
		r := Permille(raw, reversed)
		assert.GreaterOrEqual(t, n, prevNormal, "normal calibration decreased at raw %d", raw)
		assert.LessOrEqual(t, r, prevReversed, "reversed calibration increased at raw %d", raw)
		prevNormal, prevReversed = n, r
	}
}

func TestShape_Breakpoints(t *testing.T) {
	curves := []Curve{
		IdentityCurve(),
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 100},
		{0, 5, 12, 22, 35, 50, 65, 78, 88, 95, 100},
		{100, 0, 100, 0, 100, 0, 100, 0, 100, 0, 100}, // non-monotonic is allowed
	}

	for _, c := range curves {
		for k := 0; k < CurvePointCount; k++ {
			assert.Equal(t, float32(c[k]), Shape(k*100, c), "curve %v breakpoint %d", c, k)
		}
	}
}

func TestShape_Scenarios(t *testing.T) {
	assert.Equal(t, float32(55), Shape(550, IdentityCurve()))

	steep := Curve{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 100}
	assert.InDelta(t, 99.0, Shape(999, steep), 0.001)
	assert.Equal(t, float32(100), Shape(1000, steep))
	assert.Equal(t, float32(0), Shape(900, steep))
}

func TestShape_OutOfRangeInput(t *testing.T) {
	c := IdentityCurve()
	assert.Equal(t, float32(0), Shape(-10, c))
	assert.Equal(t, float32(100), Shape(5000, c))
}

func TestLimit(t *testing.T) {
	assert.Equal(t, float32(50), Limit(80, 50))
	assert.Equal(t, float32(30), Limit(30, 50))
	assert.Equal(t, float32(0), Limit(10, 0))
}

func TestLimit_NeverExceedsCeiling(t *testing.T) {
	for _, ceiling := range []int{0, 1, 25, 50, 99, 100} {
		cfg := DefaultConfig()
		cfg.OutputCeiling = ceiling
		cfg.Curve = Curve{0, 30, 90, 100, 20, 100, 0, 70, 100, 100, 100}
		for raw := 0; raw <= FullScale; raw += 7 {
			s := Evaluate(raw, cfg)
			assert.LessOrEqual(t, s.Limited, float32(ceiling))
		}
	}
}

func TestEvaluate_CeilingScenario(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Curve = Curve{0, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80}
	cfg.OutputCeiling = 50

	s := Evaluate(FullScale, cfg)
	assert.Equal(t, 1000, s.Permille)
	assert.Equal(t, float32(80), s.Shaped)
	assert.Equal(t, float32(50), s.Limited)
	assert.InDelta(t, float64(OutputMax)/2, float64(s.Target), 1.0)
}

func TestScale(t *testing.T) {
	assert.Equal(t, float32(0), Scale(0))
	assert.InDelta(t, float64(OutputMax), float64(Scale(100)), 0.01)
}

func TestCurveFromSlice(t *testing.T) {
	c, ok := CurveFromSlice([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	assert.True(t, ok)
	assert.Equal(t, Curve{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, c)

	_, ok = CurveFromSlice([]int{0, 1, 2})
	assert.False(t, ok)

	_, ok = CurveFromSlice(make([]int, 12))
	assert.False(t, ok)

	_, ok = CurveFromSlice([]int{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 101})
	assert.False(t, ok)

	_, ok = CurveFromSlice([]int{-1, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100})
	assert.False(t, ok)
}
