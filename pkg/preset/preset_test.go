package preset

import (
	"testing"

	"github.com/itohio/pedals/pkg/pedal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	for slot := range Slots {
		c, ok := r.Curve(slot)
		require.True(t, ok)
		assert.Equal(t, pedal.IdentityCurve(), c)
	}

	_, ok := r.Curve(Slots)
	assert.False(t, ok)
	_, ok = r.Curve(-1)
	assert.False(t, ok)
}

func TestRegistry_Load(t *testing.T) {
	r := NewRegistry()
	steep := []int{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 100}

	n, err := r.Load([][]int{
		steep,
		{1, 2, 3}, // wrong length, slot 1 keeps its value
		nil,
		{100, 90, 80, 70, 60, 50, 40, 30, 20, 10, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows := r.Rows()
	assert.Equal(t, steep, rows[0])
	assert.Equal(t, pedal.IdentityCurve().Slice(), rows[1])
	assert.Equal(t, pedal.IdentityCurve().Slice(), rows[2])
	assert.Equal(t, []int{100, 90, 80, 70, 60, 50, 40, 30, 20, 10, 0}, rows[3])
}

func TestRegistry_LoadPartial(t *testing.T) {
	r := NewRegistry()
	n, err := r.Load([][]int{{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	c, _ := r.Curve(0)
	assert.Equal(t, pedal.Curve{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}, c)

	n, err = r.Load([][]int{
		{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5},
		{-100, -100, -100, -100, -100, -100, -100, -100, -100, -100, -100},
		{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 101},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	for slot := 1; slot < 3; slot++ {
		c, _ = r.Curve(slot)
		assert.Equal(t, pedal.IdentityCurve(), c, "out of range row must leave slot %d untouched", slot)
	}
}

func TestRegistry_LoadTooMany(t *testing.T) {
	r := NewRegistry()
	rows := make([][]int, Slots+1)
	for i := range rows {
		rows[i] = make([]int, pedal.CurvePointCount)
	}

	n, err := r.Load(rows)
	assert.ErrorIs(t, err, ErrTooManyPresets)
	assert.Zero(t, n)

	c, _ := r.Curve(0)
	assert.Equal(t, pedal.IdentityCurve(), c, "rejected load must not change any slot")
}

func TestRegistry_RowsAreCopies(t *testing.T) {
	r := NewRegistry()
	rows := r.Rows()
	rows[0][5] = 0

	c, _ := r.Curve(0)
	assert.Equal(t, 50, c[5])
}
