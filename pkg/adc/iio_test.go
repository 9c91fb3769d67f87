package adc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeChannel(t *testing.T, dir string, pin int, content string) {
	t.Helper()
	name := filepath.Join(dir, "in_voltage"+string(rune('0'+pin))+"_raw")
	require.NoError(t, os.WriteFile(name, []byte(content), 0644))
}

func TestNewIIO_Path(t *testing.T) {
	assert.Equal(t, "/sys/bus/iio/devices/iio:device0", NewIIO("iio:device0", nil).dir)
	assert.Equal(t, "/tmp/adc", NewIIO("/tmp/adc", nil).dir)
}

func TestIIO_Read(t *testing.T) {
	dir := t.TempDir()
	writeChannel(t, dir, 0, "1234\n")
	writeChannel(t, dir, 1, "9999\n")
	writeChannel(t, dir, 2, "abc\n")

	var errs []int
	d := NewIIO(dir, func(pin int, err error) { errs = append(errs, pin) })
	require.NoError(t, d.Connect())
	assert.True(t, d.IsConnected())

	assert.NoError(t, d.Configure(0))
	assert.Error(t, d.Configure(5))

	assert.Equal(t, 1234, d.Read(0))
	assert.Equal(t, MaxValue, d.Read(1), "clamped to 12 bits")
	assert.Equal(t, 0, d.Read(2))
	assert.Equal(t, 0, d.Read(2))
	assert.Equal(t, 0, d.Read(3))
	assert.Equal(t, []int{2, 3}, errs, "each failure reported once")

	writeChannel(t, dir, 2, "17")
	assert.Equal(t, 17, d.Read(2))
	writeChannel(t, dir, 2, "x")
	d.Read(2)
	assert.Equal(t, []int{2, 3, 2}, errs, "failure after recovery reported again")

	require.NoError(t, d.Close())
	assert.False(t, d.IsConnected())
}

func TestIIO_ConnectMissing(t *testing.T) {
	d := NewIIO(filepath.Join(t.TempDir(), "missing"), nil)
	assert.Error(t, d.Connect())
}
