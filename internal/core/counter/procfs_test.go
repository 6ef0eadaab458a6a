package counter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const netDev = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
    lo: 9999999     100    0    0    0     0          0         0  9999999     100    0    0    0     0       0          0
  eth0:    1000      10    0    0    0     0          0         0      500       5    0    0    0     0       0          0
wwan0:2048 20 0 0 0 0 0 0 1024 10 0 0 0 0 0 0
 short: 1 2 3
`

func writeNetDev(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dev")
	require.NoError(t, os.WriteFile(path, []byte(netDev), 0o644))
	return path
}

func TestProcNetDevSumsAllButLoopback(t *testing.T) {
	src := NewProcNetDev(writeNetDev(t), nil)

	rx, tx, err := src.Totals()
	require.NoError(t, err)
	assert.Equal(t, uint64(3048), rx)
	assert.Equal(t, uint64(1524), tx)
}

func TestProcNetDevInterfaceFilter(t *testing.T) {
	src := NewProcNetDev(writeNetDev(t), []string{"wwan0"})

	rx, tx, err := src.Totals()
	require.NoError(t, err)
	assert.Equal(t, uint64(2048), rx)
	assert.Equal(t, uint64(1024), tx)
}

func TestProcNetDevMissingFileIsUnsupported(t *testing.T) {
	src := NewProcNetDev(filepath.Join(t.TempDir(), "missing"), nil)

	_, _, err := src.Totals()
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestProcNetDevInterfacePrefix(t *testing.T) {
	src := NewProcNetDev(writeNetDev(t), []string{"wwan*", "eth0"})

	rx, tx, err := src.Totals()
	require.NoError(t, err)
	assert.Equal(t, uint64(3048), rx)
	assert.Equal(t, uint64(1524), tx)
}

func TestMatchAny(t *testing.T) {
	assert.True(t, matchAny("wwan1", []string{"wwan*"}))
	assert.True(t, matchAny("eth0", []string{"eth0"}))
	assert.False(t, matchAny("eth01", []string{"eth0"}))
	assert.False(t, matchAny("lo", []string{"wwan*", "eth0"}))
	assert.True(t, matchAny("rmnet_data0", []string{"*"}))
}
