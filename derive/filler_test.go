package derive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// P8: filler math for the literal gap values from spec.md §8.
func TestFillerCount(t *testing.T) {
	cases := []struct {
		gap  uint64
		want uint64
	}{
		{12, 0},
		{13, 1},
		{23, 1},
		{24, 1},
		{25, 2},
	}
	for _, c := range cases {
		n, err := FillerCount(1000, 1000+c.gap)
		require.NoError(t, err)
		require.Equalf(t, c.want, n, "gap=%d", c.gap)
	}
}

// Scenario 5: head at 1000, new block at 1048 -> three fillers at 1012, 1024, 1036.
func TestFillerTimestamps_Scenario5(t *testing.T) {
	n, err := FillerCount(1000, 1048)
	require.NoError(t, err)
	require.Equal(t, uint64(3), n)

	ts := FillerTimestamps(1000, n)
	require.Equal(t, []uint64{1012, 1024, 1036}, ts)
}

func TestFillerCount_CapExceeded(t *testing.T) {
	_, err := FillerCount(0, 1_300_000)
	require.Error(t, err)
	require.True(t, IsConfigurationFatal(err))
}

func TestFillerCount_NonIncreasingTimestamp(t *testing.T) {
	_, err := FillerCount(1000, 1000)
	require.Error(t, err)
	require.True(t, IsProtocolFatal(err))
}
