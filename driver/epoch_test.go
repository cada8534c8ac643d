package driver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/rollupcfg"
)

func TestEpochTracker_RecomputeAppliesSafeAndFinalizedOffsets(t *testing.T) {
	cfg := &rollupcfg.Config{SafeOffset: 3, FinalizedOffset: 6}
	tracker := NewEpochTracker(cfg)
	c := newBlockCache()

	for l1n := uint64(0); l1n <= 10; l1n++ {
		c.PutL2(ethtypes.L2BlockRef{
			Number:   l1n,
			L1Origin: ethtypes.BlockID{Number: l1n},
		}, l1n)
	}

	tracker.Recompute(c)

	require.Equal(t, uint64(10), tracker.Head().Number)
	require.Equal(t, uint64(7), tracker.Safe().Number)
	require.Equal(t, uint64(4), tracker.Finalized().Number)
}

func TestEpochTracker_RecomputeFallsBackToOldestWhenOffsetUncovered(t *testing.T) {
	cfg := &rollupcfg.Config{SafeOffset: 100, FinalizedOffset: 200}
	tracker := NewEpochTracker(cfg)
	c := newBlockCache()

	c.PutL2(ethtypes.L2BlockRef{Number: 5, L1Origin: ethtypes.BlockID{Number: 5}}, 5)
	c.PutL2(ethtypes.L2BlockRef{Number: 6, L1Origin: ethtypes.BlockID{Number: 6}}, 6)

	tracker.Recompute(c)

	require.Equal(t, uint64(6), tracker.Head().Number)
	require.Equal(t, uint64(5), tracker.Safe().Number)
	require.Equal(t, uint64(5), tracker.Finalized().Number)
}
