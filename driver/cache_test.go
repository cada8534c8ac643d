package driver

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
)

// P11: after a reorg invalidates L1 number N, the cache retains no entry for
// N or any L2 block derived from N or a later L1 number.
func TestBlockCache_InvalidateFromDropsAtAndAfterBoundary(t *testing.T) {
	c := newBlockCache()

	for n := uint64(10); n <= 13; n++ {
		c.PutL1(&ethtypes.L1Block{Number: n, Hash: common.BigToHash(new(big.Int).SetUint64(n))})
	}
	c.PutL2(ethtypes.L2BlockRef{Number: 100, L1Origin: ethtypes.BlockID{Number: 10}}, 10)
	c.PutL2(ethtypes.L2BlockRef{Number: 101, L1Origin: ethtypes.BlockID{Number: 11}}, 11)
	c.PutL2(ethtypes.L2BlockRef{Number: 102, L1Origin: ethtypes.BlockID{Number: 12}}, 12)
	c.PutL2(ethtypes.L2BlockRef{Number: 103, L1Origin: ethtypes.BlockID{Number: 13}}, 13)

	c.InvalidateFrom(12)

	if _, ok := c.L1(10); !ok {
		t.Fatal("L1 block 10 should survive invalidation from 12")
	}
	if _, ok := c.L1(11); !ok {
		t.Fatal("L1 block 11 should survive invalidation from 12")
	}
	if _, ok := c.L1(12); ok {
		t.Fatal("L1 block 12 should be dropped by invalidation from 12")
	}
	if _, ok := c.L1(13); ok {
		t.Fatal("L1 block 13 should be dropped by invalidation from 12")
	}

	if _, ok := c.L2(100); !ok {
		t.Fatal("L2 block 100 (origin 10) should survive")
	}
	if _, ok := c.L2(101); !ok {
		t.Fatal("L2 block 101 (origin 11) should survive")
	}
	if _, ok := c.L2(102); ok {
		t.Fatal("L2 block 102 (origin 12) should be dropped")
	}
	if _, ok := c.L2(103); ok {
		t.Fatal("L2 block 103 (origin 13) should be dropped")
	}
}

func TestBlockCache_PruneKeepsFinalizedWindow(t *testing.T) {
	c := newBlockCache()
	cfg := testConfig()

	for n := uint64(0); n < 200; n++ {
		c.PutL1(&ethtypes.L1Block{Number: n})
		c.PutL2(ethtypes.L2BlockRef{Number: n, L1Origin: ethtypes.BlockID{Number: n}}, n)
	}

	c.Prune(199, cfg)

	keep := uint64(199) - cfg.FinalizedOffset - 1
	if _, ok := c.L1(keep - 1); ok {
		t.Fatal("block below the retention boundary should be pruned")
	}
	if _, ok := c.L1(keep); !ok {
		t.Fatal("block at the retention boundary should survive")
	}
	require.Len(t, c.SortedL2Numbers(), int(199-keep+1))
}
