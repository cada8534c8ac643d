package driver

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/require"

	"github.com/ethscriptions-protocol/derivation/derive"
	"github.com/ethscriptions-protocol/derivation/ethtypes"
)

// Scenario 6: a reorg is detected and the cache invalidated before any
// mutation is attempted for the mismatching block or its descendants — the
// importer never calls importBlock for block n once checkReorg rejects it.
func TestImporter_CheckReorg_DetectsBeforeMutation(t *testing.T) {
	im := &Importer{
		cfg:     testConfig(),
		log:     log.NewLogger(log.DiscardHandler()),
		metrics: nil,
		cache:   newBlockCache(),
	}

	parent := &ethtypes.L1Block{Number: 10, Hash: common.HexToHash("0xaaaa")}
	im.cache.PutL1(parent)
	im.cache.PutL2(ethtypes.L2BlockRef{Number: 50, L1Origin: ethtypes.BlockID{Number: 10}}, 10)
	im.cache.PutL2(ethtypes.L2BlockRef{Number: 51, L1Origin: ethtypes.BlockID{Number: 11}}, 11)
	im.cache.PutL1(&ethtypes.L1Block{Number: 11, Hash: common.HexToHash("0xbbbb")})

	// Block 11 on the canonical chain now has a different parent than what
	// the cache recorded for block 10: a reorg.
	reorgedBlock := &ethtypes.L1Block{Number: 11, Hash: common.HexToHash("0xcccc"), ParentHash: common.HexToHash("0xdddd")}

	err := im.checkReorg(11, reorgedBlock)
	require.Error(t, err)
	require.True(t, derive.IsReorg(err))

	// P11: no cache entry survives for L1 number 11 or the L2 block derived
	// from it; block 10 and its L2 descendant are untouched.
	if _, ok := im.cache.L1(11); ok {
		t.Fatal("L1 block 11 should have been invalidated")
	}
	if _, ok := im.cache.L2(51); ok {
		t.Fatal("L2 block 51 (origin 11) should have been invalidated")
	}
	if _, ok := im.cache.L1(10); !ok {
		t.Fatal("L1 block 10 should be untouched")
	}
	if _, ok := im.cache.L2(50); !ok {
		t.Fatal("L2 block 50 (origin 10) should be untouched")
	}
}

func TestImporter_CheckReorg_NoOpWhenParentMatches(t *testing.T) {
	im := &Importer{
		cfg:     testConfig(),
		log:     log.NewLogger(log.DiscardHandler()),
		metrics: nil,
		cache:   newBlockCache(),
	}

	parentHash := common.HexToHash("0xaaaa")
	im.cache.PutL1(&ethtypes.L1Block{Number: 10, Hash: parentHash})

	block := &ethtypes.L1Block{Number: 11, Hash: common.HexToHash("0xbbbb"), ParentHash: parentHash}
	err := im.checkReorg(11, block)
	require.NoError(t, err)
	if _, ok := im.cache.L1(10); !ok {
		t.Fatal("unrelated cache entries must not be touched on a non-reorg step")
	}
}

func TestImporter_CheckReorg_SkipsAtGenesis(t *testing.T) {
	im := &Importer{
		cfg:   testConfig(),
		log:   log.NewLogger(log.DiscardHandler()),
		cache: newBlockCache(),
	}
	err := im.checkReorg(0, &ethtypes.L1Block{Number: 0})
	require.NoError(t, err)
}
