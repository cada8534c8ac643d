package driver

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/rollupcfg"
)

func testConfig() *rollupcfg.Config {
	return &rollupcfg.Config{
		L1GenesisBlock:  0,
		BatchSize:       2,
		SafeOffset:      32,
		FinalizedOffset: 64,
	}
}

// Scenario 5 + P10: head at L2 timestamp 1000, L1 block timestamp 1048
// requires three filler blocks (1012, 1024, 1036) before the real block at
// 1048, with sequence numbers 0,1,2,3 and no gaps.
func TestProposeStep_Scenario5FillersAndSequenceNumbers(t *testing.T) {
	head := ethtypes.L2BlockRef{Number: 5, Hash: common.HexToHash("0x05"), Time: 1000}
	l1Block := &ethtypes.L1Block{Number: 100, Hash: common.HexToHash("0x100"), Timestamp: 1048}
	attrs := ethtypes.L1Attributes{Number: 100, Hash: l1Block.Hash, Timestamp: 1048, BaseFee: big.NewInt(1), BlobBaseFee: big.NewInt(1)}

	engine := newFakeEngineControl(head.Number, head.Hash)
	p := &Proposer{engine: engine, cfg: testConfig()}

	refs, err := p.ProposeStep(context.Background(), head, ethtypes.L2BlockRef{}, ethtypes.L2BlockRef{}, l1Block, attrs, 0, nil)
	require.NoError(t, err)
	require.Len(t, refs, 4)

	wantTimes := []uint64{1012, 1024, 1036, 1048}
	for i, ref := range refs {
		require.Equal(t, wantTimes[i], ref.Time, "block %d timestamp", i)
		require.Equal(t, uint64(i), ref.SequenceNumber, "block %d sequence number", i)
		require.Equal(t, head.Number+uint64(i)+1, ref.Number)
	}

	// Sequence numbers reset at the next epoch's first block.
	nextHead := refs[len(refs)-1]
	nextL1Block := &ethtypes.L1Block{Number: 101, Hash: common.HexToHash("0x101"), Timestamp: nextHead.Time + 12}
	nextAttrs := ethtypes.L1Attributes{Number: 101, Hash: nextL1Block.Hash, Timestamp: nextL1Block.Timestamp, BaseFee: big.NewInt(1), BlobBaseFee: big.NewInt(1)}
	nextRefs, err := p.ProposeStep(context.Background(), nextHead, ethtypes.L2BlockRef{}, ethtypes.L2BlockRef{}, nextL1Block, nextAttrs, 0, nil)
	require.NoError(t, err)
	require.Len(t, nextRefs, 1)
	require.Equal(t, uint64(0), nextRefs[0].SequenceNumber)
}

// With no timestamp gap beyond one block interval, no filler is inserted and
// the real block alone carries sequence number 0.
func TestProposeStep_NoFillersNeeded(t *testing.T) {
	head := ethtypes.L2BlockRef{Number: 5, Hash: common.HexToHash("0x05"), Time: 1000}
	l1Block := &ethtypes.L1Block{Number: 100, Hash: common.HexToHash("0x100"), Timestamp: 1012}
	attrs := ethtypes.L1Attributes{Number: 100, Hash: l1Block.Hash, Timestamp: 1012, BaseFee: big.NewInt(1), BlobBaseFee: big.NewInt(1)}

	engine := newFakeEngineControl(head.Number, head.Hash)
	p := &Proposer{engine: engine, cfg: testConfig()}

	refs, err := p.ProposeStep(context.Background(), head, ethtypes.L2BlockRef{}, ethtypes.L2BlockRef{}, l1Block, attrs, 0, nil)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, uint64(0), refs[0].SequenceNumber)
}

// P12: replaying the same step from the same starting state twice, against
// independent fake engines, is idempotent: both runs produce identical
// block hashes and sequence numbers.
func TestProposeStep_ReplayIsIdempotent(t *testing.T) {
	head := ethtypes.L2BlockRef{Number: 5, Hash: common.HexToHash("0x05"), Time: 1000}
	l1Block := &ethtypes.L1Block{Number: 100, Hash: common.HexToHash("0x100"), Timestamp: 1048}
	attrs := ethtypes.L1Attributes{Number: 100, Hash: l1Block.Hash, Timestamp: 1048, BaseFee: big.NewInt(1), BlobBaseFee: big.NewInt(1)}

	run := func() []ethtypes.L2BlockRef {
		engine := newFakeEngineControl(head.Number, head.Hash)
		p := &Proposer{engine: engine, cfg: testConfig()}
		refs, err := p.ProposeStep(context.Background(), head, ethtypes.L2BlockRef{}, ethtypes.L2BlockRef{}, l1Block, attrs, 0, nil)
		require.NoError(t, err)
		return refs
	}

	first := run()
	second := run()
	require.Equal(t, first, second)
}

func TestProposeStep_RejectsNonZeroEpochStart(t *testing.T) {
	head := ethtypes.L2BlockRef{Number: 5, Hash: common.HexToHash("0x05"), Time: 1000}
	l1Block := &ethtypes.L1Block{Number: 100, Hash: common.HexToHash("0x100"), Timestamp: 1012}
	attrs := ethtypes.L1Attributes{Number: 100, Hash: l1Block.Hash, Timestamp: 1012, BaseFee: big.NewInt(1), BlobBaseFee: big.NewInt(1)}

	engine := newFakeEngineControl(head.Number, head.Hash)
	p := &Proposer{engine: engine, cfg: testConfig()}

	_, err := p.ProposeStep(context.Background(), head, ethtypes.L2BlockRef{}, ethtypes.L2BlockRef{}, l1Block, attrs, 3, nil)
	require.Error(t, err)
}
