package sources

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethscriptions-protocol/derivation/derive"
	"github.com/ethscriptions-protocol/derivation/ethtypes"
)

// L2Client reads already-built L2 blocks back over plain JSON-RPC, the
// unauthenticated sibling of the Engine Client's authrpc port. The Startup
// Anchor (spec.md §4.J) uses it to recover the L1Attributes a given L2
// block was built from, by decoding the first transaction of every L2
// block: the attributes deposit transaction EncodeL1Attributes produced.
type L2Client struct {
	rpc *ethclient.Client
	log log.Logger
}

// NewL2Client dials rpcURL, the L2 execution client's regular (non-engine)
// JSON-RPC endpoint.
func NewL2Client(ctx context.Context, rpcURL string, l log.Logger) (*L2Client, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("sources: dial L2 RPC: %w", err)
	}
	return &L2Client{rpc: rpc, log: l}, nil
}

// BlockNumber returns the L2 execution client's current chain head number.
func (c *L2Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.rpc.BlockNumber(ctx)
}

// BlockRefByNumber fetches L2 block number and recovers the L1Attributes it
// was derived from by decoding its first transaction's calldata. Every L2
// block, real or filler, begins with an attributes deposit transaction
// (spec.md §4.D), so this never falls through to a later transaction.
func (c *L2Client) BlockRefByNumber(ctx context.Context, number uint64) (ethtypes.L2BlockRef, ethtypes.L1Attributes, error) {
	block, err := c.rpc.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return ethtypes.L2BlockRef{}, ethtypes.L1Attributes{}, fmt.Errorf("sources: fetch L2 block %d: %w", number, err)
	}
	if block == nil {
		return ethtypes.L2BlockRef{}, ethtypes.L1Attributes{}, fmt.Errorf("sources: L2 block %d: %w", number, derive.ErrNotReady)
	}
	txs := block.Transactions()
	if len(txs) == 0 {
		return ethtypes.L2BlockRef{}, ethtypes.L1Attributes{}, fmt.Errorf("sources: %w: L2 block %d has no attributes transaction", derive.ErrProtocolFatal, number)
	}
	attrs, err := derive.DecodeL1Attributes(txs[0].Data())
	if err != nil {
		return ethtypes.L2BlockRef{}, ethtypes.L1Attributes{}, fmt.Errorf("sources: %w: decode attributes tx in L2 block %d: %w", derive.ErrProtocolFatal, number, err)
	}

	ref := ethtypes.L2BlockRef{
		Number:         block.NumberU64(),
		Hash:           block.Hash(),
		ParentHash:     block.ParentHash(),
		Time:           block.Time(),
		L1Origin:       ethtypes.BlockID{Number: attrs.Number, Hash: attrs.Hash},
		SequenceNumber: attrs.SequenceNumber,
	}
	return ref, attrs, nil
}
