package ethtypes

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// L2Block is the payload-construction-time view of a derived L2 block
// (spec.md §3): everything the Attributes Transaction Builder and L2 Block
// Proposer need to drive the execution engine for a single block, before the
// engine returns the final ExecutionPayload.
type L2Block struct {
	Number     uint64
	ParentHash common.Hash
	Timestamp  uint64

	// PrevRandao is copied from the originating L1 block's mix digest.
	PrevRandao common.Hash

	// ParentBeaconBlockRoot is threaded through from the L1 block when set,
	// selecting the V3 (Ecotone) engine API family.
	ParentBeaconBlockRoot *common.Hash

	L1Attributes L1Attributes

	// SequenceNumber is this block's position within its L1 epoch: 0 for the
	// epoch's first block (the first filler block, or the block carrying the
	// L1 block's ops when no filler precedes it), incrementing by one for
	// every following block of the same epoch.
	SequenceNumber uint64

	// EthscriptionTxs is the ordered list of deposit transactions carrying
	// this block's ethscription operations, preceded implicitly by the L1
	// attributes deposit transaction when the payload is assembled.
	EthscriptionTxs []*types.DepositTx
}
