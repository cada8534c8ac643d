// Package ethtypes holds the plain data model the derivation pipeline
// operates on (spec.md §3): canonical L1 blocks/transactions/receipts/logs,
// L2 block references, L1 attributes, and the execution-engine wire types.
// Hashes and addresses are represented directly as go-ethereum's
// common.Hash/common.Address rather than renamed wrapper types, following
// the teacher's own convention of never re-wrapping go-ethereum's primitive
// types.
package ethtypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// L1Log is one EVM log entry attached to an L1 transaction receipt.
type L1Log struct {
	Address  common.Address
	Topics   []common.Hash
	Data     []byte
	LogIndex uint32
	Removed  bool
}

// L1Tx is an L1 transaction paired with its receipt outcome, as consumed by
// the Ethscription Extractor. Status mirrors the receipt's status field
// (true = success); a failed transaction contributes no ethscription ops
// regardless of its input or logs (spec.md §4.C, invariant P5).
type L1Tx struct {
	Hash   common.Hash
	Index  uint32
	From   common.Address
	To     *common.Address
	Input  []byte
	Value  *big.Int
	Status bool
	Logs   []L1Log
}

// L1Block is an immutable, fully-resolved L1 block: header fields plus every
// transaction paired with its receipt logs. It is the sole input to the
// Ethscription Extractor (together with the enabled-ESIP configuration) and
// is never mutated after construction.
type L1Block struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Timestamp  uint64
	BaseFee    *big.Int
	// MixHash is the L1 block's mix digest, the prev_randao source for the
	// L2 block(s) derived from it.
	MixHash common.Hash
	// ParentBeaconBlockRoot is set on post-Cancun L1 blocks and threaded
	// through to engine_newPayloadV3 / forkchoiceUpdatedV3.
	ParentBeaconBlockRoot *common.Hash

	Transactions []L1Tx
}

// ID returns the (number, hash) identity of the block.
func (b *L1Block) ID() BlockID {
	return BlockID{Number: b.Number, Hash: b.Hash}
}
