package ethtypes

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// BlockID identifies a block by number and hash, without any other header
// fields. It is the minimal reference the Epoch/Head Tracker deals in, per
// spec.md §9's note that head/safe/finalized are identifiers, never owning
// references.
type BlockID struct {
	Number uint64
	Hash   common.Hash
}

func (id BlockID) String() string {
	return fmt.Sprintf("%s:%d", id.Hash.TerminalString(), id.Number)
}

// L1BlockRef is a lightweight reference to an L1 block, enough to drive
// parent-hash reorg checks and epoch bookkeeping without holding the full
// L1Block in memory.
type L1BlockRef struct {
	Number     uint64
	Hash       common.Hash
	ParentHash common.Hash
	Time       uint64
}

func (r L1BlockRef) ID() BlockID { return BlockID{Number: r.Number, Hash: r.Hash} }

func (r L1BlockRef) String() string {
	return fmt.Sprintf("%s:%d", r.Hash.TerminalString(), r.Number)
}

// L1BlockRefFromBlock derives an L1BlockRef from a fully resolved L1Block.
func L1BlockRefFromBlock(b *L1Block) L1BlockRef {
	return L1BlockRef{
		Number:     b.Number,
		Hash:       b.Hash,
		ParentHash: b.ParentHash,
		Time:       b.Timestamp,
	}
}

// L2BlockRef is a lightweight reference to an L2 block, carrying the L1
// origin and epoch sequence number needed by the Epoch/Head Tracker and the
// Filler Scheduler.
type L2BlockRef struct {
	Number         uint64
	Hash           common.Hash
	ParentHash     common.Hash
	Time           uint64
	L1Origin       BlockID
	SequenceNumber uint64
}

func (r L2BlockRef) ID() BlockID { return BlockID{Number: r.Number, Hash: r.Hash} }

func (r L2BlockRef) String() string {
	return fmt.Sprintf("%s:%d", r.Hash.TerminalString(), r.Number)
}
