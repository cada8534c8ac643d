package ethtypes

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// L1Attributes is the set of L1 metadata seeded into every L2 block via the
// attributes deposit transaction (spec.md §3, §4.D). It is one-to-one with
// the packed calldata layout the Attributes Transaction Builder produces.
type L1Attributes struct {
	Number    uint64
	Hash      common.Hash
	Timestamp uint64

	BaseFee           *big.Int
	BlobBaseFee       *big.Int
	BaseFeeScalar     uint32
	BlobBaseFeeScalar uint32

	// SequenceNumber resets to 0 at the first L2 block of each L1 epoch and
	// increases monotonically (including across filler blocks) within the
	// epoch.
	SequenceNumber uint64

	// BatcherHash is the version-0 batcher hash: a zero-left-padded address.
	// The core does not choose a batcher; this field is carried through
	// configuration for calldata compatibility with the L2 predeploy.
	BatcherHash common.Hash
}

// Epoch reports whether this is the first L2 block of a new L1 epoch.
func (a L1Attributes) Epoch() bool { return a.SequenceNumber == 0 }
