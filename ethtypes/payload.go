package ethtypes

import (
	"github.com/ethereum/go-ethereum/beacon/engine"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// The Engine Client speaks go-ethereum's own beacon/engine wire types
// directly for everything except payload attributes, where the driver needs
// three sequencer extensions (transactions, noTxPool, gasLimit) that
// upstream go-ethereum does not define — the same extension OP-Stack clients
// make to drive a deterministic block from a pre-built transaction list
// instead of the node's own mempool.
type (
	ExecutionPayload   = engine.ExecutableData
	ForkchoiceState    = engine.ForkchoiceStateV1
	ForkchoiceResponse = engine.ForkChoiceResponse
	PayloadStatus      = engine.PayloadStatusV1
	PayloadID          = engine.PayloadID
	Withdrawal         = types.Withdrawal
)

// Engine payload status strings, re-exported for callers that only need to
// compare against them.
const (
	PayloadValid        = engine.VALID
	PayloadInvalid      = engine.INVALID
	PayloadSyncing      = engine.SYNCING
	PayloadAccepted     = engine.ACCEPTED
	PayloadInvalidBlock = engine.INVALIDBLOCKHASH
)

// PayloadAttributes extends go-ethereum's PayloadAttributesV1 with the
// sequencer fields the L2 execution engine requires so it builds exactly the
// deterministic transaction list the proposer hands it.
type PayloadAttributes struct {
	Timestamp             uint64             `json:"timestamp"`
	Random                common.Hash        `json:"prevRandao"`
	SuggestedFeeRecipient common.Address     `json:"suggestedFeeRecipient"`
	Withdrawals           []*Withdrawal      `json:"withdrawals"`
	BeaconRoot            *common.Hash       `json:"parentBeaconBlockRoot,omitempty"`

	Transactions []hexutil.Bytes `json:"transactions,omitempty"`
	NoTxPool     bool            `json:"noTxPool,omitempty"`
	GasLimit     *hexutil.Uint64 `json:"gasLimit,omitempty"`
}

// PayloadAttributesFromL2Block builds the engine_forkchoiceUpdated payload
// attributes for the given block. Withdrawals is always an empty, non-nil
// slice: the L2 execution engine here has no validator withdrawal queue, but
// the post-Shanghai engine API requires the field to be present.
func PayloadAttributesFromL2Block(b *L2Block, feeRecipient common.Address) *PayloadAttributes {
	return &PayloadAttributes{
		Timestamp:             b.Timestamp,
		Random:                b.PrevRandao,
		SuggestedFeeRecipient: feeRecipient,
		Withdrawals:           []*Withdrawal{},
		BeaconRoot:            b.ParentBeaconBlockRoot,
	}
}

// L2BlockRefFromPayload derives an L2BlockRef from an engine-returned
// execution payload, given the L1 origin and sequence number the payload was
// built for.
func L2BlockRefFromPayload(p *ExecutionPayload, l1Origin BlockID, seqNum uint64) L2BlockRef {
	return L2BlockRef{
		Number:         p.Number,
		Hash:           p.BlockHash,
		ParentHash:     p.ParentHash,
		Time:           p.Timestamp,
		L1Origin:       l1Origin,
		SequenceNumber: seqNum,
	}
}
