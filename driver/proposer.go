package driver

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ethscriptions-protocol/derivation/derive"
	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/rollupcfg"
	"github.com/ethscriptions-protocol/derivation/sources"
)

// feeRecipient is the fixed zero-value fee recipient: with no sequencer
// extracting priority fees, there is nobody to pay (spec.md §4.E step 1).
var feeRecipient common.Address

// defaultGasLimit is the per-block gas limit the proposer asks the engine
// to build with; the L2 execution client's own limit still applies as a
// ceiling.
var defaultGasLimit = hexutil.Uint64(30_000_000)

// engineAPI is the slice of sources.EngineClient's behavior the Proposer
// needs. Declaring it here (rather than depending on *sources.EngineClient
// directly) lets tests drive the four-call handshake against a hand-written
// fake instead of a live engine, in the teacher's FakeEngineControl style.
type engineAPI interface {
	ForkchoiceUpdated(ctx context.Context, state ethtypes.ForkchoiceState, attrs *ethtypes.PayloadAttributes) (*ethtypes.ForkchoiceResponse, error)
	GetPayload(ctx context.Context, id ethtypes.PayloadID, useV3 bool) (*ethtypes.ExecutionPayload, error)
	NewPayload(ctx context.Context, payload *ethtypes.ExecutionPayload, parentBeaconRoot *common.Hash) (*ethtypes.PayloadStatus, error)
}

// Proposer drives the engine through the build/validate/commit handshake
// for one L2 block at a time (spec.md §4.E), internally invoking the Filler
// Scheduler before the real block of a step.
type Proposer struct {
	engine engineAPI
	cfg    *rollupcfg.Config
}

func NewProposer(engine *sources.EngineClient, cfg *rollupcfg.Config) *Proposer {
	return &Proposer{engine: engine, cfg: cfg}
}

// ProposeStep builds every filler block required to close the timestamp gap
// between head and the L1 block's timestamp, then proposes the real block.
// Fillers and the real block share one epoch; sequence numbers increment
// across all of them without gaps (P10).
func (p *Proposer) ProposeStep(ctx context.Context, head, safe, finalized ethtypes.L2BlockRef, l1Block *ethtypes.L1Block, attrs ethtypes.L1Attributes, baseSeq uint64, ops []*types.DepositTx) ([]ethtypes.L2BlockRef, error) {
	// P10: every epoch's first derived block (filler or real) carries
	// sequence number 0; the caller is expected to pass baseSeq accordingly.
	epochStartAttrs := attrs
	epochStartAttrs.SequenceNumber = baseSeq
	if !epochStartAttrs.Epoch() {
		return nil, fmt.Errorf("driver: %w: epoch must begin at sequence number 0, got %d", derive.ErrProtocolFatal, baseSeq)
	}

	n, err := derive.FillerCount(head.Time, l1Block.Timestamp)
	if err != nil {
		return nil, err
	}

	var out []ethtypes.L2BlockRef
	cur := head
	seq := baseSeq

	for _, ts := range derive.FillerTimestamps(head.Time, n) {
		fillerAttrs := attrs
		fillerAttrs.SequenceNumber = seq
		ref, err := p.proposeOne(ctx, cur, safe, finalized, ts, fillerAttrs, l1Block, nil)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
		cur = ref
		seq++
	}

	realAttrs := attrs
	realAttrs.SequenceNumber = seq
	ref, err := p.proposeOne(ctx, cur, safe, finalized, l1Block.Timestamp, realAttrs, l1Block, ops)
	if err != nil {
		return nil, err
	}
	out = append(out, ref)
	return out, nil
}

func (p *Proposer) proposeOne(ctx context.Context, head, safe, finalized ethtypes.L2BlockRef, timestamp uint64, attrs ethtypes.L1Attributes, l1Block *ethtypes.L1Block, ops []*types.DepositTx) (ethtypes.L2BlockRef, error) {
	attrsTx, err := derive.BuildAttributesDepositTx(attrs)
	if err != nil {
		return ethtypes.L2BlockRef{}, err
	}

	block := &ethtypes.L2Block{
		Number:                head.Number + 1,
		ParentHash:            head.Hash,
		Timestamp:             timestamp,
		PrevRandao:            l1Block.MixHash,
		ParentBeaconBlockRoot: l1Block.ParentBeaconBlockRoot,
		L1Attributes:          attrs,
		SequenceNumber:        attrs.SequenceNumber,
		EthscriptionTxs:       ops,
	}

	txs := make([]hexutil.Bytes, 0, 1+len(ops))
	encodedAttrsTx, err := encodeDepositTx(attrsTx)
	if err != nil {
		return ethtypes.L2BlockRef{}, err
	}
	txs = append(txs, encodedAttrsTx)
	for _, tx := range ops {
		enc, err := encodeDepositTx(tx)
		if err != nil {
			return ethtypes.L2BlockRef{}, err
		}
		txs = append(txs, enc)
	}

	payloadAttrs := ethtypes.PayloadAttributesFromL2Block(block, feeRecipient)
	// The caller-assembled transaction list is forced through NoTxPool so the
	// engine never adds transactions of its own (spec.md §4.E step 1).
	payloadAttrs.Transactions = txs
	payloadAttrs.NoTxPool = true
	payloadAttrs.GasLimit = &defaultGasLimit

	fcState := ethtypes.ForkchoiceState{
		HeadBlockHash:      head.Hash,
		SafeBlockHash:      safe.Hash,
		FinalizedBlockHash: finalized.Hash,
	}
	fcResp, err := p.engine.ForkchoiceUpdated(ctx, fcState, payloadAttrs)
	if err != nil {
		return ethtypes.L2BlockRef{}, err
	}
	if fcResp.PayloadID == nil {
		return ethtypes.L2BlockRef{}, fmt.Errorf("driver: %w: forkchoiceUpdated returned no payload id", derive.ErrProtocolFatal)
	}

	useV3 := block.ParentBeaconBlockRoot != nil
	payload, err := p.engine.GetPayload(ctx, *fcResp.PayloadID, useV3)
	if err != nil {
		return ethtypes.L2BlockRef{}, err
	}

	status, err := p.engine.NewPayload(ctx, payload, block.ParentBeaconBlockRoot)
	if err != nil {
		return ethtypes.L2BlockRef{}, err
	}
	if status.Status != ethtypes.PayloadValid {
		return ethtypes.L2BlockRef{}, fmt.Errorf("driver: %w: newPayload status %s", derive.ErrProtocolFatal, status.Status)
	}
	if status.LatestValidHash == nil || *status.LatestValidHash != payload.BlockHash {
		return ethtypes.L2BlockRef{}, fmt.Errorf("driver: %w: latestValidHash mismatch", derive.ErrProtocolFatal)
	}

	commitState := ethtypes.ForkchoiceState{
		HeadBlockHash:      payload.BlockHash,
		SafeBlockHash:      safe.Hash,
		FinalizedBlockHash: finalized.Hash,
	}
	commitResp, err := p.engine.ForkchoiceUpdated(ctx, commitState, nil)
	if err != nil {
		return ethtypes.L2BlockRef{}, err
	}
	if commitResp.PayloadStatus.Status != ethtypes.PayloadValid {
		return ethtypes.L2BlockRef{}, fmt.Errorf("driver: %w: commit forkchoiceUpdated status %s", derive.ErrProtocolFatal, commitResp.PayloadStatus.Status)
	}

	l1Origin := ethtypes.BlockID{Number: attrs.Number, Hash: attrs.Hash}
	return ethtypes.L2BlockRefFromPayload(payload, l1Origin, attrs.SequenceNumber), nil
}

// encodeDepositTx RLP-encodes a deposit transaction into its typed-tx wire
// form, the shape the engine API's transactions array expects.
func encodeDepositTx(tx *types.DepositTx) (hexutil.Bytes, error) {
	wrapped := types.NewTx(tx)
	return wrapped.MarshalBinary()
}
