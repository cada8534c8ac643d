package driver

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
)

// fakeEngineControl is a hand-written stand-in for the execution engine,
// following the teacher's FakeEngineControl pattern: it implements engineAPI
// well enough to drive the Proposer's build/validate/commit handshake
// deterministically, without a real engine process.
type fakeEngineControl struct {
	headHash common.Hash
	nextNum  uint64

	pending map[ethtypes.PayloadID]*ethtypes.PayloadAttributes
}

func newFakeEngineControl(headNumber uint64, headHash common.Hash) *fakeEngineControl {
	return &fakeEngineControl{
		headHash: headHash,
		nextNum:  headNumber + 1,
		pending:  make(map[ethtypes.PayloadID]*ethtypes.PayloadAttributes),
	}
}

func (f *fakeEngineControl) ForkchoiceUpdated(ctx context.Context, state ethtypes.ForkchoiceState, attrs *ethtypes.PayloadAttributes) (*ethtypes.ForkchoiceResponse, error) {
	if attrs == nil {
		f.headHash = state.HeadBlockHash
		return &ethtypes.ForkchoiceResponse{PayloadStatus: ethtypes.PayloadStatus{Status: ethtypes.PayloadValid}}, nil
	}
	id := payloadIDFor(f.nextNum, attrs.Timestamp)
	f.pending[id] = attrs
	return &ethtypes.ForkchoiceResponse{
		PayloadStatus: ethtypes.PayloadStatus{Status: ethtypes.PayloadValid},
		PayloadID:     &id,
	}, nil
}

func (f *fakeEngineControl) GetPayload(ctx context.Context, id ethtypes.PayloadID, useV3 bool) (*ethtypes.ExecutionPayload, error) {
	attrs, ok := f.pending[id]
	if !ok {
		return nil, fmt.Errorf("fake engine: unknown payload id %x", id)
	}
	number := f.nextNum
	parent := f.headHash
	hash := fakeBlockHash(number, parent, attrs.Timestamp)
	txs := make([][]byte, len(attrs.Transactions))
	for i, tx := range attrs.Transactions {
		txs[i] = tx
	}
	return &ethtypes.ExecutionPayload{
		Number:       number,
		ParentHash:   parent,
		Timestamp:    attrs.Timestamp,
		BlockHash:    hash,
		Transactions: txs,
	}, nil
}

func (f *fakeEngineControl) NewPayload(ctx context.Context, payload *ethtypes.ExecutionPayload, parentBeaconRoot *common.Hash) (*ethtypes.PayloadStatus, error) {
	f.nextNum = payload.Number + 1
	h := payload.BlockHash
	return &ethtypes.PayloadStatus{Status: ethtypes.PayloadValid, LatestValidHash: &h}, nil
}

func payloadIDFor(number, timestamp uint64) ethtypes.PayloadID {
	var id ethtypes.PayloadID
	binary.BigEndian.PutUint64(id[:], number^timestamp)
	return id
}

func fakeBlockHash(number uint64, parent common.Hash, timestamp uint64) common.Hash {
	var buf [48]byte
	binary.BigEndian.PutUint64(buf[0:8], number)
	copy(buf[8:40], parent[:32])
	binary.BigEndian.PutUint64(buf[40:48], timestamp)
	return crypto.Keccak256Hash(buf[:])
}
