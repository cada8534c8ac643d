package derive

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ethscriptions-protocol/derivation/ethscription"
)

// EthscriptionsPredeployAddress is the L2 contract that interprets
// ethscription operations. Its ABI and on-chain semantics are out of scope
// here (spec.md §1); the core's job ends at constructing a deposit
// transaction that calls it with the operation encoded as calldata.
var EthscriptionsPredeployAddress = common.HexToAddress("0x4200000000000000000000000000000000000016")

var (
	addrType, _       = abi.NewType("address", "", nil)
	bytesType, _      = abi.NewType("bytes", "", nil)
	bytes32Type, _    = abi.NewType("bytes32", "", nil)
	bytes32ArrType, _ = abi.NewType("bytes32[]", "", nil)
	boolType, _       = abi.NewType("bool", "", nil)

	createArgs         = abi.Arguments{{Type: addrType}, {Type: addrType}, {Type: bytesType}, {Type: boolType}}
	transferSingleArgs = abi.Arguments{{Type: addrType}, {Type: addrType}, {Type: bytes32Type}, {Type: addrType}}
	transferMultiArgs  = abi.Arguments{{Type: addrType}, {Type: addrType}, {Type: bytes32ArrType}}
)

var (
	createSelector         = crypto.Keccak256([]byte("applyCreate(address,address,bytes,bool)"))[:4]
	transferSingleSelector = crypto.Keccak256([]byte("applyTransfer(address,address,bytes32,address)"))[:4]
	transferMultiSelector  = crypto.Keccak256([]byte("applyTransferBatch(address,address,bytes32[])"))[:4]
)

// TranslateOp builds the single deposit transaction carrying op. Ops never
// fail to translate: by the time they reach here they have already been
// validated by the extractor, so any encoding error is a programmer error
// rather than a protocol-fatal one and is returned plainly.
func TranslateOp(l1TxHash common.Hash, op ethscription.Op) (*types.DepositTx, error) {
	var selector []byte
	var packed []byte
	var err error

	switch op.Kind {
	case ethscription.KindCreate:
		selector = createSelector
		packed, err = createArgs.Pack(op.Creator, op.InitialOwner, op.ContentURI, op.ESIP6)
	case ethscription.KindTransferSingle:
		prev := common.Address{}
		if op.RequiredPreviousOwner != nil {
			prev = *op.RequiredPreviousOwner
		}
		selector = transferSingleSelector
		packed, err = transferSingleArgs.Pack(op.From, op.To, op.EthscriptionID, prev)
	case ethscription.KindTransferMulti:
		selector = transferMultiSelector
		packed, err = transferMultiArgs.Pack(op.From, op.To, op.EthscriptionIDs)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(selector)+len(packed))
	data = append(data, selector...)
	data = append(data, packed...)

	source := crypto.Keccak256Hash(l1TxHash.Bytes(), big.NewInt(int64(op.TxIndex)).Bytes(), big.NewInt(int64(op.LogIndex)).Bytes())
	return &types.DepositTx{
		SourceHash:          source,
		From:                L1AttributesDepositorAddress,
		To:                  &EthscriptionsPredeployAddress,
		Mint:                nil,
		Value:               big.NewInt(0),
		Gas:                 200_000,
		IsSystemTransaction: true,
		Data:                data,
	}, nil
}

// TranslateOps translates every op in order, preserving their relative
// ordering in the returned slice (spec.md §4.I step 4, §5 ordering
// guarantees).
func TranslateOps(ops []ethscription.Op) ([]*types.DepositTx, error) {
	txs := make([]*types.DepositTx, 0, len(ops))
	for _, op := range ops {
		tx, err := TranslateOp(op.L1TxHash, op)
		if err != nil {
			return nil, err
		}
		if tx != nil {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}
