package derive

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
)

// L1AttributesDepositorAddress is the fixed sender of every attributes
// deposit transaction, mirroring op-node's 0xdead...0001 depositor
// convention (an address with no known private key).
var L1AttributesDepositorAddress = common.HexToAddress("0xdeaddeaddeaddeaddeaddeaddeaddeaddead0001")

// L1AttributesPredeployAddress is the destination of every attributes
// deposit transaction: the predeployed contract that records L1 metadata for
// the L2 execution client.
var L1AttributesPredeployAddress = common.HexToAddress("0x4200000000000000000000000000000000000015")

// l1AttributesSelector is keccak256("setL1BlockValuesEcotone()")[:4].
var l1AttributesSelector = crypto.Keccak256([]byte("setL1BlockValuesEcotone()"))[:4]

// attributesPayloadLen is the fixed length of the packed calldata (spec.md
// §4.D): 4 (selector) + 4 + 4 + 8 + 8 + 8 + 32 + 32 + 32 + 32.
const attributesPayloadLen = 4 + 4 + 4 + 8 + 8 + 8 + 32 + 32 + 32 + 32

// EncodeL1Attributes packs attrs into the fixed 164-byte calldata layout.
// All integers are big-endian and written at exactly their declared width;
// the two u256 fee fields and the two bytes32 fields (l1_hash, batcher_hash)
// each take a full 32-byte word.
func EncodeL1Attributes(attrs ethtypes.L1Attributes) ([]byte, error) {
	if attrs.BaseFee == nil || attrs.BlobBaseFee == nil {
		return nil, fmt.Errorf("derive: %w: nil base fee in L1 attributes", ErrProtocolFatal)
	}
	if attrs.BaseFee.BitLen() > 256 || attrs.BlobBaseFee.BitLen() > 256 {
		return nil, fmt.Errorf("derive: %w: base fee overflow", ErrProtocolFatal)
	}

	out := make([]byte, 0, attributesPayloadLen)
	out = append(out, l1AttributesSelector...)

	var u32 [4]byte
	binary.BigEndian.PutUint32(u32[:], attrs.BaseFeeScalar)
	out = append(out, u32[:]...)
	binary.BigEndian.PutUint32(u32[:], attrs.BlobBaseFeeScalar)
	out = append(out, u32[:]...)

	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], attrs.SequenceNumber)
	out = append(out, u64[:]...)
	binary.BigEndian.PutUint64(u64[:], attrs.Timestamp)
	out = append(out, u64[:]...)
	binary.BigEndian.PutUint64(u64[:], attrs.Number)
	out = append(out, u64[:]...)

	out = append(out, math256(attrs.BaseFee)...)
	out = append(out, math256(attrs.BlobBaseFee)...)
	out = append(out, attrs.Hash.Bytes()...)
	out = append(out, attrs.BatcherHash.Bytes()...)

	if len(out) != attributesPayloadLen {
		return nil, fmt.Errorf("derive: %w: encoded attributes length %d != %d", ErrProtocolFatal, len(out), attributesPayloadLen)
	}
	return out, nil
}

// DecodeL1Attributes is the inverse of EncodeL1Attributes, used by tests
// (P9) and by any component that needs to recover attributes from
// previously-built calldata.
func DecodeL1Attributes(data []byte) (ethtypes.L1Attributes, error) {
	if len(data) != attributesPayloadLen {
		return ethtypes.L1Attributes{}, fmt.Errorf("derive: attributes calldata length %d != %d", len(data), attributesPayloadLen)
	}
	for i, b := range l1AttributesSelector {
		if data[i] != b {
			return ethtypes.L1Attributes{}, fmt.Errorf("derive: unrecognized attributes selector")
		}
	}
	off := 4
	baseFeeScalar := binary.BigEndian.Uint32(data[off : off+4])
	off += 4
	blobBaseFeeScalar := binary.BigEndian.Uint32(data[off : off+4])
	off += 4
	seqNum := binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	timestamp := binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	number := binary.BigEndian.Uint64(data[off : off+8])
	off += 8
	baseFee := new(big.Int).SetBytes(data[off : off+32])
	off += 32
	blobBaseFee := new(big.Int).SetBytes(data[off : off+32])
	off += 32
	l1Hash := common.BytesToHash(data[off : off+32])
	off += 32
	batcherHash := common.BytesToHash(data[off : off+32])

	return ethtypes.L1Attributes{
		Number:            number,
		Hash:              l1Hash,
		Timestamp:         timestamp,
		BaseFee:           baseFee,
		BlobBaseFee:       blobBaseFee,
		BaseFeeScalar:     baseFeeScalar,
		BlobBaseFeeScalar: blobBaseFeeScalar,
		SequenceNumber:    seqNum,
		BatcherHash:       batcherHash,
	}, nil
}

// math256 renders v as a full 32-byte big-endian word. The calldata layout
// is a u256, so the conversion goes through uint256.Int rather than
// big.Int.FillBytes, matching how the rest of the go-ethereum stack handles
// EVM word-sized integers.
func math256(v *big.Int) []byte {
	u, overflow := uint256.FromBig(v)
	if overflow {
		u = &uint256.Int{}
		u.SetAllOne()
	}
	b := u.Bytes32()
	return b[:]
}

// BuildAttributesDepositTx wraps the packed calldata into the system deposit
// transaction that must be first in every L2 block, real or filler. The
// source hash mixes the L1 block hash and the sequence number so that filler
// blocks sharing an L1 origin still get distinct, deterministic source
// hashes, following the derivation convention used for L1 info deposits.
func BuildAttributesDepositTx(attrs ethtypes.L1Attributes) (*types.DepositTx, error) {
	data, err := EncodeL1Attributes(attrs)
	if err != nil {
		return nil, err
	}
	source := crypto.Keccak256Hash(attrs.Hash.Bytes(), big.NewInt(int64(attrs.SequenceNumber)).Bytes())
	return &types.DepositTx{
		SourceHash:          source,
		From:                L1AttributesDepositorAddress,
		To:                  &L1AttributesPredeployAddress,
		Mint:                nil,
		Value:               big.NewInt(0),
		Gas:                 150_000,
		IsSystemTransaction: true,
		Data:                data,
	}, nil
}
