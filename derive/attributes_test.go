package derive

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
)

// P9: decode(build(attrs)) == attrs.
func TestEncodeDecodeL1Attributes_RoundTrip(t *testing.T) {
	cases := []ethtypes.L1Attributes{
		{
			Number: 0, Hash: common.Hash{}, Timestamp: 0,
			BaseFee: big.NewInt(0), BlobBaseFee: big.NewInt(0),
			BaseFeeScalar: 0, BlobBaseFeeScalar: 0,
			SequenceNumber: 0, BatcherHash: common.Hash{},
		},
		{
			Number: 19_000_000, Hash: common.HexToHash("0xabc123"), Timestamp: 1_700_000_000,
			BaseFee: big.NewInt(123_456_789), BlobBaseFee: big.NewInt(1),
			BaseFeeScalar: 684000, BlobBaseFeeScalar: 810000,
			SequenceNumber: 7, BatcherHash: common.HexToHash("0xdeadbeef"),
		},
		{
			Number: ^uint64(0), Hash: common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"), Timestamp: ^uint64(0),
			BaseFee: new(big.Int).SetBytes(common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff").Bytes()), BlobBaseFee: big.NewInt(999),
			BaseFeeScalar: ^uint32(0), BlobBaseFeeScalar: ^uint32(0),
			SequenceNumber: 42, BatcherHash: common.HexToHash("0x1"),
		},
	}

	for _, attrs := range cases {
		data, err := EncodeL1Attributes(attrs)
		require.NoError(t, err)
		require.Len(t, data, attributesPayloadLen)

		got, err := DecodeL1Attributes(data)
		require.NoError(t, err)
		require.Equal(t, attrs.Number, got.Number)
		require.Equal(t, attrs.Hash, got.Hash)
		require.Equal(t, attrs.Timestamp, got.Timestamp)
		require.Zerof(t, attrs.BaseFee.Cmp(got.BaseFee), "base fee: want %s, got %s", attrs.BaseFee, got.BaseFee)
		require.Zerof(t, attrs.BlobBaseFee.Cmp(got.BlobBaseFee), "blob base fee: want %s, got %s", attrs.BlobBaseFee, got.BlobBaseFee)
		require.Equal(t, attrs.BaseFeeScalar, got.BaseFeeScalar)
		require.Equal(t, attrs.BlobBaseFeeScalar, got.BlobBaseFeeScalar)
		require.Equal(t, attrs.SequenceNumber, got.SequenceNumber)
		require.Equal(t, attrs.BatcherHash, got.BatcherHash)
	}
}

func TestBuildAttributesDepositTx_IsFirstTxShape(t *testing.T) {
	attrs := ethtypes.L1Attributes{
		Number: 100, Hash: common.HexToHash("0x1"), Timestamp: 1000,
		BaseFee: big.NewInt(7), BlobBaseFee: big.NewInt(1),
	}
	tx, err := BuildAttributesDepositTx(attrs)
	require.NoError(t, err)
	require.True(t, tx.IsSystemTransaction)
	require.Equal(t, L1AttributesDepositorAddress, tx.From)
	require.Equal(t, &L1AttributesPredeployAddress, tx.To)
}
