// Package ethscription implements the Ethscription Extractor (spec.md §4.C):
// a pure, deterministic function from an L1 block to the ordered sequence of
// ethscription operations it contains. Nothing in this package performs I/O,
// reads a clock, or consults randomness — every export is a function of its
// arguments only.
package ethscription

import (
	"github.com/ethereum/go-ethereum/common"
)

// Kind discriminates the EthscriptionOp variants (spec.md §3).
type Kind uint8

const (
	KindCreate Kind = iota
	KindTransferSingle
	KindTransferMulti
)

func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindTransferSingle:
		return "transfer_single"
	case KindTransferMulti:
		return "transfer_multi"
	default:
		return "unknown"
	}
}

// Source records whether an operation was derived from transaction input or
// from an event log, per spec.md invariants I2/I3.
type Source uint8

const (
	SourceInput Source = iota
	SourceEvent
)

func (s Source) String() string {
	if s == SourceInput {
		return "input"
	}
	return "event"
}

// Op is a single ethscription operation extracted from one L1 transaction.
// It is a flattened tagged union over Create/TransferSingle/TransferMulti
// (spec.md §3); which fields are meaningful is determined by Kind.
type Op struct {
	Kind Kind

	L1TxHash common.Hash
	// TxIndex and LogIndex give the (tx index, log index) ordering key
	// required by invariant I4. LogIndex is 0 for input-sourced ops, which
	// always precede any event-sourced op in the same transaction. The two
	// meet only when an input transfer is followed by an ESIP-3 event create
	// (I2/I3 rule out every other pairing); Extract's stable sort keeps the
	// input op first even when the create log's index is also 0.
	TxIndex  uint32
	LogIndex uint32

	Source Source

	// Create fields.
	Creator      common.Address
	InitialOwner common.Address
	ContentURI   []byte
	ESIP6        bool

	// TransferSingle / TransferMulti fields.
	From                  common.Address
	To                    common.Address
	EthscriptionID        common.Hash
	EthscriptionIDs       []common.Hash
	RequiredPreviousOwner *common.Address
}
