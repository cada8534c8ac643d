package ethscription

import (
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/rollupcfg"
)

var zeroAddress common.Address

// Extract is the pure, consensus-critical function from an L1 block to its
// ordered ethscription operations (spec.md §4.C). It never returns an error
// for malformed transaction content — malformed content simply yields no
// operation — but the signature returns error to leave room for structural
// block-level invariant violations callers may want to surface distinctly.
func Extract(cfg *rollupcfg.Config, block *ethtypes.L1Block) ([]Op, error) {
	var ops []Op

	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if !tx.Status {
			// P5: a failed transaction contributes nothing.
			continue
		}
		ops = append(ops, extractTx(cfg, tx, block.Number)...)
	}

	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].TxIndex != ops[j].TxIndex {
			return ops[i].TxIndex < ops[j].TxIndex
		}
		return ops[i].LogIndex < ops[j].LogIndex
	})
	return ops, nil
}

func extractTx(cfg *rollupcfg.Config, tx *ethtypes.L1Tx, l1Block uint64) []Op {
	if op, ok := tryInputCreate(cfg, tx, l1Block); ok {
		// I2: a valid input create discards every event-based op in this tx.
		return []Op{op}
	}

	inputTransferFired := false
	var ops []Op

	if op, ok := tryESIP5MultiTransfer(cfg, tx, l1Block); ok {
		ops = append(ops, op)
		inputTransferFired = true
	} else if op, ok := trySingleTransferByInput(tx); ok {
		ops = append(ops, op)
		inputTransferFired = true
	}

	ops = append(ops, extractEventOps(cfg, tx, l1Block, inputTransferFired)...)
	return ops
}

// tryInputCreate implements rules 1 and 2: interpret the input (optionally
// after ESIP-7 gzip decompression) as a data URI.
func tryInputCreate(cfg *rollupcfg.Config, tx *ethtypes.L1Tx, l1Block uint64) (Op, bool) {
	if tx.To == nil {
		return Op{}, false
	}
	if uri, ok := ParseDataURI(tx.Input); ok {
		return buildCreate(cfg, tx, uri, SourceInput, l1Block), true
	}
	if cfg.IsESIP7(l1Block) {
		if uri, ok := ParseGzippedDataURI(tx.Input); ok {
			return buildCreate(cfg, tx, uri, SourceInput, l1Block), true
		}
	}
	return Op{}, false
}

func buildCreate(cfg *rollupcfg.Config, tx *ethtypes.L1Tx, uri *DataURI, source Source, l1Block uint64) Op {
	return Op{
		Kind:         KindCreate,
		L1TxHash:     tx.Hash,
		TxIndex:      tx.Index,
		Source:       source,
		Creator:      tx.From,
		InitialOwner: *tx.To,
		ContentURI:   uri.Normalized(),
		// ESIP-6's permissiveness flag is only honored once it has activated;
		// before that height, a URI claiming the rule is forwarded as if it
		// hadn't (cfg.IsESIP6's contract).
		ESIP6: uri.ESIP6 && cfg.IsESIP6(l1Block),
	}
}

// tryESIP5MultiTransfer implements rule 3.
func tryESIP5MultiTransfer(cfg *rollupcfg.Config, tx *ethtypes.L1Tx, l1Block uint64) (Op, bool) {
	if !cfg.IsESIP5(l1Block) {
		return Op{}, false
	}
	n := len(tx.Input)
	if n < 64 || n%32 != 0 {
		return Op{}, false
	}
	if tx.To == nil {
		return Op{}, false
	}
	ids := make([]common.Hash, 0, n/32)
	for off := 0; off < n; off += 32 {
		ids = append(ids, common.BytesToHash(tx.Input[off:off+32]))
	}
	return Op{
		Kind:            KindTransferMulti,
		L1TxHash:        tx.Hash,
		TxIndex:         tx.Index,
		Source:          SourceInput,
		From:            tx.From,
		To:              *tx.To,
		EthscriptionIDs: ids,
	}, true
}

// trySingleTransferByInput implements rule 4.
func trySingleTransferByInput(tx *ethtypes.L1Tx) (Op, bool) {
	if len(tx.Input) != 32 || tx.To == nil {
		return Op{}, false
	}
	return Op{
		Kind:           KindTransferSingle,
		L1TxHash:       tx.Hash,
		TxIndex:        tx.Index,
		Source:         SourceInput,
		From:           tx.From,
		To:             *tx.To,
		EthscriptionID: common.BytesToHash(tx.Input),
	}, true
}

// bytesArgType is the single "bytes" ABI type used to decode the
// non-indexed contentURI argument of the create event.
var bytesArgType, _ = abi.NewType("bytes", "", nil)
var bytesArgs = abi.Arguments{{Type: bytesArgType}}

// extractEventOps implements rules 5-7, scanning logs in ascending log_index
// order (removed logs excluded per I5, per P4).
func extractEventOps(cfg *rollupcfg.Config, tx *ethtypes.L1Tx, l1Block uint64, inputTransferFired bool) []Op {
	var ops []Op
	createFound := false

	logs := make([]ethtypes.L1Log, 0, len(tx.Logs))
	for _, l := range tx.Logs {
		if !l.Removed {
			logs = append(logs, l)
		}
	}
	sort.SliceStable(logs, func(i, j int) bool { return logs[i].LogIndex < logs[j].LogIndex })

	for _, l := range logs {
		if len(l.Topics) == 0 {
			continue
		}
		switch {
		case !createFound && cfg.IsESIP3(l1Block) && len(l.Topics) == 2 && l.Topics[0] == TopicCreateEthscription:
			createFound = true // "additional such logs are ignored" regardless of validity
			if op, ok := buildEventCreate(cfg, tx, l, l1Block); ok {
				ops = append(ops, op)
			}
		case !inputTransferFired && cfg.IsESIP1(l1Block) && len(l.Topics) == 3 && l.Topics[0] == TopicESIP1Transfer:
			ops = append(ops, Op{
				Kind:           KindTransferSingle,
				L1TxHash:       tx.Hash,
				TxIndex:        tx.Index,
				LogIndex:       l.LogIndex,
				Source:         SourceEvent,
				From:           l.Address,
				To:             topicToAddress(l.Topics[1]),
				EthscriptionID: l.Topics[2],
			})
		case !inputTransferFired && cfg.IsESIP2(l1Block) && len(l.Topics) == 4 && l.Topics[0] == TopicESIP2Transfer:
			prev := topicToAddress(l.Topics[1])
			ops = append(ops, Op{
				Kind:                  KindTransferSingle,
				L1TxHash:              tx.Hash,
				TxIndex:               tx.Index,
				LogIndex:              l.LogIndex,
				Source:                SourceEvent,
				From:                  l.Address,
				To:                    topicToAddress(l.Topics[2]),
				EthscriptionID:        l.Topics[3],
				RequiredPreviousOwner: &prev,
			})
		}
	}
	return ops
}

func buildEventCreate(cfg *rollupcfg.Config, tx *ethtypes.L1Tx, l ethtypes.L1Log, l1Block uint64) (Op, bool) {
	creator := l.Address
	if creator == zeroAddress {
		return Op{}, false
	}
	values, err := bytesArgs.UnpackValues(l.Data)
	if err != nil || len(values) != 1 {
		return Op{}, false
	}
	content, ok := values[0].([]byte)
	if !ok {
		return Op{}, false
	}
	uri, ok := ParseDataURI(content)
	if !ok {
		return Op{}, false
	}
	return Op{
		Kind:         KindCreate,
		L1TxHash:     tx.Hash,
		TxIndex:      tx.Index,
		LogIndex:     l.LogIndex,
		Source:       SourceEvent,
		Creator:      creator,
		InitialOwner: topicToAddress(l.Topics[1]),
		ContentURI:   uri.Normalized(),
		ESIP6:        uri.ESIP6 && cfg.IsESIP6(l1Block),
	}, true
}
