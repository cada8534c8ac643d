package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/ethscriptions-protocol/derivation/derive"
	"github.com/ethscriptions-protocol/derivation/ethscription"
	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/rollupcfg"
	"github.com/ethscriptions-protocol/derivation/sources"
)

// Importer is the top-level state machine (spec.md §4.I): it owns the block
// caches exclusively, advances the cursor, detects reorgs, and drives
// extraction, translation, and proposal for each L1 block in turn.
type Importer struct {
	cfg *rollupcfg.Config
	log log.Logger

	l1         *sources.L1Client
	prefetcher *Prefetcher
	proposer   *Proposer
	epoch      *EpochTracker
	metrics    *Metrics

	cache  *blockCache
	cursor uint64

	sysCfg ethtypes.SystemConfig
}

// NewImporter constructs an Importer ready to run Step in a loop once
// SeedAnchor has populated its caches.
func NewImporter(cfg *rollupcfg.Config, l log.Logger, sysCfg ethtypes.SystemConfig, l1 *sources.L1Client, proposer *Proposer, metrics *Metrics) *Importer {
	return &Importer{
		cfg:        cfg,
		log:        l,
		l1:         l1,
		prefetcher: NewPrefetcher(l1),
		proposer:   proposer,
		epoch:      NewEpochTracker(cfg),
		metrics:    metrics,
		cache:      newBlockCache(),
		sysCfg:     sysCfg,
	}
}

// SeedAnchor installs anchor as the importer's starting point: the next
// cursor is anchor's L1 number + 1, and the cache/epoch pointers reflect the
// anchor's L2 block as the current head.
func (im *Importer) SeedAnchor(anchor *Anchor, l1Block *ethtypes.L1Block) {
	im.cache.PutL1(l1Block)
	im.cache.PutL2(anchor.L2, anchor.L1.Number)
	im.cursor = anchor.L1.Number + 1
	im.epoch.Recompute(im.cache)
}

// Reanchor re-derives a trusted (L1, L2) anchor point by walking back from
// the L2 execution client's current head until it finds an epoch boundary
// that agrees with the canonical L1 chain, then reseeds the importer from
// it (spec.md §4.J). It is used both at startup, when the importer has no
// prior in-memory state, and after Step reports derive.ErrReorg, when the
// cache's view of recent history can no longer be trusted. The cache is
// replaced outright rather than patched, since a reorg may have invalidated
// entries this process never directly observed.
func (im *Importer) Reanchor(ctx context.Context, l2Tip ethtypes.L2BlockRef, epochStart func(ethtypes.L2BlockRef) (ethtypes.L2BlockRef, ethtypes.L1Attributes, error)) error {
	anchor, err := FindAnchor(ctx, im.l1, im.cfg, l2Tip, epochStart)
	if err != nil {
		return err
	}
	l1Block, err := im.l1.GetBlock(ctx, anchor.L1.Number)
	if err != nil {
		return err
	}

	im.cache = newBlockCache()
	if err := PopulateEpochCache(ctx, im.l1, im.cache, anchor, epochStart); err != nil {
		return err
	}
	im.SeedAnchor(anchor, l1Block)
	return nil
}

// Step runs one importer iteration (spec.md §4.I): select the next batch of
// L1 blocks, verify parent-hash continuity against the cache, extract and
// translate ops, propose L2 blocks for each, then prune and recompute
// pointers. Returns derive.ErrNotReady if the L1 tip has not advanced far
// enough, and derive.ErrReorg if a parent-hash mismatch is found (with no
// cache mutation for the offending block or beyond, per P11).
func (im *Importer) Step(ctx context.Context) error {
	start := time.Now()
	defer func() { im.metrics.RecordStepDuration(time.Since(start).Seconds()) }()

	tip, err := im.l1.BlockNumber(ctx)
	if err != nil {
		return err
	}
	target := im.cursor + im.cfg.BatchSize - 1
	if target > tip {
		target = tip
	}
	if target < im.cursor {
		return fmt.Errorf("driver: L1 tip %d behind cursor %d: %w", tip, im.cursor, derive.ErrNotReady)
	}

	im.prefetcher.Schedule(ctx, im.cursor, target)
	// Opportunistically warm the next window too, per spec.md §4.H.
	if target+im.cfg.BatchSize <= tip {
		im.prefetcher.Schedule(ctx, target+1, target+im.cfg.BatchSize)
	}

	for n := im.cursor; n <= target; n++ {
		block, err := im.prefetcher.Claim(ctx, n)
		if err != nil {
			return err
		}

		if err := im.checkReorg(n, block); err != nil {
			im.prefetcher.InvalidateFrom(n)
			return err
		}

		if err := im.importBlock(ctx, block); err != nil {
			return err
		}
		im.cache.PutL1(block)
		im.cursor = n + 1
		im.log.Info("imported L1 block", "block", ethtypes.L1BlockRefFromBlock(block), "txs", len(block.Transactions))
	}

	im.cache.Prune(target, im.cfg)
	im.epoch.Recompute(im.cache)
	return nil
}

// checkReorg compares block's parent hash against the cached parent at n-1,
// the sole signal the Importer Loop has for a reorg (spec.md §4.I). On
// mismatch it invalidates the cache from n onward before returning
// derive.ErrReorg, so scenario 6 holds: detection happens strictly before
// any mutation for block n or its L2 descendants (P11).
func (im *Importer) checkReorg(n uint64, block *ethtypes.L1Block) error {
	if n <= im.cfg.L1GenesisBlock {
		return nil
	}
	parent, ok := im.cache.L1(n - 1)
	if !ok || block.ParentHash == parent.Hash {
		return nil
	}

	blockRef := ethtypes.L1BlockRefFromBlock(block)
	im.log.Warn("reorg detected", "block", blockRef, "want_parent", parent.Hash, "got_parent", block.ParentHash)
	im.metrics.RecordReorg()
	im.cache.InvalidateFrom(n)
	return fmt.Errorf("driver: L1 block %d parent hash mismatch (want %s, got %s): %w", n, parent.Hash, block.ParentHash, derive.ErrReorg)
}

func (im *Importer) importBlock(ctx context.Context, block *ethtypes.L1Block) error {
	ops, err := ethscription.Extract(im.cfg, block)
	if err != nil {
		return fmt.Errorf("driver: %w: extraction failed for L1 block %d: %w", derive.ErrProtocolFatal, block.Number, err)
	}

	depositTxs, err := derive.TranslateOps(ops)
	if err != nil {
		return fmt.Errorf("driver: %w: op translation failed for L1 block %d: %w", derive.ErrProtocolFatal, block.Number, err)
	}

	head := im.epoch.Head()
	headRef, ok := im.cache.L2(head.Number)
	if !ok {
		return fmt.Errorf("driver: %w: head L2 block %d missing from cache", derive.ErrConfigurationFatal, head.Number)
	}
	safeRef, _ := im.cache.L2(im.epoch.Safe().Number)
	finalizedRef, _ := im.cache.L2(im.epoch.Finalized().Number)

	attrs := ethtypes.L1Attributes{
		Number:      block.Number,
		Hash:        block.Hash,
		Timestamp:   block.Timestamp,
		BaseFee:     block.BaseFee,
		BlobBaseFee: block.BaseFee,
		BatcherHash: batcherHash(im.sysCfg.BatcherAddr),
	}

	newRefs, err := im.proposer.ProposeStep(ctx, *headRef, zeroIfNil(safeRef), zeroIfNil(finalizedRef), block, attrs, 0, depositTxs)
	if err != nil {
		return err
	}

	im.metrics.RecordFillerBlocks(len(newRefs) - 1)
	im.metrics.RecordDepositTxs(len(depositTxs))
	im.metrics.RecordBlockImported()

	for _, ref := range newRefs {
		im.cache.PutL2(ref, block.Number)
	}
	return nil
}

// batcherHash encodes addr as a version-0 batcher hash: the address
// zero-left-padded to 32 bytes (spec.md §3 L1Attributes.batcher_hash).
func batcherHash(addr common.Address) (h common.Hash) {
	copy(h[12:], addr.Bytes())
	return h
}

func zeroIfNil(ref *ethtypes.L2BlockRef) ethtypes.L2BlockRef {
	if ref == nil {
		return ethtypes.L2BlockRef{}
	}
	return *ref
}
