// Package driver implements the stateful half of the pipeline: the block
// caches, the L2 block proposer, the filler/epoch scheduling built on top of
// package derive's pure math, the prefetcher, and the top-level importer
// loop and startup anchor (spec.md §4.E-J).
package driver

import (
	"sort"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/rollupcfg"
)

// blockCache holds the two reorg-safe, in-memory caches the Importer Loop
// exclusively owns (spec.md §3 Cache state). Unlike an LRU, retention is
// driven by L1-block-number offset from the newest entry, not by recency of
// access, so a safe/finalized lookup 64 blocks back never gets evicted just
// because it wasn't touched recently.
type blockCache struct {
	l1Blocks map[uint64]*ethtypes.L1Block
	l2Blocks map[uint64]*ethtypes.L2BlockRef

	// l2ByL1 indexes L2BlockRefs by the L1 block number they were derived
	// from, needed to prune ethscriptions_block_cache by the same L1-number
	// boundary as eth_block_cache.
	l2ByL1 map[uint64][]uint64
}

func newBlockCache() *blockCache {
	return &blockCache{
		l1Blocks: make(map[uint64]*ethtypes.L1Block),
		l2Blocks: make(map[uint64]*ethtypes.L2BlockRef),
		l2ByL1:   make(map[uint64][]uint64),
	}
}

// PutL1 inserts or overwrites the cached L1 block at its number.
func (c *blockCache) PutL1(b *ethtypes.L1Block) {
	c.l1Blocks[b.Number] = b
}

// L1 returns the cached L1 block at number, if present.
func (c *blockCache) L1(number uint64) (*ethtypes.L1Block, bool) {
	b, ok := c.l1Blocks[number]
	return b, ok
}

// PutL2 inserts or overwrites the cached L2 block reference, indexed by both
// its own number and its L1 origin.
func (c *blockCache) PutL2(ref ethtypes.L2BlockRef, l1Number uint64) {
	c.l2Blocks[ref.Number] = &ref
	c.l2ByL1[l1Number] = append(c.l2ByL1[l1Number], ref.Number)
}

// L2 returns the cached L2 block reference at number, if present.
func (c *blockCache) L2(number uint64) (*ethtypes.L2BlockRef, bool) {
	r, ok := c.l2Blocks[number]
	return r, ok
}

// SortedL2Numbers returns every cached L2 block number in ascending order.
func (c *blockCache) SortedL2Numbers() []uint64 {
	out := make([]uint64, 0, len(c.l2Blocks))
	for n := range c.l2Blocks {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Prune drops L1 blocks older than newestL1-finalizedOffset-1 and any L2
// block whose L1 origin falls below that same boundary, per the retention
// rule in spec.md §3: "eth_block_cache is pruned to the newest entry minus
// 65; ethscriptions_block_cache is pruned to entries whose eth_block_number
// >= oldest kept L1 number."
func (c *blockCache) Prune(newestL1 uint64, cfg *rollupcfg.Config) {
	keep := uint64(0)
	if newestL1 > cfg.FinalizedOffset+1 {
		keep = newestL1 - cfg.FinalizedOffset - 1
	}

	for n := range c.l1Blocks {
		if n < keep {
			delete(c.l1Blocks, n)
		}
	}
	for l1n, l2ns := range c.l2ByL1 {
		if l1n < keep {
			for _, l2n := range l2ns {
				delete(c.l2Blocks, l2n)
			}
			delete(c.l2ByL1, l1n)
		}
	}
}

// InvalidateFrom discards every cached entry for L1 number >= boundary, used
// on reorg detection (spec.md §4.H cancellation, P11).
func (c *blockCache) InvalidateFrom(boundary uint64) {
	for n := range c.l1Blocks {
		if n >= boundary {
			delete(c.l1Blocks, n)
		}
	}
	for l1n, l2ns := range c.l2ByL1 {
		if l1n >= boundary {
			for _, l2n := range l2ns {
				delete(c.l2Blocks, l2n)
			}
			delete(c.l2ByL1, l1n)
		}
	}
}
