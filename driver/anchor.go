package driver

import (
	"context"
	"fmt"

	"github.com/ethscriptions-protocol/derivation/derive"
	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/rollupcfg"
	"github.com/ethscriptions-protocol/derivation/sources"
)

// maxAnchorIterations bounds the backward walk before the Startup Anchor
// gives up (spec.md §4.J).
const maxAnchorIterations = 1000

// maxEpochBoundaries is how many epoch boundaries the anchor walks back to
// populate the epoch cache after finding its anchor point.
const maxEpochBoundaries = 64

// Anchor is the result of a successful startup anchor search: the agreeing
// (L1, L2) pair the Importer Loop resumes from.
type Anchor struct {
	L1 ethtypes.BlockID
	L2 ethtypes.L2BlockRef
}

// FindAnchor walks backward from the L2 tip's epoch boundary, decrementing
// both candidates together on any mismatch, until it finds an (L1, L2) pair
// where the L2 block's recorded L1 attributes agree with the canonical L1
// block and the epoch is at least cfg.SafeOffset L2 blocks behind the L2 tip
// (spec.md §4.J). epochStart maps any L2 block to the first block of its
// epoch and the L1 attributes that block carries (typically read back from
// the L2 execution client, see NewEpochStartFunc).
func FindAnchor(ctx context.Context, l1 *sources.L1Client, cfg *rollupcfg.Config, l2Tip ethtypes.L2BlockRef, epochStart func(ethtypes.L2BlockRef) (ethtypes.L2BlockRef, ethtypes.L1Attributes, error)) (*Anchor, error) {
	candidate := l2Tip
	for i := 0; i < maxAnchorIterations; i++ {
		epochHead, attrs, err := epochStart(candidate)
		if err != nil {
			return nil, fmt.Errorf("driver: %w: walk epoch start: %w", derive.ErrConfigurationFatal, err)
		}

		if l2Tip.Number-epochHead.Number < cfg.SafeOffset {
			// Too recent to be safe; step back one full epoch and retry.
			if epochHead.Number == 0 {
				break
			}
			candidate = ethtypes.L2BlockRef{Number: epochHead.Number - 1}
			continue
		}

		canonical, err := l1.GetBlock(ctx, attrs.Number)
		if err != nil {
			return nil, err
		}
		if canonical.Hash == attrs.Hash && canonical.Number == attrs.Number {
			return &Anchor{
				L1: ethtypes.BlockID{Number: canonical.Number, Hash: canonical.Hash},
				L2: epochHead,
			}, nil
		}

		if epochHead.Number == 0 {
			break
		}
		candidate = ethtypes.L2BlockRef{Number: epochHead.Number - 1}
	}
	return nil, fmt.Errorf("driver: %w: startup anchor exhausted after %d iterations", derive.ErrConfigurationFatal, maxAnchorIterations)
}

// PopulateEpochCache walks backward from anchor until maxEpochBoundaries
// epoch boundaries are found or L2 block 0 is reached, filling c with each
// epoch's first L2 block and the L1 block it originates from. The L2 blocks
// between epoch boundaries are not cached.
func PopulateEpochCache(ctx context.Context, l1 *sources.L1Client, c *blockCache, anchor *Anchor, epochStart func(ethtypes.L2BlockRef) (ethtypes.L2BlockRef, ethtypes.L1Attributes, error)) error {
	cur := anchor.L2
	for i := 0; i < maxEpochBoundaries; i++ {
		epochHead, attrs, err := epochStart(cur)
		if err != nil {
			return err
		}
		block, err := l1.GetBlock(ctx, attrs.Number)
		if err != nil {
			return err
		}
		c.PutL1(block)
		c.PutL2(epochHead, attrs.Number)

		if epochHead.Number == 0 {
			return nil
		}
		cur = ethtypes.L2BlockRef{Number: epochHead.Number - 1}
	}
	return nil
}
