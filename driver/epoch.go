package driver

import (
	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/rollupcfg"
)

// EpochTracker maintains the rolling head/safe/finalized L2 pointers
// (spec.md §4.G). Pointers are plain BlockIDs, never owning references, so
// there is no cycle between the tracker and the cache it reads from.
type EpochTracker struct {
	cfg *rollupcfg.Config

	head      ethtypes.BlockID
	safe      ethtypes.BlockID
	finalized ethtypes.BlockID
}

func NewEpochTracker(cfg *rollupcfg.Config) *EpochTracker {
	return &EpochTracker{cfg: cfg}
}

func (t *EpochTracker) Head() ethtypes.BlockID      { return t.head }
func (t *EpochTracker) Safe() ethtypes.BlockID      { return t.safe }
func (t *EpochTracker) Finalized() ethtypes.BlockID { return t.finalized }

// Recompute updates all three pointers from the cache's current contents,
// given the L1 number each cached L2 block originated from. It must run
// after every successful import step (spec.md §4.G: "recomputed after every
// successful import step").
func (t *EpochTracker) Recompute(c *blockCache) {
	numbers := c.SortedL2Numbers()
	if len(numbers) == 0 {
		return
	}

	head := numbers[len(numbers)-1]
	headRef, _ := c.L2(head)
	t.head = headRef.ID()

	t.safe = t.findOffset(c, numbers, headRef.L1Origin.Number, t.cfg.SafeOffset)
	t.finalized = t.findOffset(c, numbers, headRef.L1Origin.Number, t.cfg.FinalizedOffset)
}

// findOffset returns the most recent L2 block whose L1 origin is
// <= headL1 - offset, falling back to the oldest cached L2 block if none
// qualifies (spec.md §4.G: "If no block satisfies the offset rule, return
// the oldest cached L2 block").
func (t *EpochTracker) findOffset(c *blockCache, numbers []uint64, headL1, offset uint64) ethtypes.BlockID {
	var boundary uint64
	if headL1 > offset {
		boundary = headL1 - offset
	}

	for i := len(numbers) - 1; i >= 0; i-- {
		ref, _ := c.L2(numbers[i])
		if ref.L1Origin.Number <= boundary {
			return ref.ID()
		}
	}
	oldest, _ := c.L2(numbers[0])
	return oldest.ID()
}
