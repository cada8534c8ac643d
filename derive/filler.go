package derive

import (
	"fmt"

	"github.com/ethscriptions-protocol/derivation/rollupcfg"
)

// FillerCount computes how many empty L2 blocks must precede a real L2
// block whose L1-derived timestamp is tNew, given the previous head's
// timestamp tHead (spec.md §4.F). Target spacing is rollupcfg.BlockTime.
//
// gap == 12 -> 0 fillers (one ordinary step)
// gap == 13..23 -> 1 filler
// gap == 24 -> 1 filler (gap is an exact multiple, so the "-1" applies)
// gap == 25 -> 2 fillers
func FillerCount(tHead, tNew uint64) (uint64, error) {
	if tNew <= tHead {
		return 0, fmt.Errorf("derive: %w: non-increasing timestamp (head=%d, new=%d)", ErrProtocolFatal, tHead, tNew)
	}
	gap := tNew - tHead
	if gap <= rollupcfg.BlockTime {
		return 0, nil
	}
	n := gap / rollupcfg.BlockTime
	if gap%rollupcfg.BlockTime == 0 {
		n--
	}
	if n > rollupcfg.MaxFillerBlocks {
		return 0, fmt.Errorf("derive: %w: %d filler blocks exceeds cap of %d", ErrConfigurationFatal, n, rollupcfg.MaxFillerBlocks)
	}
	return n, nil
}

// FillerTimestamps returns the timestamps of the n filler blocks that
// precede the real block at tNew, each rollupcfg.BlockTime seconds after the
// last.
func FillerTimestamps(tHead uint64, n uint64) []uint64 {
	out := make([]uint64, n)
	for i := uint64(0); i < n; i++ {
		out[i] = tHead + (i+1)*rollupcfg.BlockTime
	}
	return out
}
