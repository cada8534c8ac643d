// Package rollupcfg holds the chain-configuration parameters that drive the
// derivation pipeline: the L1 genesis anchor, ESIP activation heights, and
// the scheduling constants from which L2 block time and filler behavior are
// derived. It plays the same role here as rollup.Config does for op-node:
// a single struct threaded through every component instead of ambient
// globals.
package rollupcfg

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/go-multierror"
)

// BlockTime is the fixed L2 block interval. The spec pins this at 12s (one
// L1 slot); unlike op-node's rollup.Config, it is not configurable.
const BlockTime = 12

// MaxFillerBlocks bounds how many empty L2 blocks a single derivation step
// may insert before it gives up and reports a configuration error.
const MaxFillerBlocks = 100

// DefaultBatchSize is the default number of L1 blocks processed per
// Importer Loop step.
const DefaultBatchSize = 2

// DefaultSafeOffset and DefaultFinalizedOffset are the default number of L1
// blocks the safe/finalized L2 pointers lag behind head.
const (
	DefaultSafeOffset      = 32
	DefaultFinalizedOffset = 64
)

// Config is the set of chain-configuration parameters threaded through every
// derivation component.
type Config struct {
	// L1GenesisBlock is the first L1 block number the rollup derives from.
	// L2 block 0 is anchored here.
	L1GenesisBlock uint64
	// L1GenesisHash is the canonical hash of L1GenesisBlock, used by the
	// Startup Anchor to validate the anchor point.
	L1GenesisHash common.Hash

	// BatchSize is the maximum number of L1 blocks imported per driver step.
	BatchSize uint64

	// SafeOffset and FinalizedOffset are how many L1 blocks behind head the
	// safe/finalized L2 pointers must lag (spec.md §4.G).
	SafeOffset      uint64
	FinalizedOffset uint64

	// ESIP activation heights. An ESIP's rules do not apply to an L1 block
	// whose number is strictly less than its activation height.
	ESIP1EnabledAt uint64
	ESIP2EnabledAt uint64
	ESIP3EnabledAt uint64
	ESIP5EnabledAt uint64
	ESIP6EnabledAt uint64
	ESIP7EnabledAt uint64
}

// DefaultConfig returns a Config with the scheduling defaults from spec.md §6
// and all ESIPs active from genesis (suitable for a fresh devnet).
func DefaultConfig(l1GenesisBlock uint64, l1GenesisHash common.Hash) *Config {
	return &Config{
		L1GenesisBlock:  l1GenesisBlock,
		L1GenesisHash:   l1GenesisHash,
		BatchSize:       DefaultBatchSize,
		SafeOffset:      DefaultSafeOffset,
		FinalizedOffset: DefaultFinalizedOffset,
	}
}

// IsESIP1 reports whether ESIP-1 (event transfer) rules apply at l1Block.
func (c *Config) IsESIP1(l1Block uint64) bool { return l1Block >= c.ESIP1EnabledAt }

// IsESIP2 reports whether ESIP-2 (transfer for previous owner) rules apply.
func (c *Config) IsESIP2(l1Block uint64) bool { return l1Block >= c.ESIP2EnabledAt }

// IsESIP3 reports whether ESIP-3 (event create) rules apply.
func (c *Config) IsESIP3(l1Block uint64) bool { return l1Block >= c.ESIP3EnabledAt }

// IsESIP5 reports whether ESIP-5 (multi-transfer by input) rules apply.
func (c *Config) IsESIP5(l1Block uint64) bool { return l1Block >= c.ESIP5EnabledAt }

// IsESIP6 reports whether the ESIP-6 duplicate-content permissiveness flag
// may be honored. ESIP-6 does not gate extraction (it is a per-content flag
// read out of the URI), but downstream handlers should not trust the flag
// before its activation height.
func (c *Config) IsESIP6(l1Block uint64) bool { return l1Block >= c.ESIP6EnabledAt }

// IsESIP7 reports whether ESIP-7 (gzip-compressed calldata) rules apply.
func (c *Config) IsESIP7(l1Block uint64) bool { return l1Block >= c.ESIP7EnabledAt }

// Check validates that required fields are set, returning an error
// otherwise. The error is not wrapped with package derive's
// ErrConfigurationFatal: Check intentionally does not import package derive
// to avoid a cycle, and callers in cmd/importer wrap the returned error
// themselves. All failures are
// collected rather than returned on the first one, so a misconfigured
// deployment sees every problem at once instead of fixing them one at a
// time across restarts.
func (c *Config) Check() error {
	var result *multierror.Error
	if c.BatchSize == 0 {
		result = multierror.Append(result, fmt.Errorf("rollupcfg: BLOCK_IMPORT_BATCH_SIZE must be > 0"))
	}
	if c.SafeOffset == 0 {
		result = multierror.Append(result, fmt.Errorf("rollupcfg: SAFE_OFFSET must be > 0"))
	}
	if c.FinalizedOffset == 0 {
		result = multierror.Append(result, fmt.Errorf("rollupcfg: FINALIZED_OFFSET must be > 0"))
	}
	if c.SafeOffset != 0 && c.FinalizedOffset != 0 && c.FinalizedOffset < c.SafeOffset {
		result = multierror.Append(result, fmt.Errorf("rollupcfg: FINALIZED_OFFSET (%d) must be >= SAFE_OFFSET (%d)", c.FinalizedOffset, c.SafeOffset))
	}
	return result.ErrorOrNil()
}
