package driver

import (
	"context"

	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/sources"
)

// NewEpochStartFunc builds the epochStart callback FindAnchor and
// PopulateEpochCache need: given any L2 block, walk backward over the L2
// execution client's own chain until the L1 origin recorded in the
// attributes transaction changes, returning the first (oldest) L2 block of
// that epoch together with the L1Attributes it carries.
func NewEpochStartFunc(ctx context.Context, l2 *sources.L2Client) func(ethtypes.L2BlockRef) (ethtypes.L2BlockRef, ethtypes.L1Attributes, error) {
	return func(candidate ethtypes.L2BlockRef) (ethtypes.L2BlockRef, ethtypes.L1Attributes, error) {
		ref, attrs, err := l2.BlockRefByNumber(ctx, candidate.Number)
		if err != nil {
			return ethtypes.L2BlockRef{}, ethtypes.L1Attributes{}, err
		}

		for ref.Number > 0 {
			prevRef, prevAttrs, err := l2.BlockRefByNumber(ctx, ref.Number-1)
			if err != nil {
				return ethtypes.L2BlockRef{}, ethtypes.L1Attributes{}, err
			}
			if prevAttrs.Number != attrs.Number {
				break
			}
			ref, attrs = prevRef, prevAttrs
		}
		return ref, attrs, nil
	}
}
