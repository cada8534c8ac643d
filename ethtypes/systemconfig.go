package ethtypes

import "github.com/ethereum/go-ethereum/common"

// SystemConfig is the small set of L1-governed parameters carried alongside
// L1Attributes. The core never mutates it; it is read from configuration and
// stamped into every derived L2 block so the batcher hash travels with the
// chain it was valid for.
type SystemConfig struct {
	BatcherAddr common.Address
}
