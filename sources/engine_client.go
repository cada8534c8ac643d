package sources

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/node"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ethscriptions-protocol/derivation/derive"
	"github.com/ethscriptions-protocol/derivation/ethtypes"
)

// EngineClient drives the L2 execution engine over its authenticated
// JSON-RPC surface (component B). Method version (V2 vs V3) is selected per
// call by whether the caller supplies a parent beacon block root, matching
// the Ecotone activation rule (spec.md §4.B).
type EngineClient struct {
	rpc *rpc.Client
	log log.Logger
}

// NewEngineClient dials the engine endpoint, authenticating every request
// with a JWT derived from the shared secret.
func NewEngineClient(ctx context.Context, endpoint string, jwtSecret [32]byte, l log.Logger) (*EngineClient, error) {
	auth := node.NewJWTAuth(jwtSecret)
	client, err := rpc.DialOptions(ctx, endpoint, rpc.WithHTTPAuth(auth))
	if err != nil {
		return nil, fmt.Errorf("sources: dial engine RPC: %w", err)
	}
	return &EngineClient{rpc: client, log: l}, nil
}

// ForkchoiceUpdated calls engine_forkchoiceUpdatedV{2,3}, selecting V3 when
// attrs carries a beacon root.
func (e *EngineClient) ForkchoiceUpdated(ctx context.Context, state ethtypes.ForkchoiceState, attrs *ethtypes.PayloadAttributes) (*ethtypes.ForkchoiceResponse, error) {
	method := "engine_forkchoiceUpdatedV2"
	if attrs != nil && attrs.BeaconRoot != nil {
		method = "engine_forkchoiceUpdatedV3"
	}
	var resp ethtypes.ForkchoiceResponse
	if err := e.rpc.CallContext(ctx, &resp, method, state, attrs); err != nil {
		return nil, fmt.Errorf("sources: %w: %s: %w", derive.ErrProtocolFatal, method, err)
	}
	return &resp, nil
}

// GetPayload calls engine_getPayloadV{2,3}. Version selection mirrors
// ForkchoiceUpdated's: V3 whenever the pipeline has switched to the
// post-Cancun engine family, tracked by the caller via useV3.
func (e *EngineClient) GetPayload(ctx context.Context, id ethtypes.PayloadID, useV3 bool) (*ethtypes.ExecutionPayload, error) {
	method := "engine_getPayloadV2"
	if useV3 {
		method = "engine_getPayloadV3"
	}
	var resp struct {
		ExecutionPayload ethtypes.ExecutionPayload `json:"executionPayload"`
	}
	if err := e.rpc.CallContext(ctx, &resp, method, id); err != nil {
		return nil, fmt.Errorf("sources: %w: %s: %w", derive.ErrProtocolFatal, method, err)
	}
	if len(resp.ExecutionPayload.Transactions) == 0 {
		return nil, fmt.Errorf("sources: %w: empty execution payload from %s", derive.ErrProtocolFatal, method)
	}
	return &resp.ExecutionPayload, nil
}

// NewPayload calls engine_newPayloadV{2,3}. V3 additionally sends an empty
// expectedBlobVersionedHashes array and the parent beacon block root.
func (e *EngineClient) NewPayload(ctx context.Context, payload *ethtypes.ExecutionPayload, parentBeaconRoot *common.Hash) (*ethtypes.PayloadStatus, error) {
	method := "engine_newPayloadV2"
	args := []interface{}{payload}
	if parentBeaconRoot != nil {
		method = "engine_newPayloadV3"
		args = []interface{}{payload, []hexutil.Bytes{}, parentBeaconRoot}
	}

	var status ethtypes.PayloadStatus
	if err := e.rpc.CallContext(ctx, &status, method, args...); err != nil {
		return nil, fmt.Errorf("sources: %w: %s: %w", derive.ErrProtocolFatal, method, err)
	}
	return &status, nil
}
