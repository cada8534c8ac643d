// Package sources wraps the external RPC surfaces the derivation pipeline
// depends on: the canonical L1 node (component A), the authenticated L2
// execution engine (component B), and the L2 execution client's plain
// JSON-RPC endpoint. All three are thin wrappers around go-ethereum's own RPC
// bindings, in the spirit of the teacher's sources.L1Client/EthClient
// wrapping pattern; only L1Client retries failed calls, while EngineClient
// and L2Client make a single attempt per call.
package sources

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/ethscriptions-protocol/derivation/derive"
	"github.com/ethscriptions-protocol/derivation/ethtypes"
)

// rpcRateLimit caps outbound L1 RPC calls so a backlog of catch-up blocks
// doesn't hammer the node faster than a typical provider's rate limit.
const rpcRateLimit = 20

// tipCacheTTL is the memoized eth_blockNumber window (spec.md §4.A, §9): a
// pragmatic TTL rather than a wall-clock mock, with an explicit
// InvalidateTip hook for tests.
const tipCacheTTL = 12 * time.Second

// blockCacheSize bounds the small LRU of already-converted L1Blocks the
// client keeps, independent of the Importer Loop's own retention cache.
const blockCacheSize = 256

// L1Client fetches canonical L1 blocks and receipts over standard Ethereum
// JSON-RPC, retrying transient failures with capped exponential backoff.
type L1Client struct {
	rpc     *ethclient.Client
	log     log.Logger
	signer  types.Signer
	limiter *rate.Limiter

	mu          sync.Mutex
	tipCachedAt time.Time
	tipCached   uint64

	blockCache *lru.Cache[uint64, *ethtypes.L1Block]
}

// NewL1Client dials rpcURL and returns a ready client.
func NewL1Client(ctx context.Context, rpcURL string, l log.Logger) (*L1Client, error) {
	rpc, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("sources: dial L1 RPC: %w", err)
	}
	chainID, err := rpc.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("sources: fetch L1 chain id: %w", err)
	}
	cache, err := lru.New[uint64, *ethtypes.L1Block](blockCacheSize)
	if err != nil {
		return nil, err
	}
	return &L1Client{
		rpc:        rpc,
		log:        l,
		signer:     types.LatestSignerForChainID(chainID),
		limiter:    rate.NewLimiter(rate.Limit(rpcRateLimit), rpcRateLimit),
		blockCache: cache,
	}, nil
}

// retry runs fn, retrying on error with capped exponential backoff until
// ctx is done or the backoff gives up (spec.md §4.A, §7 Transient class).
// Every attempt first waits on the rate limiter so a long catch-up run
// paces itself rather than bursting requests at the L1 node.
func (c *L1Client) retry(ctx context.Context, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 30 * time.Second
	err := backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}
		return fn()
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return fmt.Errorf("sources: %w: %w", derive.ErrTemporary, err)
	}
	return nil
}

// InvalidateTip clears the memoized tip, per spec.md §9's note that tests
// should drive the cache explicitly rather than mocking wall-clock time.
func (c *L1Client) InvalidateTip() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tipCachedAt = time.Time{}
}

// BlockNumber returns the L1 chain tip, cached for tipCacheTTL.
func (c *L1Client) BlockNumber(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	if time.Since(c.tipCachedAt) < tipCacheTTL {
		n := c.tipCached
		c.mu.Unlock()
		return n, nil
	}
	c.mu.Unlock()

	var n uint64
	err := c.retry(ctx, func() error {
		v, err := c.rpc.BlockNumber(ctx)
		if err != nil {
			return err
		}
		n = v
		return nil
	})
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.tipCached = n
	c.tipCachedAt = time.Now()
	c.mu.Unlock()
	return n, nil
}

// GetBlock fetches L1 block number, with full transactions and per-tx
// receipts, and converts it into the pipeline's plain ethtypes.L1Block. A
// block that does not exist yet returns derive.ErrNotReady.
func (c *L1Client) GetBlock(ctx context.Context, number uint64) (*ethtypes.L1Block, error) {
	if cached, ok := c.blockCache.Get(number); ok {
		return cached, nil
	}

	var raw *types.Block
	err := c.retry(ctx, func() error {
		b, err := c.rpc.BlockByNumber(ctx, new(big.Int).SetUint64(number))
		if errors.Is(err, ethereum.NotFound) {
			return backoff.Permanent(err)
		}
		if err != nil {
			return err
		}
		raw = b
		return nil
	})
	if errors.Is(err, ethereum.NotFound) {
		return nil, fmt.Errorf("sources: L1 block %d: %w", number, derive.ErrNotReady)
	}
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("sources: L1 block %d: %w", number, derive.ErrNotReady)
	}

	receipts := make(map[common.Hash]*types.Receipt, len(raw.Transactions()))
	for _, tx := range raw.Transactions() {
		var r *types.Receipt
		err := c.retry(ctx, func() error {
			rr, err := c.rpc.TransactionReceipt(ctx, tx.Hash())
			if err != nil {
				return err
			}
			r = rr
			return nil
		})
		if err != nil {
			return nil, err
		}
		receipts[tx.Hash()] = r
	}

	block, err := c.convertBlock(raw, receipts)
	if err != nil {
		return nil, fmt.Errorf("sources: %w: %w", derive.ErrProtocolFatal, err)
	}
	c.blockCache.Add(number, block)
	return block, nil
}

// convertBlock maps a geth block + its per-tx receipts into the pipeline's
// plain data model, recovering each transaction's sender. Sender recovery
// happens here, and only here, so the ethscription extractor remains free of
// signature-recovery I/O and stays a pure function of already-resolved data.
func (c *L1Client) convertBlock(raw *types.Block, receipts map[common.Hash]*types.Receipt) (*ethtypes.L1Block, error) {
	header := raw.Header()

	var beaconRoot *common.Hash
	if header.ParentBeaconRoot != nil {
		r := *header.ParentBeaconRoot
		beaconRoot = &r
	}

	block := &ethtypes.L1Block{
		Number:                raw.NumberU64(),
		Hash:                  raw.Hash(),
		ParentHash:            raw.ParentHash(),
		Timestamp:             raw.Time(),
		BaseFee:               header.BaseFee,
		MixHash:               header.MixDigest,
		ParentBeaconBlockRoot: beaconRoot,
		Transactions:          make([]ethtypes.L1Tx, 0, len(raw.Transactions())),
	}

	for i, tx := range raw.Transactions() {
		receipt, ok := receipts[tx.Hash()]
		if !ok || receipt == nil {
			return nil, fmt.Errorf("missing receipt for tx %s", tx.Hash())
		}
		from, err := types.Sender(c.signer, tx)
		if err != nil {
			return nil, fmt.Errorf("recover sender for tx %s: %w", tx.Hash(), err)
		}

		logs := make([]ethtypes.L1Log, 0, len(receipt.Logs))
		for _, l := range receipt.Logs {
			logs = append(logs, ethtypes.L1Log{
				Address:  l.Address,
				Topics:   append([]common.Hash(nil), l.Topics...),
				Data:     append([]byte(nil), l.Data...),
				LogIndex: uint32(l.Index),
				Removed:  l.Removed,
			})
		}

		block.Transactions = append(block.Transactions, ethtypes.L1Tx{
			Hash:   tx.Hash(),
			Index:  uint32(i),
			From:   from,
			To:     tx.To(),
			Input:  tx.Data(),
			Value:  tx.Value(),
			Status: receipt.Status == types.ReceiptStatusSuccessful,
			Logs:   logs,
		})
	}

	return block, nil
}
