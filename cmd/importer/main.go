// Command importer runs the L1->L2 block derivation core as a standalone
// process: it polls an L1 RPC endpoint, extracts ethscription operations,
// and drives an L2 execution engine to build matching blocks in a loop.
package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/ethscriptions-protocol/derivation/derive"
	"github.com/ethscriptions-protocol/derivation/driver"
	"github.com/ethscriptions-protocol/derivation/ethtypes"
	"github.com/ethscriptions-protocol/derivation/rollupcfg"
	"github.com/ethscriptions-protocol/derivation/sources"
)

var (
	flagL1RPCURL = &cli.StringFlag{Name: "l1-rpc-url", EnvVars: []string{"L1_RPC_URL"}, Required: true}
	flagGethRPCURL = &cli.StringFlag{Name: "geth-rpc-url", EnvVars: []string{"GETH_RPC_URL"}, Required: true}
	flagL2RPCURL = &cli.StringFlag{Name: "l2-rpc-url", EnvVars: []string{"L2_RPC_URL"}, Required: true}
	flagJWTSecret = &cli.StringFlag{Name: "jwt-secret", EnvVars: []string{"JWT_SECRET"}, Required: true}
	flagL1GenesisBlock = &cli.Uint64Flag{Name: "l1-genesis-block", EnvVars: []string{"L1_GENESIS_BLOCK"}, Required: true}
	flagBatchSize = &cli.Uint64Flag{Name: "batch-size", EnvVars: []string{"BLOCK_IMPORT_BATCH_SIZE"}, Value: rollupcfg.DefaultBatchSize}
	flagSafeOffset = &cli.Uint64Flag{Name: "safe-offset", EnvVars: []string{"SAFE_OFFSET"}, Value: rollupcfg.DefaultSafeOffset}
	flagFinalizedOffset = &cli.Uint64Flag{Name: "finalized-offset", EnvVars: []string{"FINALIZED_OFFSET"}, Value: rollupcfg.DefaultFinalizedOffset}
	flagBatcherAddr = &cli.StringFlag{Name: "batcher-address", EnvVars: []string{"BATCHER_ADDRESS"}}
	flagValidateImport = &cli.BoolFlag{Name: "validate-import", EnvVars: []string{"VALIDATE_IMPORT"}, Value: false}

	flagESIP1At = &cli.Uint64Flag{Name: "esip1-enabled-at", EnvVars: []string{"ESIP1_ENABLED_AT"}}
	flagESIP2At = &cli.Uint64Flag{Name: "esip2-enabled-at", EnvVars: []string{"ESIP2_ENABLED_AT"}}
	flagESIP3At = &cli.Uint64Flag{Name: "esip3-enabled-at", EnvVars: []string{"ESIP3_ENABLED_AT"}}
	flagESIP5At = &cli.Uint64Flag{Name: "esip5-enabled-at", EnvVars: []string{"ESIP5_ENABLED_AT"}}
	flagESIP6At = &cli.Uint64Flag{Name: "esip6-enabled-at", EnvVars: []string{"ESIP6_ENABLED_AT"}}
	flagESIP7At = &cli.Uint64Flag{Name: "esip7-enabled-at", EnvVars: []string{"ESIP7_ENABLED_AT"}}
)

func main() {
	app := &cli.App{
		Name:  "importer",
		Usage: "derive and import Ethscriptions L2 blocks from L1",
		Flags: []cli.Flag{
			flagL1RPCURL, flagGethRPCURL, flagL2RPCURL, flagJWTSecret, flagL1GenesisBlock,
			flagBatchSize, flagSafeOffset, flagFinalizedOffset, flagBatcherAddr, flagValidateImport,
			flagESIP1At, flagESIP2At, flagESIP3At, flagESIP5At, flagESIP6At, flagESIP7At,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Crit("importer exited with error", "err", err)
	}
}

func run(cctx *cli.Context) error {
	logger := log.NewLogger(log.NewTerminalHandler(os.Stderr, true))

	cfg := &rollupcfg.Config{
		L1GenesisBlock:  cctx.Uint64(flagL1GenesisBlock.Name),
		BatchSize:       cctx.Uint64(flagBatchSize.Name),
		SafeOffset:      cctx.Uint64(flagSafeOffset.Name),
		FinalizedOffset: cctx.Uint64(flagFinalizedOffset.Name),
		ESIP1EnabledAt:  cctx.Uint64(flagESIP1At.Name),
		ESIP2EnabledAt:  cctx.Uint64(flagESIP2At.Name),
		ESIP3EnabledAt:  cctx.Uint64(flagESIP3At.Name),
		ESIP5EnabledAt:  cctx.Uint64(flagESIP5At.Name),
		ESIP6EnabledAt:  cctx.Uint64(flagESIP6At.Name),
		ESIP7EnabledAt:  cctx.Uint64(flagESIP7At.Name),
	}
	if err := cfg.Check(); err != nil {
		return fmt.Errorf("%w: %w", derive.ErrConfigurationFatal, err)
	}

	jwtSecret, err := parseJWTSecret(cctx.String(flagJWTSecret.Name))
	if err != nil {
		return fmt.Errorf("%w: %w", derive.ErrConfigurationFatal, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l1Client, err := sources.NewL1Client(ctx, cctx.String(flagL1RPCURL.Name), logger)
	if err != nil {
		return err
	}
	genesisBlock, err := l1Client.GetBlock(ctx, cfg.L1GenesisBlock)
	if err != nil {
		return fmt.Errorf("%w: fetch L1 genesis block %d: %w", derive.ErrConfigurationFatal, cfg.L1GenesisBlock, err)
	}
	cfg.L1GenesisHash = genesisBlock.Hash

	engineClient, err := sources.NewEngineClient(ctx, cctx.String(flagGethRPCURL.Name), jwtSecret, logger)
	if err != nil {
		return err
	}
	l2Client, err := sources.NewL2Client(ctx, cctx.String(flagL2RPCURL.Name), logger)
	if err != nil {
		return err
	}

	metrics := driver.NewMetrics(prometheus.DefaultRegisterer)
	proposer := driver.NewProposer(engineClient, cfg)

	var sysCfg ethtypes.SystemConfig
	if s := cctx.String(flagBatcherAddr.Name); s != "" {
		sysCfg.BatcherAddr = common.HexToAddress(s)
	}

	importer := driver.NewImporter(cfg, logger, sysCfg, l1Client, proposer, metrics)
	epochStart := driver.NewEpochStartFunc(ctx, l2Client)

	l2Tip, err := l2Client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%w: read L2 tip: %w", derive.ErrConfigurationFatal, err)
	}
	if l2Tip == 0 {
		// A fresh L2 chain has no history to walk back through: anchor
		// directly at L1 genesis (spec.md §1; L2 genesis-state generation
		// itself is out of scope, its hash supplied externally by the
		// execution client's own genesis block).
		importer.SeedAnchor(&driver.Anchor{
			L1: genesisBlock.ID(),
			L2: ethtypes.L2BlockRef{
				Number:   0,
				Time:     genesisBlock.Timestamp,
				L1Origin: genesisBlock.ID(),
			},
		}, genesisBlock)
	} else {
		tipRef, _, err := l2Client.BlockRefByNumber(ctx, l2Tip)
		if err != nil {
			return fmt.Errorf("%w: read L2 tip block %d: %w", derive.ErrConfigurationFatal, l2Tip, err)
		}
		if err := importer.Reanchor(ctx, tipRef, epochStart); err != nil {
			return fmt.Errorf("%w: startup anchor search: %w", derive.ErrConfigurationFatal, err)
		}
	}

	logger.Info("starting importer loop",
		"l1_genesis_block", cfg.L1GenesisBlock,
		"batch_size", cfg.BatchSize,
		"l2_tip", l2Tip,
		// VALIDATE_IMPORT only toggles advisory logging here; the reference
		// indexer comparison itself is an external collaborator (spec.md §1).
		"validate_import", cctx.Bool(flagValidateImport.Name),
	)

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return nil
		default:
		}

		err := importer.Step(ctx)
		switch {
		case err == nil:
			continue
		case derive.IsNotReady(err):
			time.Sleep(2 * time.Second)
		case derive.IsReorg(err):
			logger.Warn("reorg detected, re-anchoring", "err", err)
			if reErr := reanchorAfterReorg(ctx, importer, l2Client, epochStart); reErr != nil {
				logger.Error("re-anchor failed, retrying", "err", reErr)
			} else {
				logger.Info("re-anchored after reorg")
			}
			time.Sleep(2 * time.Second)
		case derive.IsTemporary(err):
			logger.Warn("temporary error, retrying", "err", err)
			time.Sleep(2 * time.Second)
		case derive.IsConfigurationFatal(err):
			return err
		default:
			logger.Error("step failed", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

// reanchorAfterReorg rebuilds the importer's anchor from the L2 execution
// client's current head once Step has reported a parent-hash mismatch
// (spec.md §4.J). It is a thin wrapper so a failed re-anchor attempt (e.g.
// the L2 client is itself still catching up) just gets retried on the next
// loop iteration rather than aborting the process.
func reanchorAfterReorg(ctx context.Context, importer *driver.Importer, l2Client *sources.L2Client, epochStart func(ethtypes.L2BlockRef) (ethtypes.L2BlockRef, ethtypes.L1Attributes, error)) error {
	l2Tip, err := l2Client.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("read L2 tip: %w", err)
	}
	tipRef, _, err := l2Client.BlockRefByNumber(ctx, l2Tip)
	if err != nil {
		return fmt.Errorf("read L2 tip block %d: %w", l2Tip, err)
	}
	return importer.Reanchor(ctx, tipRef, epochStart)
}

func parseJWTSecret(raw string) ([32]byte, error) {
	var secret [32]byte
	var hexStr string
	if strings.HasPrefix(raw, "0x") {
		hexStr = raw[2:]
	} else if data, err := os.ReadFile(raw); err == nil {
		hexStr = strings.TrimSpace(string(data))
		hexStr = strings.TrimPrefix(hexStr, "0x")
	} else {
		hexStr = raw
	}
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 32 {
		return secret, fmt.Errorf("invalid JWT secret: expected 32 bytes hex, got %d bytes", len(b))
	}
	copy(secret[:], b)
	return secret, nil
}
