// Command bramblesim is a debug harness for the block-import core: it
// wires an in-memory chain store, state DB and noop consensus engine
// through the real importer pipelines and logs each pass's notification
// counts (imported, invalid, enacted, retracted) and the resulting chain
// heads, the way a developer would exercise C6/C7 without a full node
// around them.
package main

import (
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	gethrawdb "github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/bramblechain/bramble/chainstore"
	"github.com/bramblechain/bramble/consensus/noop"
	"github.com/bramblechain/bramble/core/types"
	"github.com/bramblechain/bramble/importer"
	"github.com/bramblechain/bramble/params"
	"github.com/bramblechain/bramble/statedb"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "Log verbosity: 0=crit 1=error 2=warn 3=info 4=debug 5=trace",
		Value: 3,
	}
	scenarioFlag = &cli.StringFlag{
		Name:  "scenario",
		Usage: "Built-in demo scenario to run: linear, reorg, badchild, duplicate, headerfirst, stateroot",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Also write logs to this file, rotated the way cmd/mive's node logging is",
	}
)

func main() {
	app := &cli.App{
		Name:   "bramblesim",
		Usage:  "drive the block-import core against a noop in-memory chain",
		Flags:  []cli.Flag{configFlag, verbosityFlag, scenarioFlag, logFileFlag},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogging wires the terminal handler the way cmd/mive's own logging
// setup does, plus an optional rotated file sink: when logFile is non-empty,
// every log record is duplicated into it through a lumberjack.Logger so a
// long-running scenario doesn't grow one unbounded log file, the same
// rotation cmd/mive/main.go configures for its node log.
func setupLogging(verbosity int, logFile string) {
	usecolor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
	var output io.Writer = os.Stderr
	if usecolor {
		output = colorable.NewColorable(os.Stderr)
	}

	if logFile != "" {
		rotated := &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		output = io.MultiWriter(output, rotated)
	}

	glogger := log.NewGlogHandler(log.NewTerminalHandler(output, usecolor))
	glogger.Verbosity(log.FromLegacyLevel(verbosity))
	log.SetDefault(log.NewLogger(glogger))
}

func run(ctx *cli.Context) error {
	setupLogging(ctx.Int(verbosityFlag.Name), ctx.String(logFileFlag.Name))

	cfg := defaultSimConfig()
	if file := ctx.String(configFlag.Name); file != "" {
		if err := loadSimConfig(file, &cfg); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}
	if s := ctx.String(scenarioFlag.Name); s != "" {
		cfg.Scenario = s
	}

	im, store, err := newSimImporter(cfg.Importer)
	if err != nil {
		return err
	}

	scenario, ok := scenarios[cfg.Scenario]
	if !ok {
		return fmt.Errorf("unknown scenario %q", cfg.Scenario)
	}
	log.Info("Running scenario", "name", cfg.Scenario)
	scenario(im, store)
	return nil
}

// newSimImporter constructs an Importer backed by an in-memory database, a
// freshly seeded chain store, and the noop consensus engine.
func newSimImporter(cfg importer.Config) (*importer.Importer, *chainstore.Store, error) {
	genesis := &types.Header{
		Number:    big.NewInt(0),
		Timestamp: 1,
		Author:    common.Address{},
	}

	db := gethrawdb.NewMemoryDatabase()
	engine := noop.New()
	store, err := chainstore.NewStore(db, &params.ChainConfig{ChainID: big.NewInt(1), GenesisNumber: 0}, engine, genesis)
	if err != nil {
		return nil, nil, fmt.Errorf("opening chain store: %w", err)
	}

	state := statedb.NewMemDatabase()
	state.Seed(genesis.StateRoot, nil)

	notifier := importer.NewNotifier(consoleClient{}, nil)
	im := importer.New(db, store, state, engine, notifier, cfg)
	return im, store, nil
}

// consoleClient is a minimal importer.Client that logs every notification,
// standing in for the RPC/networking client a real node would wire here.
type consoleClient struct{}

func (consoleClient) NewBlocks(imported, invalid, enacted, retracted, sealed []common.Hash) {
	log.Info("new_blocks", "imported", len(imported), "invalid", len(invalid), "enacted", len(enacted), "retracted", len(retracted))
}

func (consoleClient) NewHeaders(imported, invalid, enacted, retracted []common.Hash, bestProposalHeaderChanged *common.Hash) {
	changed := "no"
	if bestProposalHeaderChanged != nil {
		changed = bestProposalHeaderChanged.Hex()
	}
	log.Info("new_headers", "imported", len(imported), "invalid", len(invalid), "enacted", len(enacted), "retracted", len(retracted), "bestProposalChanged", changed)
}
