// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/stakechain/chaind/internal/blockchain"
	"github.com/stakechain/chaind/internal/chaindb"
	"github.com/stakechain/chaind/internal/limits"
	"github.com/stakechain/chaind/internal/progresslog"
	"github.com/stakechain/chaind/internal/txverifier"
	"github.com/stakechain/chaind/internal/version"
)

var cfg *config

// verificationStrategy returns the transaction verification strategy selected
// by the configured number of verification workers.
func verificationStrategy(workers int) txverifier.Strategy {
	if workers < 0 {
		return txverifier.SequentialStrategy{}
	}
	return txverifier.ParallelStrategy{Workers: workers}
}

// newChain creates the chain state over the passed database and wires its
// notifications to the progress logger.
func newChain(ctx context.Context, db chaindb.Store,
	registerer prometheus.Registerer) (*blockchain.BlockChain, error) {

	progressLogger := progresslog.New("Connected", chndLog)
	chain, err := blockchain.New(ctx, &blockchain.Config{
		DB:                   db,
		ChainParams:          cfg.params,
		TxIndexEnabled:       cfg.TxIndex,
		MaxOrphanBlocks:      cfg.MaxOrphanBlocks,
		MaxDBCommitAttempts:  cfg.MaxCommitAttempts,
		CommitRetryDelay:     cfg.CommitRetryDelay,
		MaxTipAge:            cfg.MaxTipAge,
		BlockIndexCacheSize:  cfg.IndexCacheSize,
		VerificationStrategy: verificationStrategy(cfg.VerifyWorkers),
		OrphanErrorHook: func(err error) {
			chndLog.Warnf("Rejected orphan block: %v", err)
		},
		MetricsRegisterer: registerer,
	})
	if err != nil {
		return nil, err
	}

	chain.Subscribe(func(n *blockchain.Notification) {
		switch n.Type {
		case blockchain.NTBlockConnected:
			data := n.Data.(*blockchain.BlockConnectedNtfnsData)
			progressLogger.LogProgress(data.Block, data.Height,
				!chain.IsInitialBlockDownload())

		case blockchain.NTBlockDisconnected:
			data := n.Data.(*blockchain.BlockDisconnectedNtfnsData)
			chndLog.Infof("Disconnected block %v (height %d)",
				data.Block.BlockHash(), data.Height)
		}
	})
	return chain, nil
}

// chaindMain is the real main function for chaind.  It is necessary to work
// around the fact that deferred functions do not run when os.Exit() is called.
func chaindMain() error {
	// Load configuration and parse command line.  This function also
	// initializes logging and configures it accordingly.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	tcfg, _, err := loadConfig(appName, os.Args[1:])
	if err != nil {
		usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)
		fmt.Fprintln(os.Stderr, err)
		var e errSuppressUsage
		if !errors.As(err, &e) {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return err
	}
	cfg = tcfg
	defer func() {
		if logRotator != nil {
			logRotator.Close()
		}
	}()

	// Get a context that will be canceled when a shutdown signal such as
	// SIGINT (Ctrl+C) has been received.
	ctx := shutdownListener()
	defer chndLog.Info("Shutdown complete")

	// Show version and home dir at startup.
	chndLog.Infof("Version %s (Go version %s %s/%s)", version.String(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
	chndLog.Infof("Home dir: %s", cfg.HomeDir)
	chndLog.Infof("Active network: %s", cfg.params.Name)
	if cfg.NoFileLogging {
		chndLog.Info("File logging disabled")
	}
	if cfg.configFileWarn != nil {
		chndLog.Warnf("%v", cfg.configFileWarn)
	}

	// Bound the bursty allocations of block connection with a soft memory
	// limit.
	if cfg.MemLimit != 0 {
		limits.SetMemoryLimit(cfg.MemLimit)
		chndLog.Infof("Soft memory limit: %d MiB", cfg.MemLimit)
	}

	// Metrics of the runtime, the process and the chain are gathered by a
	// dedicated registry served by the profile server.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Enable http profile server if requested.  The stop call is always
	// deferred so the server is stopped during process shutdown.
	var profiler profileServer
	defer profiler.Stop()
	if cfg.Profile != "" {
		if err := profiler.Start(cfg.Profile, registry); err != nil {
			chndLog.Warnf("unable to start profile server: %v", err)
			return err
		}
	}

	// Write cpu profile if requested.
	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			chndLog.Errorf("Unable to create cpu profile: %v", err.Error())
			return err
		}
		pprof.StartCPUProfile(f)
		defer f.Close()
		defer pprof.StopCPUProfile()
	}

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	// Load the chain database.
	db, err := loadChainDB()
	if err != nil {
		chndLog.Errorf("%v", err)
		return err
	}
	defer func() {
		// Ensure the database is sync'd and closed on shutdown.
		chndLog.Infof("Gracefully shutting down the chain database...")
		db.Close()
	}()

	// Return now if a shutdown signal was triggered.
	if shutdownRequested(ctx) {
		return nil
	}

	chain, err := newChain(ctx, db, registry)
	if err != nil {
		chndLog.Errorf("Unable to load the chain state: %v", err)
		return err
	}
	best := chain.BestSnapshot()
	chndLog.Infof("Chain state (height %d, hash %v, chain trust %v)",
		best.Height, best.Hash, &best.ChainTrust)

	// Dump the blockchain and exit if requested.
	if cfg.DumpBlockchain != "" {
		err := dumpBlockChain(ctx, cfg.params, chain, cfg.DumpBlockchain)
		if err != nil {
			chndLog.Errorf("%v", err)
		}
		return err
	}

	// Process the blocks of a flat file if requested.
	if cfg.ImportBlocks != "" {
		err := importBlocks(ctx, cfg.params, chain, cfg.ImportBlocks)
		if err != nil {
			chndLog.Errorf("%v", err)
			return err
		}
		best := chain.BestSnapshot()
		chndLog.Infof("Chain state (height %d, hash %v, chain trust %v)",
			best.Height, best.Hash, &best.ChainTrust)
	}

	// Wait until an interrupt signal is received.
	<-ctx.Done()
	return nil
}

func main() {
	// Work around defer not working after os.Exit()
	if err := chaindMain(); err != nil {
		os.Exit(1)
	}
}
