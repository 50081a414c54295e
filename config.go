// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2025 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	flags "github.com/jessevdk/go-flags"
	"github.com/stakechain/chaind/chaincfg"
	"github.com/stakechain/chaind/internal/blockchain"
	"github.com/stakechain/chaind/internal/version"
)

const (
	defaultConfigFilename = "chaind.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "chaind.log"
	defaultLogSize        = "10M"
	defaultMaxLogRolls    = 3
	defaultMaxOrphans     = blockchain.DefaultMaxOrphanBlocks
	defaultCommitAttempts = blockchain.DefaultMaxDBCommitAttempts
	defaultMaxTipAge      = blockchain.DefaultMaxTipAge
	defaultMemLimitMiB    = 1536
)

var (
	defaultHomeDir    = dcrutil.AppDataDir("chaind", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for chaind.
//
// See loadConfig for details on the configuration load process.
type config struct {
	// General application behavior.
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	HomeDir       string `short:"A" long:"appdata" description:"Path to application home directory"`
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir       string `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	LogSize       string `long:"logsize" description:"Maximum size of log file before it is rotated"`
	MaxLogRolls   int    `long:"maxlogrolls" description:"Maximum number of rotated log files to keep"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`
	MemLimit      uint64 `long:"memlimit" description:"Soft memory limit of the process in MiB, 0 to disable"`

	// Network selection.
	TestNet bool `long:"testnet" description:"Use the test network"`
	SimNet  bool `long:"simnet" description:"Use the simulation test network"`
	RegNet  bool `long:"regnet" description:"Use the regression test network"`

	// Chain state options.
	TxIndex           bool          `long:"txindex" description:"Maintain an index of the transactions in the main chain"`
	MaxOrphanBlocks   int           `long:"maxorphanblocks" description:"Maximum number of orphan blocks to keep in memory, -1 to disable orphans"`
	MaxCommitAttempts int           `long:"maxcommitattempts" description:"Maximum number of attempts to commit a block to the database"`
	CommitRetryDelay  time.Duration `long:"commitretrydelay" description:"Time to wait between attempts to commit a block"`
	MaxTipAge         time.Duration `long:"maxtipage" description:"Age of the best block beyond which the chain is considered to be syncing"`
	IndexCacheSize    uint32        `long:"indexcache" description:"Number of block indexes to keep in memory, 0 for the default"`
	VerifyWorkers     int           `long:"verifyworkers" description:"Number of concurrent signature verifications, -1 to verify sequentially and 0 for the number of CPUs"`

	// Block import and export.
	ImportBlocks   string `long:"importblocks" description:"Process the blocks of a flat file written by --dumpblockchain before starting"`
	DumpBlockchain string `long:"dumpblockchain" description:"Write main chain blocks to a flat file and exit"`

	// Profiling and metrics.
	Profile    string `long:"profile" description:"Enable HTTP profiling and metrics on given [addr:]port -- NOTE port must be between 1024 and 65535"`
	CPUProfile string `long:"cpuprofile" description:"Write CPU profile to the specified file"`

	// The following fields are set during validation.
	params         *chaincfg.Params
	logSizeKiB     int64
	configFileWarn error
}

// errSuppressUsage signifies that an error that happened during the initial
// configuration phase should suppress the usage output since it was not
// caused by the user.
type errSuppressUsage string

// Error implements the error interface.
func (e errSuppressUsage) Error() string {
	return string(e)
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Nothing to do when no path is given.
	if path == "" {
		return path
	}

	// Expand initial ~ to the current user's home directory.
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// parseLogSize converts a size with an optional K, M or G suffix into KiB.
func parseLogSize(size string) (int64, error) {
	size = strings.ToUpper(strings.TrimSpace(size))
	multiplier := int64(1)
	if n := len(size); n > 0 {
		switch size[n-1] {
		case 'K':
			size = size[:n-1]
		case 'M':
			multiplier = 1 << 10
			size = size[:n-1]
		case 'G':
			multiplier = 1 << 20
			size = size[:n-1]
		}
	}
	value, err := strconv.ParseInt(size, 10, 64)
	if err != nil || value <= 0 || value > math.MaxInt64/multiplier {
		return 0, fmt.Errorf("invalid log size %q", size)
	}
	return value * multiplier, nil
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// defaultConfig returns a config populated with the default values.
func defaultConfig() config {
	return config{
		HomeDir:           defaultHomeDir,
		ConfigFile:        defaultConfigFile,
		DataDir:           defaultDataDir,
		LogDir:            defaultLogDir,
		LogSize:           defaultLogSize,
		MaxLogRolls:       defaultMaxLogRolls,
		DebugLevel:        defaultLogLevel,
		MemLimit:          defaultMemLimitMiB,
		MaxOrphanBlocks:   defaultMaxOrphans,
		MaxCommitAttempts: defaultCommitAttempts,
		MaxTipAge:         defaultMaxTipAge,
	}
}

// loadConfig initializes and parses the config using a config file and command
// line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in chaind functioning properly without any config settings
// while still allowing the user to override settings with config files and
// command line options.  Command line options always take precedence.
func loadConfig(appName string, args []string) (*config, []string, error) {
	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := defaultConfig()
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS,
			runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory if specified.  Since the home directory is
	// updated, other variables need to be updated to reflect the new
	// changes.
	cfg := defaultConfig()
	if preCfg.HomeDir != "" {
		cfg.HomeDir, _ = filepath.Abs(cleanAndExpandPath(preCfg.HomeDir))
		if preCfg.ConfigFile == defaultConfigFile {
			cfg.ConfigFile = filepath.Join(cfg.HomeDir,
				defaultConfigFilename)
		} else {
			cfg.ConfigFile = preCfg.ConfigFile
		}
		if preCfg.DataDir == defaultDataDir {
			cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname)
		} else {
			cfg.DataDir = preCfg.DataDir
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		} else {
			cfg.LogDir = preCfg.LogDir
		}
	}

	// Load additional config from file.  A missing file is only reported as
	// a warning once logging is set up.
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cleanAndExpandPath(cfg.ConfigFile))
	if err != nil {
		var e *flags.IniError
		if errors.As(err, &e) {
			err := fmt.Errorf("error parsing config file: %w", err)
			return nil, nil, err
		}
		if !os.IsNotExist(err) {
			return nil, nil, err
		}
		cfg.configFileWarn = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if !errors.As(err, &e) || e.Type != flags.ErrHelp {
			return nil, nil, err
		}
		return nil, nil, errSuppressUsage(err.Error())
	}

	// Multiple networks can't be selected simultaneously.
	numNets := 0
	cfg.params = chaincfg.MainNetParams()
	if cfg.TestNet {
		numNets++
		cfg.params = chaincfg.TestNetParams()
	}
	if cfg.SimNet {
		numNets++
		cfg.params = chaincfg.SimNetParams()
	}
	if cfg.RegNet {
		numNets++
		cfg.params = chaincfg.RegNetParams()
	}
	if numNets > 1 {
		str := "loadConfig: the testnet, regnet, and simnet params can't " +
			"be used together -- choose one of the three"
		return nil, nil, errors.New(str)
	}

	// Append the network type to the data and log directories so they are
	// "namespaced" per network.
	cfg.DataDir = filepath.Join(cleanAndExpandPath(cfg.DataDir),
		cfg.params.Name)
	cfg.LogDir = filepath.Join(cleanAndExpandPath(cfg.LogDir),
		cfg.params.Name)

	cfg.logSizeKiB, err = parseLogSize(cfg.LogSize)
	if err != nil {
		return nil, nil, fmt.Errorf("loadConfig: %w", err)
	}
	if cfg.MaxLogRolls < 0 {
		str := "loadConfig: the maximum number of log rolls may not be " +
			"negative -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, cfg.MaxLogRolls)
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Initialize log rotation.  After log rotation has been initialized,
	// the logger variables may be used.
	if !cfg.NoFileLogging {
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		err := initLogRotator(logFile, cfg.logSizeKiB, cfg.MaxLogRolls)
		if err != nil {
			return nil, nil, errSuppressUsage(err.Error())
		}
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("loadConfig: %w", err)
		return nil, nil, err
	}

	if cfg.MaxOrphanBlocks == 0 || cfg.MaxOrphanBlocks < -1 {
		str := "loadConfig: the maximum number of orphan blocks must be " +
			"positive or -1 to disable them -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, cfg.MaxOrphanBlocks)
	}
	if cfg.MaxCommitAttempts < 1 {
		str := "loadConfig: the maximum number of commit attempts must be " +
			"at least 1 -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, cfg.MaxCommitAttempts)
	}
	if cfg.CommitRetryDelay < 0 || cfg.MaxTipAge < 0 {
		str := "loadConfig: durations may not be negative"
		return nil, nil, errors.New(str)
	}
	if cfg.VerifyWorkers < -1 {
		str := "loadConfig: the number of verification workers must be " +
			"-1 or more -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, cfg.VerifyWorkers)
	}

	// The import and dump flags are mutually exclusive.
	cfg.ImportBlocks = cleanAndExpandPath(cfg.ImportBlocks)
	cfg.DumpBlockchain = cleanAndExpandPath(cfg.DumpBlockchain)
	if cfg.ImportBlocks != "" && cfg.DumpBlockchain != "" {
		str := "loadConfig: the --importblocks and --dumpblockchain " +
			"options can't be used together"
		return nil, nil, errors.New(str)
	}

	// Validate the profile address.
	if cfg.Profile != "" {
		cfg.Profile = portToLocalHostAddr(cfg.Profile)
		if err := validateProfileAddr(cfg.Profile); err != nil {
			err := fmt.Errorf("loadConfig: invalid profile address: %w",
				err)
			return nil, nil, err
		}
	}
	cfg.CPUProfile = cleanAndExpandPath(cfg.CPUProfile)

	return &cfg, remainingArgs, nil
}
