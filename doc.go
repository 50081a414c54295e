// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
chaind maintains the chain state of a proof-of-work and proof-of-stake block
chain.

It stores the block tree, the unspent transaction outputs, the token data and
the pool accounting in a LevelDB database, selects the best chain by cumulative
chain trust, and reorganizes between competing chains.  Blocks are fed to the
chain state from flat block files and the main chain can be written to one.

The default options are sane for most users.  The long form of all of the
options (except -C) can be specified in a configuration file that is
automatically parsed when chaind starts up.  By default, the configuration file
is located at ~/.chaind/chaind.conf on POSIX-style operating systems and
%LOCALAPPDATA%\Chaind\chaind.conf on Windows.  The -C (--configfile) flag can be
used to override this location.

Usage:

	chaind [OPTIONS]

Application Options:

	-V, --version            Display version information and exit
	-A, --appdata=           Path to application home directory
	-C, --configfile=        Path to configuration file
	-b, --datadir=           Directory to store data
	    --logdir=            Directory to log output
	    --logsize=           Maximum size of log file before it is rotated
	                         (default: 10M)
	    --maxlogrolls=       Maximum number of rotated log files to keep
	                         (default: 3)
	    --nofilelogging      Disable file logging
	-d, --debuglevel=        Logging level for all subsystems {trace, debug,
	                         info, warn, error, critical} -- You may also
	                         specify <subsystem>=<level>,<subsystem2>=<level>,...
	                         to set the log level for individual subsystems --
	                         Use show to list available subsystems (default:
	                         info)
	    --memlimit=          Soft memory limit of the process in MiB, 0 to
	                         disable (default: 1536)
	    --testnet            Use the test network
	    --simnet             Use the simulation test network
	    --regnet             Use the regression test network
	    --txindex            Maintain an index of the transactions in the main
	                         chain
	    --maxorphanblocks=   Maximum number of orphan blocks to keep in memory,
	                         -1 to disable orphans (default: 512)
	    --maxcommitattempts= Maximum number of attempts to commit a block to the
	                         database (default: 10)
	    --commitretrydelay=  Time to wait between attempts to commit a block
	    --maxtipage=         Age of the best block beyond which the chain is
	                         considered to be syncing (default: 24h)
	    --indexcache=        Number of block indexes to keep in memory, 0 for
	                         the default
	    --verifyworkers=     Number of concurrent signature verifications, -1 to
	                         verify sequentially and 0 for the number of CPUs
	    --importblocks=      Process the blocks of a flat file written by
	                         --dumpblockchain before starting
	    --dumpblockchain=    Write main chain blocks to a flat file and exit
	    --profile=           Enable HTTP profiling and metrics on given
	                         [addr:]port -- NOTE port must be between 1024 and
	                         65535
	    --cpuprofile=        Write CPU profile to the specified file

Help Options:

	-h, --help           Show this help message
*/
package main
