// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
)

// TestLoadConfig ensures the configuration file is applied on top of the
// defaults and that command line options take precedence over it.
func TestLoadConfig(t *testing.T) {
	homeDir := t.TempDir()
	conf := "[Application Options]\ntxindex=1\nmaxorphanblocks=5\n" +
		"maxtipage=30m\n"
	err := os.WriteFile(filepath.Join(homeDir, defaultConfigFilename),
		[]byte(conf), 0600)
	if err != nil {
		t.Fatalf("unable to write config file: %v", err)
	}

	args := []string{"-A", homeDir, "--nofilelogging", "--regnet",
		"--maxorphanblocks=7"}
	cfg, _, err := loadConfig("chaind", args)
	if err != nil {
		t.Fatalf("loadConfig: unexpected error: %v", err)
	}
	if cfg.params.Name != "regnet" {
		t.Fatalf("unexpected network -- got %s, want regnet", cfg.params.Name)
	}
	if want := filepath.Join(homeDir, defaultDataDirname, "regnet"); cfg.DataDir != want {
		t.Fatalf("unexpected data dir -- got %s, want %s", cfg.DataDir, want)
	}
	if !cfg.TxIndex {
		t.Fatal("tx index from the config file was not applied")
	}
	if cfg.MaxTipAge != 30*time.Minute {
		t.Fatalf("unexpected max tip age -- got %v, want 30m", cfg.MaxTipAge)
	}
	if cfg.MaxOrphanBlocks != 7 {
		t.Fatalf("command line did not take precedence -- got %d orphans, "+
			"want 7", cfg.MaxOrphanBlocks)
	}
	if cfg.MaxCommitAttempts != defaultCommitAttempts {
		t.Fatalf("unexpected commit attempts -- got %d, want %d",
			cfg.MaxCommitAttempts, defaultCommitAttempts)
	}
	if cfg.logSizeKiB != 10*1024 {
		t.Fatalf("unexpected log size -- got %d KiB, want %d KiB",
			cfg.logSizeKiB, 10*1024)
	}
	if cfg.configFileWarn != nil {
		t.Fatalf("unexpected config file warning: %v", cfg.configFileWarn)
	}
}

// TestLoadConfigErrors ensures invalid option combinations are rejected.
func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{{
		name: "multiple networks",
		args: []string{"--testnet", "--simnet"},
	}, {
		name: "invalid debug level",
		args: []string{"--debuglevel=verbose"},
	}, {
		name: "unknown subsystem",
		args: []string{"--debuglevel=NOPE=debug"},
	}, {
		name: "zero orphans",
		args: []string{"--maxorphanblocks=0"},
	}, {
		name: "no commit attempts",
		args: []string{"--maxcommitattempts=0"},
	}, {
		name: "import and dump",
		args: []string{"--importblocks=a.dat", "--dumpblockchain=b.dat"},
	}, {
		name: "profile port out of range",
		args: []string{"--profile=80"},
	}, {
		name: "invalid log size",
		args: []string{"--logsize=big"},
	}, {
		name: "unknown option",
		args: []string{"--nosuchoption"},
	}}
	for _, test := range tests {
		args := append([]string{"-A", t.TempDir(), "--nofilelogging"},
			test.args...)
		if _, _, err := loadConfig("chaind", args); err == nil {
			t.Errorf("%q: did not receive expected error", test.name)
		}
	}
}

// TestParseLogSize ensures log sizes with and without a unit are converted to
// KiB.
func TestParseLogSize(t *testing.T) {
	tests := []struct {
		size    string
		want    int64
		invalid bool
	}{
		{size: "512", want: 512},
		{size: "512K", want: 512},
		{size: "10M", want: 10 * 1024},
		{size: "1g", want: 1024 * 1024},
		{size: "0", invalid: true},
		{size: "-1M", invalid: true},
		{size: "10MB", invalid: true},
		{size: "", invalid: true},
	}
	for _, test := range tests {
		got, err := parseLogSize(test.size)
		if test.invalid {
			if err == nil {
				t.Errorf("%q: did not receive expected error", test.size)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.size, err)
			continue
		}
		if got != test.want {
			t.Errorf("%q: unexpected size -- got %d, want %d", test.size,
				got, test.want)
		}
	}
}

// TestDefaultConfigPaths ensures the default home directory is the standard
// application data directory and the other default paths live under it.
func TestDefaultConfigPaths(t *testing.T) {
	cfg := defaultConfig()
	wantHome := dcrutil.AppDataDir("chaind", false)
	if cfg.HomeDir != wantHome {
		t.Fatalf("unexpected home dir -- got %s, want %s", cfg.HomeDir,
			wantHome)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{{
		name: "config file",
		got:  cfg.ConfigFile,
		want: filepath.Join(wantHome, defaultConfigFilename),
	}, {
		name: "data dir",
		got:  cfg.DataDir,
		want: filepath.Join(wantHome, defaultDataDirname),
	}, {
		name: "log dir",
		got:  cfg.LogDir,
		want: filepath.Join(wantHome, defaultLogDirname),
	}}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("%s: unexpected path -- got %s, want %s", test.name,
				test.got, test.want)
		}
	}
}
