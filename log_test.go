// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"testing"

	"github.com/decred/slog"
)

// TestParseAndSetDebugLevels ensures debug levels are applied to all or to
// individual subsystems and that invalid levels are rejected.
func TestParseAndSetDebugLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		want    map[string]slog.Level
		invalid bool
	}{{
		name:  "all subsystems",
		level: "debug",
		want:  map[string]slog.Level{"CHAN": slog.LevelDebug, "UTXO": slog.LevelDebug},
	}, {
		name:  "single subsystem",
		level: "CHAN=trace",
		want:  map[string]slog.Level{"CHAN": slog.LevelTrace, "UTXO": slog.LevelDebug},
	}, {
		name:  "several subsystems",
		level: "CHAN=warn,ACCT=error",
		want:  map[string]slog.Level{"CHAN": slog.LevelWarn, "ACCT": slog.LevelError},
	}, {
		name:    "invalid level",
		level:   "loud",
		invalid: true,
	}, {
		name:    "missing pair",
		level:   "CHAN=info,debug",
		invalid: true,
	}, {
		name:    "unknown subsystem",
		level:   "NOPE=info",
		invalid: true,
	}}
	for _, test := range tests {
		err := parseAndSetDebugLevels(test.level)
		if test.invalid {
			if err == nil {
				t.Errorf("%q: did not receive expected error", test.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", test.name, err)
			continue
		}
		for subsys, want := range test.want {
			if got := subsystemLoggers[subsys].Level(); got != want {
				t.Errorf("%q: unexpected level for %s -- got %v, want %v",
					test.name, subsys, got, want)
			}
		}
	}
	setLogLevels(defaultLogLevel)
}
