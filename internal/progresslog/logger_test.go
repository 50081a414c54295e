// Copyright (c) 2021 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import (
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/decred/slog"
	"github.com/stakechain/chaind/wire"
)

var (
	backendLog = slog.NewBackend(io.Discard)
	testLog    = backendLog.Logger("TEST")
)

// testTx returns a transaction with the given number of inputs.
func testTx(numInputs int) *wire.MsgTx {
	tx := wire.NewMsgTx()
	for i := 0; i < numInputs; i++ {
		op := wire.OutPoint{Index: uint32(i)}
		tx.AddTxIn(wire.NewTxIn(&op, nil))
	}
	return tx
}

// TestLogProgress ensures the logging functionality works as expected via a
// test logger.
func TestLogProgress(t *testing.T) {
	testBlocks := []wire.MsgBlock{{
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: time.Unix(1293623863, 0), // 2010-12-29 11:57:43 +0000 UTC
		},
		Transactions: []*wire.MsgTx{testTx(1), testTx(2), testTx(1), testTx(3)},
	}, {
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: time.Unix(1293624163, 0), // 2010-12-29 12:02:43 +0000 UTC
			ConsensusData: wire.ConsensusData{
				Type: wire.ConsensusPoS,
			},
		},
		Transactions: []*wire.MsgTx{testTx(2), testTx(2)},
	}, {
		Header: wire.BlockHeader{
			Version:   1,
			Timestamp: time.Unix(1293624463, 0), // 2010-12-29 12:07:43 +0000 UTC
		},
		Transactions: []*wire.MsgTx{testTx(1), testTx(1), testTx(1)},
	}}

	tests := []struct {
		name               string
		reset              bool
		inputBlock         *wire.MsgBlock
		forceLog           bool
		inputLastLogTime   time.Time
		wantReceivedBlocks uint64
		wantReceivedTxns   uint64
		wantReceivedInputs uint64
		wantReceivedStaked uint64
	}{{
		name:               "round 1, block 0, last log time < 10 secs ago, not forced",
		inputBlock:         &testBlocks[0],
		forceLog:           false,
		inputLastLogTime:   time.Now(),
		wantReceivedBlocks: 1,
		wantReceivedTxns:   4,
		wantReceivedInputs: 7,
		wantReceivedStaked: 0,
	}, {
		name:               "round 1, block 1, last log time < 10 secs ago, not forced",
		inputBlock:         &testBlocks[1],
		forceLog:           false,
		inputLastLogTime:   time.Now(),
		wantReceivedBlocks: 2,
		wantReceivedTxns:   6,
		wantReceivedInputs: 11,
		wantReceivedStaked: 1,
	}, {
		name:               "round 1, block 2, last log time < 10 secs ago, forced",
		inputBlock:         &testBlocks[2],
		forceLog:           true,
		inputLastLogTime:   time.Now(),
		wantReceivedBlocks: 0,
		wantReceivedTxns:   0,
		wantReceivedInputs: 0,
		wantReceivedStaked: 0,
	}, {
		name:               "round 2, block 1, last log time < 10 secs ago, not forced",
		reset:              true,
		inputBlock:         &testBlocks[1],
		forceLog:           false,
		inputLastLogTime:   time.Now(),
		wantReceivedBlocks: 1,
		wantReceivedTxns:   2,
		wantReceivedInputs: 4,
		wantReceivedStaked: 1,
	}, {
		name:               "round 2, block 0, last log time > 10 secs ago, not forced",
		inputBlock:         &testBlocks[0],
		forceLog:           false,
		inputLastLogTime:   time.Now().Add(-11 * time.Second),
		wantReceivedBlocks: 0,
		wantReceivedTxns:   0,
		wantReceivedInputs: 0,
		wantReceivedStaked: 0,
	}}

	progressLogger := New("Processed", testLog)
	for i, test := range tests {
		if test.reset {
			progressLogger = New("Processed", testLog)
		}
		progressLogger.SetLastLogTime(test.inputLastLogTime)
		progressLogger.LogProgress(test.inputBlock, int64(100000+i),
			test.forceLog)
		wantBlockProgressLogger := &Logger{
			receivedBlocks:  test.wantReceivedBlocks,
			receivedTxns:    test.wantReceivedTxns,
			receivedInputs:  test.wantReceivedInputs,
			receivedStaked:  test.wantReceivedStaked,
			lastLogTime:     progressLogger.lastLogTime,
			progressAction:  progressLogger.progressAction,
			subsystemLogger: progressLogger.subsystemLogger,
		}
		if !reflect.DeepEqual(progressLogger, wantBlockProgressLogger) {
			t.Errorf("%s:\nwant: %+v\ngot: %+v\n", test.name,
				wantBlockProgressLogger, progressLogger)
		}
	}
}
