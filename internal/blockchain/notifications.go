// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"fmt"

	"github.com/decred/dcrd/chaincfg/chainhash"
	"github.com/stakechain/chaind/wire"
)

// NotificationType represents the type of a notification message.
type NotificationType int

// Constants for the type of a notification message.
const (
	// NTNewTip indicates the tip of the main chain changed.  It is sent
	// once per call to ProcessBlock regardless of how many blocks were
	// connected, including blocks released from the orphan pool.
	NTNewTip NotificationType = iota

	// NTBlockConnected indicates a block was connected to the main chain.
	NTBlockConnected

	// NTBlockDisconnected indicates a block was disconnected from the main
	// chain.
	NTBlockDisconnected
)

// notificationTypeStrings is a map of notification types back to their
// constant names for pretty printing.
var notificationTypeStrings = map[NotificationType]string{
	NTNewTip:            "NTNewTip",
	NTBlockConnected:    "NTBlockConnected",
	NTBlockDisconnected: "NTBlockDisconnected",
}

// String returns the NotificationType in human-readable form.
func (n NotificationType) String() string {
	if s, ok := notificationTypeStrings[n]; ok {
		return s
	}
	return fmt.Sprintf("Unknown Notification Type (%d)", int(n))
}

// NewTipNtfnsData is the structure for data indicating the new tip of the main
// chain.
type NewTipNtfnsData struct {
	Hash   chainhash.Hash
	Height int64
}

// BlockConnectedNtfnsData is the structure for data indicating information
// about a connected block.
type BlockConnectedNtfnsData struct {
	Block  *wire.MsgBlock
	Height int64
}

// BlockDisconnectedNtfnsData is the structure for data indicating information
// about a disconnected block.
type BlockDisconnectedNtfnsData struct {
	Block  *wire.MsgBlock
	Height int64
}

// Notification defines notification that is sent to the caller via callback
// functions.  The Data field depends on the Type:
//
//   - NTNewTip:            *NewTipNtfnsData
//   - NTBlockConnected:    *BlockConnectedNtfnsData
//   - NTBlockDisconnected: *BlockDisconnectedNtfnsData
type Notification struct {
	Type NotificationType
	Data interface{}
}

// NotificationCallback is used for a caller to provide a callback for
// notifications about various chain events.
//
// Callbacks are invoked synchronously by the goroutine processing a block
// after the block was committed.  They must not call ProcessBlock.
type NotificationCallback func(*Notification)

// Subscribe registers a callback to be invoked for every notification sent
// from now on.
func (b *BlockChain) Subscribe(callback NotificationCallback) {
	b.notificationsLock.Lock()
	b.notifications = append(b.notifications, callback)
	b.notificationsLock.Unlock()
}

// sendNotification sends a notification with the passed type and data to
// every subscriber.
func (b *BlockChain) sendNotification(typ NotificationType, data interface{}) {
	b.notificationsLock.RLock()
	callbacks := b.notifications
	b.notificationsLock.RUnlock()

	n := Notification{Type: typ, Data: data}
	for _, callback := range callbacks {
		callback(&n)
	}
}
