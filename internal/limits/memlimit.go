// Copyright (c) 2022 The Decred developers
// Copyright (c) 2026 The stakechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package limits applies process wide resource limits for chaind.
package limits

import (
	"math"
	"runtime/debug"
)

// SetMemoryLimit configures the runtime to use the provided number of MiB as
// a soft memory limit.  A limit of zero removes any previously set limit.
//
// It returns the limit that was in effect before the call in bytes.
func SetMemoryLimit(limitMiB uint64) int64 {
	limit := int64(math.MaxInt64)
	if limitMiB != 0 && limitMiB <= math.MaxInt64>>20 {
		limit = int64(limitMiB << 20)
	}
	return debug.SetMemoryLimit(limit)
}
