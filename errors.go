// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package chainhash

import "errors"

// ErrAllocationFailed is returned by any operation that needed to grow the
// table's backing storage and whose Allocator refused. The table is left
// bit-for-bit unchanged: no bucket is written and key_count does not move.
var ErrAllocationFailed = errors.New("chainhash: allocation failed")
