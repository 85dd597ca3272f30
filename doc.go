// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

// Package chainhash implements a single-threaded, in-memory, open-addressed
// hash table with tombstone-free deletion. Occupied buckets are threaded
// into per-home-bucket chains via a displacement field packed into a
// 16-bit metadata word alongside a hash fragment and a chain-head flag;
// deletion always restores a perfect chain instead of leaving a "deleted"
// marker behind, so lookup cost never degrades under churn.
//
// Table is the map variant; Set is a key-only variant built on the same
// engine. Both are parameterized by an injected hash function and
// equality function, with convenience constructors that pick reasonable
// defaults for common key shapes.
package chainhash
