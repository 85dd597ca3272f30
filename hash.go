// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package chainhash

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/constraints"
)

// HashFn computes a 64-bit hash for a key. It must be pure and must agree
// with the paired EqualFn: equal keys must hash identically.
type HashFn[K any] func(K) uint64

// EqualFn reports whether two keys are equal. It must be a total,
// reflexive, symmetric, transitive relation.
type EqualFn[K any] func(K, K) bool

// IntegerHash mixes an integer key with the xor-shift-multiply-xor-shift
// finalizer from spec.md §9(a): shift right 23, multiply by the fixed
// constant 0x2127599bf4325c37, shift right 47. It is the default hash for
// every NewComparable table whose key is one of Go's integer kinds.
func IntegerHash[K constraints.Integer](k K) uint64 {
	h := uint64(k)
	h ^= h >> 23
	h *= 0x2127599bf4325c37
	h ^= h >> 47
	return h
}

// BytesHash hashes a byte slice. spec.md §9(b) describes a hand-rolled
// wyhash-style mix with a short-key fast path; this package instead uses
// xxhash, already well-distributed and already part of the example pool's
// dependency surface (goarista pulls it in indirectly via sarama, and
// rpcpool-yellowstone-faithful depends on it directly), which spec.md §9
// explicitly allows ("any well-distributed 64-bit hash works").
func BytesHash(b []byte) uint64 {
	return xxhash.Sum64(b)
}

// StringHash hashes a string with the same algorithm as BytesHash,
// without the string-to-[]byte copy.
func StringHash(s string) uint64 {
	return xxhash.Sum64String(s)
}

// autoHash picks a hash function for a comparable key by type-switching on
// its common shapes (spec.md §6's "auto-selects hash/equal by K's shape").
// Keys outside that common set fall back to hashing their default %v
// formatting; callers with a performance-sensitive composite key should
// use New with an explicit HashFn instead.
func autoHash[K comparable](k K) uint64 {
	switch v := any(k).(type) {
	case int:
		return IntegerHash(v)
	case int8:
		return IntegerHash(v)
	case int16:
		return IntegerHash(v)
	case int32:
		return IntegerHash(v)
	case int64:
		return IntegerHash(v)
	case uint:
		return IntegerHash(v)
	case uint8:
		return IntegerHash(v)
	case uint16:
		return IntegerHash(v)
	case uint32:
		return IntegerHash(v)
	case uint64:
		return IntegerHash(v)
	case uintptr:
		return IntegerHash(v)
	case string:
		return StringHash(v)
	default:
		return StringHash(fmt.Sprintf("%v", v))
	}
}

func autoEqual[K comparable](a, b K) bool {
	return a == b
}

func bytesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}
