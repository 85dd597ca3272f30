// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package chainhash

import "math/bits"

// Iterator yields every live (key, value) pair of a Table exactly once,
// in bucket-index order. Ordering is an implementation consequence, not a
// guarantee. Any mutation of the underlying table (Put, Remove, Reserve,
// Shrink, Clear) invalidates every outstanding Iterator.
//
// Next scans the metadata array four slots at a time: it packs four
// adjacent 16-bit metadata words into one uint64 and uses
// bits.TrailingZeros64 to jump straight to the first non-zero word
// (spec.md §4.7's "4-slot fallback"), falling back to a one-slot-at-a-time
// scan for the final, possibly-short tail. The four-wide read is only
// taken while at least four real buckets remain, so it never reaches the
// four trailing sentinel slots the metadata array carries beyond its
// logical end.
type Iterator[K any, V any] struct {
	t   *Table[K, V]
	pos int
	n   int
}

// Iterator returns a fresh Iterator over t's current contents.
func (t *Table[K, V]) Iterator() *Iterator[K, V] {
	return &Iterator[K, V]{t: t, pos: 0, n: len(t.buckets)}
}

// Next advances the iterator and returns the next live (key, value) pair,
// or ok=false once every live bucket has been visited.
func (it *Iterator[K, V]) Next() (key K, value V, ok bool) {
	meta := it.t.meta
	for it.pos < it.n {
		if it.n-it.pos >= 4 {
			word := uint64(meta[it.pos]) |
				uint64(meta[it.pos+1])<<16 |
				uint64(meta[it.pos+2])<<32 |
				uint64(meta[it.pos+3])<<48
			if word == 0 {
				it.pos += 4
				continue
			}
			it.pos += bits.TrailingZeros64(word) / 16
			b := it.pos
			it.pos++
			return it.t.buckets[b].key, it.t.buckets[b].value, true
		}
		if !meta[it.pos].isEmpty() {
			b := it.pos
			it.pos++
			return it.t.buckets[b].key, it.t.buckets[b].value, true
		}
		it.pos++
	}
	var zeroK K
	var zeroV V
	return zeroK, zeroV, false
}

// KeyIterator yields every live key exactly once.
type KeyIterator[K any, V any] struct {
	it *Iterator[K, V]
}

// KeyIterator returns a fresh KeyIterator over t's current contents.
func (t *Table[K, V]) KeyIterator() *KeyIterator[K, V] {
	return &KeyIterator[K, V]{it: t.Iterator()}
}

// Next returns the next live key, or ok=false when exhausted.
func (ki *KeyIterator[K, V]) Next() (K, bool) {
	k, _, ok := ki.it.Next()
	return k, ok
}

// ValueIterator yields every live value exactly once.
type ValueIterator[K any, V any] struct {
	it *Iterator[K, V]
}

// ValueIterator returns a fresh ValueIterator over t's current contents.
func (t *Table[K, V]) ValueIterator() *ValueIterator[K, V] {
	return &ValueIterator[K, V]{it: t.Iterator()}
}

// Next returns the next live value, or ok=false when exhausted.
func (vi *ValueIterator[K, V]) Next() (V, bool) {
	_, v, ok := vi.it.Next()
	return v, ok
}
