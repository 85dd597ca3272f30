// Copyright (c) 2024 Arista Networks, Inc.
// Use of this source code is governed by the Apache License 2.0
// that can be found in the COPYING file.

package chainhash

import (
	"github.com/aristanetworks/glog"
)

const (
	// minBuckets is the smallest bucket count a non-empty table ever has.
	minBuckets = 16

	defaultMaxLoad = 0.875
	minMaxLoad     = 0.1
	maxMaxLoad     = 0.99
)

// bucket is one slot: a key, its value, and (for tables whose keys need
// stored-hash filtering, see Table.storeHash) a cached 64-bit hash that
// lets lookup skip equal() on every fragment-match that isn't a real hit.
type bucket[K any, V any] struct {
	key        K
	value      V
	storedHash uint64
}

// Table is an in-memory, single-threaded, tombstone-free hash table.
// Construct one with New, NewComparable, or NewBytesKeyed; no storage is
// allocated until the first insert.
//
// Occupied buckets are threaded into per-home-bucket chains: every key's
// home bucket is hash(key)&mask, and a 16-bit metadata word per bucket
// (see meta16) records a hash fragment for fast rejection, whether this
// bucket is its chain's head, and the displacement to the next member.
// Deletion always restores a perfect chain rather than leaving a
// "deleted" marker, so lookup cost does not degrade under churn.
type Table[K any, V any] struct {
	buckets []bucket[K, V]
	meta    []meta16
	count   int
	maxLoad float64

	hash  HashFn[K]
	equal EqualFn[K]

	// storeHash is true for keys (byte slices) whose equal() is expensive
	// enough that caching and comparing the full 64-bit hash is worthwhile;
	// otherwise the fragment alone gates equal(). Every bucket carries the
	// storedHash field either way; it is only written when storeHash is set.
	storeHash bool

	alloc Allocator
}

// New constructs an empty Table using the supplied hash and equality
// functions. No storage is allocated until the first insert.
func New[K any, V any](hash HashFn[K], equal EqualFn[K]) *Table[K, V] {
	return &Table[K, V]{
		hash:    hash,
		equal:   equal,
		maxLoad: defaultMaxLoad,
		alloc:   defaultAllocator{},
	}
}

// NewComparable constructs an empty Table for a key type usable with Go's
// == operator, auto-selecting a hash function for common key shapes (see
// autoHash). Keys outside that common set still work, via a %v-based
// fallback; supply an explicit hash with New for anything performance
// sensitive.
func NewComparable[K comparable, V any]() *Table[K, V] {
	return New[K, V](autoHash[K], autoEqual[K])
}

// NewBytesKeyed constructs an empty Table keyed by []byte, using BytesHash
// and bytes.Equal, with the stored-hash fast-reject path enabled so that
// equal() is only called once per true hash collision.
func NewBytesKeyed[V any]() *Table[[]byte, V] {
	t := New[[]byte, V](BytesHash, bytesEqual)
	t.storeHash = true
	return t
}

// SetAllocator installs the Allocator that gates every future grow of t's
// backing storage. Passing nil is a no-op.
func (t *Table[K, V]) SetAllocator(a Allocator) {
	if a != nil {
		t.alloc = a
	}
}

// SetMaxLoadFactor sets the load factor at which t grows, clamped to
// [0.1, 0.99]. It never itself triggers a rehash.
func (t *Table[K, V]) SetMaxLoadFactor(f float64) {
	switch {
	case f < minMaxLoad:
		f = minMaxLoad
	case f > maxMaxLoad:
		f = maxMaxLoad
	}
	t.maxLoad = f
}

// Count returns the number of live keys in t.
func (t *Table[K, V]) Count() int {
	return t.count
}

// BucketCount returns the current bucket count (0 for an unallocated
// table).
func (t *Table[K, V]) BucketCount() int {
	return len(t.buckets)
}

// Capacity returns the number of keys t can hold before its next growth,
// floor(bucket_count * max_load).
func (t *Table[K, V]) Capacity() int {
	return t.capacity()
}

func (t *Table[K, V]) capacity() int {
	return int(float64(len(t.buckets)) * t.maxLoad)
}

// Put inserts k with value v, overwriting any existing value for k.
func (t *Table[K, V]) Put(k K, v V) error {
	_, _, err := t.insert(k, v, false, true)
	return err
}

// PutIfAbsent inserts k with value v only if k is not already present. It
// reports whether an insertion happened.
func (t *Table[K, V]) PutIfAbsent(k K, v V) (bool, error) {
	_, inserted, err := t.insert(k, v, false, false)
	return inserted, err
}

// Get returns the value associated with k, if any.
func (t *Table[K, V]) Get(k K) (V, bool) {
	idx, found := t.lookup(k)
	if !found {
		var zero V
		return zero, false
	}
	return t.buckets[idx].value, true
}

// GetRef returns a pointer to the value associated with k, if any, for
// in-place mutation. The pointer is invalidated by any later mutation of
// t (put, remove, reserve, shrink, rehash, clear).
func (t *Table[K, V]) GetRef(k K) (*V, bool) {
	idx, found := t.lookup(k)
	if !found {
		return nil, false
	}
	return &t.buckets[idx].value, true
}

// Contains reports whether k is present.
func (t *Table[K, V]) Contains(k K) bool {
	_, found := t.lookup(k)
	return found
}

// GetOrInsert returns a pointer to k's existing value, or, if k is
// absent, inserts it with V's zero value and returns a pointer to that
// fresh slot for the caller to initialize. The second return value
// reports whether k already existed.
func (t *Table[K, V]) GetOrInsert(k K) (*V, bool, error) {
	var zero V
	idx, inserted, err := t.insert(k, zero, false, false)
	if err != nil {
		return nil, false, err
	}
	return &t.buckets[idx].value, !inserted, nil
}

// Remove deletes k, if present, using the tombstone-free unlink of
// spec.md §4.4. It reports whether a key was removed.
func (t *Table[K, V]) Remove(k K) bool {
	return t.delete(k)
}

// Clear resets t to empty, keeping its current allocation.
func (t *Table[K, V]) Clear() {
	for i := 0; i < len(t.buckets); i++ {
		t.meta[i] = metaEmpty
		t.clearBucket(i)
	}
	t.count = 0
}

// Reserve grows t, if needed, so that Capacity() >= n. It never shrinks
// t and never changes BucketCount() if Capacity() already covers n.
func (t *Table[K, V]) Reserve(n int) error {
	if n <= 0 || (len(t.buckets) > 0 && n <= t.capacity()) {
		return nil
	}
	target := minBucketsFor(n, t.maxLoad)
	if target <= len(t.buckets) {
		return nil
	}
	return t.rehashTo(target)
}

// Shrink reduces BucketCount() to the smallest power of two that still
// satisfies the load factor for the current key count.
func (t *Table[K, V]) Shrink() error {
	target := minBucketsFor(t.count, t.maxLoad)
	if target >= len(t.buckets) {
		return nil
	}
	return t.rehashTo(target)
}

// Clone returns a deep copy of t. K and V are assumed trivially copyable;
// subsequent mutation of either table does not affect the other.
func (t *Table[K, V]) Clone() (*Table[K, V], error) {
	if err := t.alloc.Reserve(len(t.buckets)); err != nil {
		return nil, ErrAllocationFailed
	}
	nt := &Table[K, V]{
		hash:      t.hash,
		equal:     t.equal,
		maxLoad:   t.maxLoad,
		storeHash: t.storeHash,
		alloc:     t.alloc,
		count:     t.count,
	}
	if len(t.buckets) > 0 {
		nt.buckets = make([]bucket[K, V], len(t.buckets))
		copy(nt.buckets, t.buckets)
		nt.meta = make([]meta16, len(t.meta))
		copy(nt.meta, t.meta)
	}
	return nt, nil
}

func (t *Table[K, V]) clearBucket(idx int) {
	var zeroK K
	var zeroV V
	t.buckets[idx].key = zeroK
	t.buckets[idx].value = zeroV
	t.buckets[idx].storedHash = 0
}

// minBucketsFor returns the smallest power-of-two bucket count, at least
// minBuckets, whose capacity under maxLoad holds n keys.
func minBucketsFor(n int, maxLoad float64) int {
	target := minBuckets
	for int(float64(target)*maxLoad) < n {
		target *= 2
	}
	return target
}

// lookup implements spec.md §4.2. It returns the bucket index holding k,
// or found=false.
func (t *Table[K, V]) lookup(k K) (int, bool) {
	if len(t.buckets) == 0 {
		return 0, false
	}
	h := t.hash(k)
	mask := uint64(len(t.buckets) - 1)
	home := int(h & mask)
	frag := fragmentOf(h)

	bm := t.meta[home]
	if !bm.isHome() {
		return 0, false
	}

	b := home
	for {
		if t.chainMatches(b, bm, h, frag) && t.equal(t.buckets[b].key, k) {
			return b, true
		}
		if bm.isEndOfChain() {
			return 0, false
		}
		b = int((uint64(home) + uint64(bm.displacement())) & mask)
		bm = t.meta[b]
	}
}

// chainMatches is lookup's and insert's "fast reject" filter: the stored
// hash for byte-slice-keyed tables, or the metadata fragment otherwise.
func (t *Table[K, V]) chainMatches(b int, bm meta16, h uint64, frag uint16) bool {
	if t.storeHash {
		return t.buckets[b].storedHash == h
	}
	return bm.fragment() == frag
}

// insert is the public entry point shared by Put, PutIfAbsent, and
// GetOrInsert. It retries under growth exactly as spec.md §4.3 describes:
// a GROW_NEEDED signal from tryInsertHashed doubles the bucket count via
// rehashTo and restarts the whole attempt.
func (t *Table[K, V]) insert(k K, v V, uniqueHint, replaceOnConflict bool) (int, bool, error) {
	for {
		if len(t.buckets) == 0 {
			if err := t.rehashTo(minBuckets); err != nil {
				return 0, false, err
			}
		}
		h := t.hash(k)
		idx, inserted, needGrow := t.tryInsertHashed(h, k, v, uniqueHint, replaceOnConflict)
		if !needGrow {
			return idx, inserted, nil
		}
		if err := t.rehashTo(len(t.buckets) * 2); err != nil {
			return 0, false, err
		}
	}
}

// tryInsertHashed implements spec.md §4.3's Phase A (home bucket free,
// possibly evicting an interloper) and Phase B (chain walk and
// displacement-sorted splice) against the table's *current* size. A true
// needGrow return means the caller must grow and retry; no bucket or
// metadata has been touched when that happens.
func (t *Table[K, V]) tryInsertHashed(h uint64, k K, v V, uniqueHint, replaceOnConflict bool) (idx int, inserted bool, needGrow bool) {
	n := len(t.buckets)
	mask := uint64(n - 1)
	home := int(h & mask)
	frag := fragmentOf(h)

	headMeta := t.meta[home]
	if !headMeta.isHome() {
		// Phase A: nothing claims home as a chain head yet.
		if t.count+1 > t.capacity() {
			return 0, false, true
		}
		if !headMeta.isEmpty() {
			if !t.evict(home) {
				return 0, false, true
			}
		}
		t.writeBucket(home, h, k, v)
		t.meta[home] = newChainHead(h)
		t.count++
		return home, true, false
	}

	// Phase B: a chain already occupies home.
	if !uniqueHint {
		b := home
		bm := headMeta
		for {
			if t.chainMatches(b, bm, h, frag) && t.equal(t.buckets[b].key, k) {
				if replaceOnConflict {
					t.buckets[b].value = v
				}
				return b, false, false
			}
			if bm.isEndOfChain() {
				break
			}
			b = int((uint64(home) + uint64(bm.displacement())) & mask)
			bm = t.meta[b]
		}
	}

	if t.count+1 > t.capacity() {
		return 0, false, true
	}

	empty, d, ok := t.probeEmpty(home, mask)
	if !ok {
		return 0, false, true
	}

	t.spliceIntoChain(home, mask, empty, d, frag)
	t.writeBucket(empty, h, k, v)
	t.count++
	return empty, true, false
}

func (t *Table[K, V]) writeBucket(idx int, h uint64, k K, v V) {
	t.buckets[idx].key = k
	t.buckets[idx].value = v
	if t.storeHash {
		t.buckets[idx].storedHash = h
	}
}

// probeEmpty linearly scans forward from home+1 for the first empty
// bucket, as spec.md §4.3's "find insert location" pass and §4.5's
// relocation probe both require. It reports failure once it would exceed
// the displacement field's range.
func (t *Table[K, V]) probeEmpty(home int, mask uint64) (slot int, disp uint16, ok bool) {
	for d := uint16(1); d <= maxDisplacement; d++ {
		s := int((uint64(home) + uint64(d)) & mask)
		if t.meta[s].isEmpty() {
			return s, d, true
		}
	}
	return 0, 0, false
}

// findSpliceLink walks chainHome's chain to find the last link whose
// displacement is <= d, the predecessor a new member at displacement d
// must be spliced after to keep the chain displacement-sorted (spec.md
// §4.3).
func (t *Table[K, V]) findSpliceLink(chainHome int, mask uint64, d uint16) int {
	prev := chainHome
	bm := t.meta[chainHome]
	for {
		if bm.isEndOfChain() || bm.displacement() > d {
			return prev
		}
		next := int((uint64(chainHome) + uint64(bm.displacement())) & mask)
		prev = next
		bm = t.meta[next]
	}
}

// spliceIntoChain links a freshly-written bucket at index empty,
// displacement d from chainHome, into chainHome's chain in
// displacement-sorted order.
func (t *Table[K, V]) spliceIntoChain(chainHome int, mask uint64, empty int, d uint16, frag uint16) {
	prev := t.findSpliceLink(chainHome, mask, d)
	prevMeta := t.meta[prev]
	t.meta[empty] = meta16(frag).withDisplacement(prevMeta.displacement())
	t.meta[prev] = prevMeta.withDisplacement(d)
}

// evict implements spec.md §4.5: home is occupied by a non-home member of
// some other chain rooted at oHome. evict relocates that occupant to a
// free slot reachable from oHome and re-splices it there, leaving home's
// bucket/metadata stale (the caller overwrites both immediately). It
// reports false, leaving the table completely untouched, if no slot is
// reachable within the displacement range.
func (t *Table[K, V]) evict(home int) bool {
	n := len(t.buckets)
	mask := uint64(n - 1)
	occMeta := t.meta[home]

	var oh uint64
	if t.storeHash {
		oh = t.buckets[home].storedHash
	} else {
		oh = t.hash(t.buckets[home].key)
	}
	oHome := int(oh & mask)

	p := t.findPredecessor(oHome, mask, home)

	// Find the relocation slot before mutating anything, so a failure
	// here leaves the table exactly as it was.
	e, d, ok := t.probeEmpty(oHome, mask)
	if !ok {
		return false
	}

	t.meta[p] = t.meta[p].withDisplacement(occMeta.displacement())
	t.spliceIntoChain(oHome, mask, e, d, occMeta.fragment())
	t.buckets[e] = t.buckets[home]
	return true
}

// findPredecessor walks chainHome's chain and returns the bucket whose
// next hop lands on target. target must be a genuine, non-head member of
// chainHome's chain.
func (t *Table[K, V]) findPredecessor(chainHome int, mask uint64, target int) int {
	p := chainHome
	bm := t.meta[chainHome]
	for {
		next := int((uint64(chainHome) + uint64(bm.displacement())) & mask)
		if next == target {
			return p
		}
		p = next
		bm = t.meta[next]
	}
}

// delete implements spec.md §4.4's three-case tombstone-free unlink.
func (t *Table[K, V]) delete(k K) bool {
	if len(t.buckets) == 0 {
		return false
	}
	idx, found := t.lookup(k)
	if !found {
		return false
	}

	n := len(t.buckets)
	mask := uint64(n - 1)
	bm := t.meta[idx]
	t.count--

	if bm.isHome() && bm.isEndOfChain() {
		// Case A: sole member of its chain.
		t.meta[idx] = metaEmpty
		t.clearBucket(idx)
		return true
	}

	var home int
	if bm.isHome() {
		home = idx
	} else {
		var h uint64
		if t.storeHash {
			h = t.buckets[idx].storedHash
		} else {
			h = t.hash(t.buckets[idx].key)
		}
		home = int(h & mask)
	}

	if bm.isEndOfChain() {
		// Case B: tail of a multi-member chain.
		p := t.findPredecessor(home, mask, idx)
		t.meta[p] = t.meta[p].withDisplacement(dispEndOfChain)
		t.meta[idx] = metaEmpty
		t.clearBucket(idx)
		return true
	}

	// Case C: interior bucket. Walk forward to the chain's true tail and
	// swap its payload into idx, which keeps idx's own home-flag and
	// displacement (they still describe idx's position) but adopts the
	// tail's fragment.
	last := idx
	bmLast := bm
	for !bmLast.isEndOfChain() {
		last = int((uint64(home) + uint64(bmLast.displacement())) & mask)
		bmLast = t.meta[last]
	}
	p := t.findPredecessor(home, mask, last)

	t.buckets[idx].key = t.buckets[last].key
	t.buckets[idx].value = t.buckets[last].value
	t.buckets[idx].storedHash = t.buckets[last].storedHash
	t.meta[idx] = bm.withFragment(t.meta[last].fragment())
	t.meta[p] = t.meta[p].withDisplacement(dispEndOfChain)
	t.meta[last] = metaEmpty
	t.clearBucket(last)
	return true
}

// rehashTo implements spec.md §4.6: it reinserts every live key into a
// freshly allocated pair of arrays sized n, doubling n and retrying if a
// pathological hash distribution makes that size unreachable.
func (t *Table[K, V]) rehashTo(n int) error {
	oldN := len(t.buckets)
	for {
		if err := t.alloc.Reserve(n); err != nil {
			return ErrAllocationFailed
		}
		nt := &Table[K, V]{
			buckets:   make([]bucket[K, V], n),
			meta:      make([]meta16, n+4),
			maxLoad:   t.maxLoad,
			hash:      t.hash,
			equal:     t.equal,
			storeHash: t.storeHash,
			alloc:     t.alloc,
		}
		// Trailing sentinel slots past the last bucket. The iterator
		// bounds its group scan by the bucket count and never reads them;
		// the non-zero first slot marks the end of the metadata array.
		nt.meta[n] = 1

		ok := true
		for i := range t.buckets {
			if t.meta[i].isEmpty() {
				continue
			}
			h := t.buckets[i].storedHash
			if !t.storeHash {
				h = t.hash(t.buckets[i].key)
			}
			if _, _, needGrow := nt.tryInsertHashed(h, t.buckets[i].key, t.buckets[i].value, true, false); needGrow {
				ok = false
				break
			}
		}
		if ok {
			t.buckets = nt.buckets
			t.meta = nt.meta
			if n > oldN {
				glog.V(2).Infof("chainhash: grew table from %d to %d buckets (%d live keys)", oldN, n, t.count)
			} else if n < oldN {
				glog.V(2).Infof("chainhash: shrank table from %d to %d buckets (%d live keys)", oldN, n, t.count)
			}
			return nil
		}
		glog.V(2).Infof("chainhash: displacement overflow rehashing into %d buckets, retrying at %d", n, n*2)
		n *= 2
	}
}
