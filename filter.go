package setdiff

import (
	"slices"

	seterrors "github.com/tamirms/setdiff/errors"
)

const (
	// indexSeedStride separates the derived seeds of the index family.
	// Golden-ratio increment, the usual splitmix stream constant.
	indexSeedStride = 0x9e3779b97f4a7c15

	// indexProbeLimit bounds the deterministic search for a distinct bucket
	// index per slot. Past the limit a duplicate index is accepted: encode,
	// subtract, and peel all derive the identical index set, so duplicates
	// only lower the decode probability, never correctness.
	indexProbeLimit = 16
)

// Filter is an Invertible Bloom Filter: a fixed-capacity sketch of a set
// supporting insertion, subtraction against a same-shape sketch, and
// recovery of the sketched elements by peeling.
//
// A Filter's shape is (capacity, hashCount, seed). Binary operations require
// equal shape; the seed is part of the shape because two parties route an
// element to identical buckets only when their seeds match, and that
// determinism is what makes shared elements cancel under subtraction.
//
// A Filter is a plain value container: not safe for concurrent mutation,
// safe for concurrent reads once construction is complete.
type Filter[T Symbol[T]] struct {
	buckets   []bucket[T]
	hashCount int
	seed      uint64
}

// Diff is the result of decoding a subtracted filter: the elements present
// only in the local set and those present only in the remote set. The two
// slices are disjoint; ordering within each slice is scan-dependent and not
// part of the contract.
type Diff[T Symbol[T]] struct {
	OnlyLocal  []T
	OnlyRemote []T
}

// Count returns the total number of differing elements.
func (d Diff[T]) Count() int {
	return len(d.OnlyLocal) + len(d.OnlyRemote)
}

// New creates an empty filter with the given bucket capacity. The capacity
// must be at least the hash count (default 3, see WithHashCount); size it
// from an Estimator capacity hint when the difference magnitude is unknown.
func New[T Symbol[T]](capacity int, opts ...Option) (*Filter[T], error) {
	cfg := applyOptions(opts)
	return newFilter[T](capacity, cfg.hashCount, cfg.seed)
}

func newFilter[T Symbol[T]](capacity, hashCount int, seed uint64) (*Filter[T], error) {
	if hashCount < 1 || hashCount > maxHashCount {
		return nil, seterrors.ErrInvalidHashCount
	}
	if capacity < hashCount {
		return nil, seterrors.ErrInvalidCapacity
	}
	return &Filter[T]{
		buckets:   make([]bucket[T], capacity),
		hashCount: hashCount,
		seed:      seed,
	}, nil
}

// Capacity returns the number of buckets.
func (f *Filter[T]) Capacity() int {
	return len(f.buckets)
}

// HashCount returns the number of bucket indices derived per element.
func (f *Filter[T]) HashCount() int {
	return f.hashCount
}

// Seed returns the routing seed carried in the filter's shape.
func (f *Filter[T]) Seed() uint64 {
	return f.seed
}

// SameShape reports whether f and other can be combined.
func (f *Filter[T]) SameShape(other *Filter[T]) bool {
	return len(f.buckets) == len(other.buckets) &&
		f.hashCount == other.hashCount &&
		f.seed == other.seed
}

// bucketIndices derives the element's hashCount bucket indices into dst.
// Derivation is purely a function of (element, shape): every operation that
// touches an element's buckets goes through here, which is what guarantees
// encode, subtraction cancellation, and peeling all agree.
//
// Each slot probes deterministically for an index distinct from the slots
// before it, falling back to a duplicate after indexProbeLimit attempts.
func (f *Filter[T]) bucketIndices(x T, dst []int) []int {
	n := uint64(len(f.buckets))
	dst = dst[:0]
	for slot := 0; slot < f.hashCount; slot++ {
		derived := f.seed + uint64(slot)*indexSeedStride
		idx := int(x.Hash(derived) % n)
		for probe := 1; probe < indexProbeLimit && slices.Contains(dst, idx); probe++ {
			idx = int(x.Hash(derived+uint64(probe)) % n)
		}
		dst = append(dst, idx)
	}
	return dst
}

// Encode inserts an element into the filter. It cannot fail: every
// well-formed element is routed to hashCount buckets and folded in.
func (f *Filter[T]) Encode(x T) {
	fp := x.Fingerprint()
	var idx [maxHashCount]int
	for _, i := range f.bucketIndices(x, idx[:0]) {
		f.buckets[i].insert(x, fp)
	}
}

// Remove un-encodes an element, restoring the exact state from before the
// matching Encode. Removing an element that was never encoded is legal in
// the ledger sense: the filter then sketches that element as a deletion.
func (f *Filter[T]) Remove(x T) {
	fp := x.Fingerprint()
	var idx [maxHashCount]int
	for _, i := range f.bucketIndices(x, idx[:0]) {
		f.buckets[i].remove(x, fp)
	}
}

// Subtract returns a new filter sketching the symmetric difference between
// the local filter f and the remote filter other: counts subtracted, sums
// XOR-combined bucket by bucket. Elements encoded by both sides occupy
// identical buckets and cancel exactly. The result owns its bucket array and
// aliases neither input.
func (f *Filter[T]) Subtract(other *Filter[T]) (*Filter[T], error) {
	if !f.SameShape(other) {
		return nil, seterrors.ErrShapeMismatch
	}
	out := &Filter[T]{
		buckets:   make([]bucket[T], len(f.buckets)),
		hashCount: f.hashCount,
		seed:      f.seed,
	}
	for i := range f.buckets {
		out.buckets[i] = bucket[T]{
			keySum:  f.buckets[i].keySum.XOR(other.buckets[i].keySum),
			hashSum: f.buckets[i].hashSum ^ other.buckets[i].hashSum,
			count:   f.buckets[i].count - other.buckets[i].count,
		}
	}
	return out, nil
}

// Merge returns a new filter sketching the multiset union of f and other:
// counts added, sums XOR-combined. Merge is how independently built shards
// of one logical set are folded together (see BuildFilter).
func (f *Filter[T]) Merge(other *Filter[T]) (*Filter[T], error) {
	if !f.SameShape(other) {
		return nil, seterrors.ErrShapeMismatch
	}
	out := &Filter[T]{
		buckets:   make([]bucket[T], len(f.buckets)),
		hashCount: f.hashCount,
		seed:      f.seed,
	}
	for i := range f.buckets {
		out.buckets[i] = bucket[T]{
			keySum:  f.buckets[i].keySum.XOR(other.buckets[i].keySum),
			hashSum: f.buckets[i].hashSum ^ other.buckets[i].hashSum,
			count:   f.buckets[i].count + other.buckets[i].count,
		}
	}
	return out, nil
}

// Clone returns a deep copy of the filter.
func (f *Filter[T]) Clone() *Filter[T] {
	return &Filter[T]{
		buckets:   slices.Clone(f.buckets),
		hashCount: f.hashCount,
		seed:      f.seed,
	}
}

// Equal reports whether f and other have identical shape and identical
// bucket contents.
func (f *Filter[T]) Equal(other *Filter[T]) bool {
	return f.SameShape(other) && slices.Equal(f.buckets, other.buckets)
}

// Empty reports whether every bucket is zeroed.
func (f *Filter[T]) Empty() bool {
	for i := range f.buckets {
		if !f.buckets[i].empty() {
			return false
		}
	}
	return true
}

// Decode recovers the elements sketched in the filter by peeling: repeatedly
// find a bucket holding exactly one net element, read the element out of its
// key sum, and un-route it from all of its buckets, which may purify others.
//
// Called on the result of Subtract, a count of +1 recovers an element
// present only locally and -1 an element present only remotely. Decode
// operates on a scratch copy; the receiver is unchanged.
//
// Decode succeeds only if peeling zeroes every bucket. If it stalls first,
// the filter was undersized for the actual difference: the partial result is
// discarded and ErrInsufficientCapacity returned, and the caller should
// re-exchange a larger filter.
func (f *Filter[T]) Decode() (Diff[T], error) {
	scratch := f.Clone()
	var diff Diff[T]

	// Work queue of candidate bucket indices. Purity is re-checked on pop:
	// an index may be queued more than once, or spoiled between queue and
	// pop by another peel.
	queue := make([]int, 0, len(scratch.buckets))
	for i := range scratch.buckets {
		if scratch.buckets[i].pure() {
			queue = append(queue, i)
		}
	}

	var idx [maxHashCount]int
	for len(queue) > 0 {
		i := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		b := &scratch.buckets[i]
		if !b.pure() {
			continue
		}

		x := b.keySum
		local := b.count == 1
		if local {
			diff.OnlyLocal = append(diff.OnlyLocal, x)
		} else {
			diff.OnlyRemote = append(diff.OnlyRemote, x)
		}
		// A filter cannot hold more distinct recoverable elements than it
		// has buckets; exceeding that means a fingerprint collision sent
		// peeling astray.
		if diff.Count() > len(scratch.buckets) {
			return Diff[T]{}, seterrors.ErrInsufficientCapacity
		}

		fp := x.Fingerprint()
		for _, j := range scratch.bucketIndices(x, idx[:0]) {
			if local {
				scratch.buckets[j].remove(x, fp)
			} else {
				scratch.buckets[j].insert(x, fp)
			}
			if scratch.buckets[j].pure() {
				queue = append(queue, j)
			}
		}
	}

	if !scratch.Empty() {
		return Diff[T]{}, seterrors.ErrInsufficientCapacity
	}
	return diff, nil
}
