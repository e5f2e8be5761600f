package setdiff

// bucket is one cell of a filter: a signed net count of the elements routed
// here, the XOR of their identifiers, and the XOR of their fingerprints.
//
// The hashSum exists so that decode can tell a bucket holding exactly one
// element apart from a bucket whose count happens to be ±1 because of a
// cancelled pair: a pure bucket's keySum IS the element, so its freshly
// recomputed fingerprint must match hashSum.
type bucket[T Symbol[T]] struct {
	keySum  T
	hashSum uint64
	count   int64
}

// insert folds x into the bucket. fp must be x.Fingerprint(); callers
// precompute it once per element rather than once per bucket.
func (b *bucket[T]) insert(x T, fp uint64) {
	b.keySum = b.keySum.XOR(x)
	b.hashSum ^= fp
	b.count++
}

// remove is the exact inverse of insert.
func (b *bucket[T]) remove(x T, fp uint64) {
	b.keySum = b.keySum.XOR(x)
	b.hashSum ^= fp
	b.count--
}

// pure reports whether the bucket holds exactly one net element. The
// fingerprint is recomputed fresh from keySum; matching against hashSum
// guards against unrelated elements whose sums coincide at count ±1.
func (b *bucket[T]) pure() bool {
	return (b.count == 1 || b.count == -1) && b.hashSum == b.keySum.Fingerprint()
}

// empty reports whether the bucket holds nothing at all. count alone is not
// authoritative: a cancelled pair can zero the count while leaving sums set,
// and (vanishingly rarely) vice versa.
func (b *bucket[T]) empty() bool {
	var zero T
	return b.count == 0 && b.hashSum == 0 && b.keySum == zero
}
