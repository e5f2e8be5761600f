// test_helpers_test.go provides shared test infrastructure: a deterministic
// per-test RNG, random key generation, and set-level assertions used across
// the package's test files.
package setdiff

import (
	"encoding/binary"
	"hash/fnv"
	randv2 "math/rand/v2"
	"testing"
)

// Named seeds for deterministic reproduction.
const (
	testSeed1 = 0x1234567890ABCDEF
	testSeed2 = 0xFEDCBA9876543210
)

// newTestRNG returns an RNG seeded from the test name, so every test gets an
// independent but reproducible stream.
func newTestRNG(t testing.TB) *randv2.Rand {
	t.Helper()
	h := fnv.New128a()
	h.Write([]byte(t.Name()))
	sum := h.Sum(nil)
	s1 := binary.LittleEndian.Uint64(sum[:8])
	s2 := binary.LittleEndian.Uint64(sum[8:])
	return randv2.New(randv2.NewPCG(testSeed1^s1, testSeed2^s2))
}

func randomKey(rng *randv2.Rand) Key {
	return KeyFromUint64(rng.Uint64(), rng.Uint64())
}

func randomKeys(rng *randv2.Rand, n int) []Key {
	keys := make([]Key, 0, n)
	seen := make(map[Key]struct{}, n)
	for len(keys) < n {
		k := randomKey(rng)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// splitKeys partitions a disjoint pool into shared, local-only, and
// remote-only key sets.
func splitKeys(rng *randv2.Rand, shared, localOnly, remoteOnly int) (common, local, remote []Key) {
	pool := randomKeys(rng, shared+localOnly+remoteOnly)
	common = pool[:shared]
	local = pool[shared : shared+localOnly]
	remote = pool[shared+localOnly:]
	return common, local, remote
}

func encodeAll(f *Filter[Key], keySets ...[]Key) {
	for _, keys := range keySets {
		for _, k := range keys {
			f.Encode(k)
		}
	}
}

func keySet(keys []Key) map[Key]struct{} {
	set := make(map[Key]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// requireSameKeySet fails the test unless got contains exactly the keys in
// want, ignoring order.
func requireSameKeySet(t *testing.T, label string, got, want []Key) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d keys, want %d", label, len(got), len(want))
	}
	wantSet := keySet(want)
	for _, k := range got {
		if _, ok := wantSet[k]; !ok {
			t.Fatalf("%s: unexpected key %s", label, k)
		}
		delete(wantSet, k)
	}
}

// mustFilter builds a filter or fails the test.
func mustFilter(t *testing.T, capacity int, opts ...Option) *Filter[Key] {
	t.Helper()
	f, err := New[Key](capacity, opts...)
	if err != nil {
		t.Fatalf("New(%d): %v", capacity, err)
	}
	return f
}

// mustEstimator builds an estimator or fails the test.
func mustEstimator(t *testing.T, opts ...Option) *Estimator[Key] {
	t.Helper()
	e, err := NewEstimator[Key](opts...)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	return e
}

// reconcile runs the subtract+decode path or fails the test.
func reconcile(t *testing.T, local, remote *Filter[Key]) Diff[Key] {
	t.Helper()
	delta, err := local.Subtract(remote)
	if err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	diff, err := delta.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return diff
}
