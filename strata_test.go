// strata_test.go tests the strata estimator: routing, shape validation, and
// the end-to-end estimate-then-reconcile flow.
package setdiff

import (
	"context"
	"errors"
	"testing"

	seterrors "github.com/tamirms/setdiff/errors"
)

func TestNewEstimatorValidation(t *testing.T) {
	cases := []struct {
		name    string
		opts    []Option
		wantErr error
	}{
		{"defaults", nil, nil},
		{"zero strata", []Option{WithStrataCount(0)}, seterrors.ErrInvalidStrataCount},
		{"excessive strata", []Option{WithStrataCount(maxStrataCount + 1)}, seterrors.ErrInvalidStrataCount},
		{"stratum capacity below hash count", []Option{WithStratumCapacity(1)}, seterrors.ErrInvalidCapacity},
		{"custom shape", []Option{WithStrataCount(16), WithStratumCapacity(40)}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e, err := NewEstimator[Key](tc.opts...)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got err %v, want %v", err, tc.wantErr)
			}
			if tc.wantErr == nil && e.StrataCount() < 1 {
				t.Error("estimator has no strata")
			}
		})
	}
}

func TestStratumRoutingDistribution(t *testing.T) {
	// Trailing-zero stratification is geometric: stratum 0 takes roughly
	// half of all elements, stratum 1 a quarter, and so on.
	rng := newTestRNG(t)
	e := mustEstimator(t)

	const n = 10000
	counts := make([]int, e.StrataCount())
	for range n {
		counts[e.stratumOf(randomKey(rng))]++
	}

	if counts[0] < n*4/10 || counts[0] > n*6/10 {
		t.Errorf("stratum 0 received %d of %d, want roughly half", counts[0], n)
	}
	if counts[1] < n*2/10 || counts[1] > n*3/10 {
		t.Errorf("stratum 1 received %d of %d, want roughly a quarter", counts[1], n)
	}
}

func TestStratumRoutingClampsToTop(t *testing.T) {
	// With very few strata, every deep trailing-zero count must fold into
	// the top stratum rather than wrap into a low one. P(t >= 3) = 1/8, so
	// the top of four strata should absorb roughly an eighth of elements.
	rng := newTestRNG(t)
	e := mustEstimator(t, WithStrataCount(4))

	const n = 8000
	counts := make([]int, e.StrataCount())
	for range n {
		s := e.stratumOf(randomKey(rng))
		if s < 0 || s >= 4 {
			t.Fatalf("stratum %d out of range", s)
		}
		counts[s]++
	}
	top := counts[3]
	if top < n/16 || top > n/4 {
		t.Errorf("top stratum received %d of %d, want around %d", top, n, n/8)
	}
}

func TestEstimatorShapeMismatch(t *testing.T) {
	base := mustEstimator(t)
	cases := []struct {
		name  string
		other *Estimator[Key]
	}{
		{"different strata count", mustEstimator(t, WithStrataCount(16))},
		{"different stratum capacity", mustEstimator(t, WithStratumCapacity(40))},
		{"different hash count", mustEstimator(t, WithHashCount(4))},
		{"different seed", mustEstimator(t, WithSeed(7))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := base.EstimateDiff(tc.other); !errors.Is(err, seterrors.ErrShapeMismatch) {
				t.Errorf("EstimateDiff: got %v, want ErrShapeMismatch", err)
			}
			if _, err := base.Merge(tc.other); !errors.Is(err, seterrors.ErrShapeMismatch) {
				t.Errorf("Merge: got %v, want ErrShapeMismatch", err)
			}
		})
	}
}

func TestEstimateIdenticalSets(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomKeys(rng, 2000)

	a := mustEstimator(t)
	b := mustEstimator(t)
	for _, k := range keys {
		a.Encode(k)
		b.Encode(k)
	}

	hint, err := a.EstimateDiff(b)
	if err != nil {
		t.Fatalf("EstimateDiff: %v", err)
	}
	if hint != MinCapacity {
		t.Errorf("identical sets: hint = %d, want the MinCapacity floor %d", hint, MinCapacity)
	}
}

func TestEstimateThenReconcile(t *testing.T) {
	// The full control flow: estimate the difference, size filters from the
	// hint, exchange, subtract, decode. 1000 shared elements plus 50 on each
	// side; the hint must make the true difference of 100 recoverable.
	rng := newTestRNG(t)
	common, localOnly, remoteOnly := splitKeys(rng, 1000, 50, 50)

	localEst := mustEstimator(t)
	remoteEst := mustEstimator(t)
	for _, k := range common {
		localEst.Encode(k)
		remoteEst.Encode(k)
	}
	for _, k := range localOnly {
		localEst.Encode(k)
	}
	for _, k := range remoteOnly {
		remoteEst.Encode(k)
	}

	hint, err := localEst.EstimateDiff(remoteEst)
	if err != nil {
		t.Fatalf("EstimateDiff: %v", err)
	}
	trueDiff := len(localOnly) + len(remoteOnly)
	if hint < trueDiff {
		t.Fatalf("hint %d below the true difference %d", hint, trueDiff)
	}
	if hint > trueDiff*16 {
		t.Fatalf("hint %d wildly above the true difference %d", hint, trueDiff)
	}

	local := mustFilter(t, hint)
	remote := mustFilter(t, hint)
	encodeAll(local, common, localOnly)
	encodeAll(remote, common, remoteOnly)

	diff := reconcile(t, local, remote)
	requireSameKeySet(t, "OnlyLocal", diff.OnlyLocal, localOnly)
	requireSameKeySet(t, "OnlyRemote", diff.OnlyRemote, remoteOnly)
}

func TestEstimateGrowsWithDifference(t *testing.T) {
	rng := newTestRNG(t)
	common, localSmall, remoteSmall := splitKeys(rng, 1000, 20, 20)
	localBig := randomKeys(rng, 400)
	remoteBig := randomKeys(rng, 400)

	build := func(extraLocal, extraRemote []Key) (a, b *Estimator[Key]) {
		a, b = mustEstimator(t), mustEstimator(t)
		for _, k := range common {
			a.Encode(k)
			b.Encode(k)
		}
		for _, k := range extraLocal {
			a.Encode(k)
		}
		for _, k := range extraRemote {
			b.Encode(k)
		}
		return a, b
	}

	aSmall, bSmall := build(localSmall, remoteSmall)
	aBig, bBig := build(localBig, remoteBig)

	smallHint, err := aSmall.EstimateDiff(bSmall)
	if err != nil {
		t.Fatalf("EstimateDiff (small): %v", err)
	}
	bigHint, err := aBig.EstimateDiff(bBig)
	if err != nil {
		t.Fatalf("EstimateDiff (big): %v", err)
	}
	if bigHint <= smallHint {
		t.Errorf("difference of 800 hinted %d, difference of 40 hinted %d", bigHint, smallHint)
	}
}

func TestEstimatorMergeEqualsSequentialEncode(t *testing.T) {
	rng := newTestRNG(t)
	keys := randomKeys(rng, 1000)

	whole := mustEstimator(t)
	for _, k := range keys {
		whole.Encode(k)
	}

	a, b := mustEstimator(t), mustEstimator(t)
	for _, k := range keys[:500] {
		a.Encode(k)
	}
	for _, k := range keys[500:] {
		b.Encode(k)
	}
	merged, err := a.Merge(b)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if !merged.Equal(whole) {
		t.Fatal("merging estimator shards should equal encoding the whole set")
	}
}

func TestEstimatorCloneIndependence(t *testing.T) {
	rng := newTestRNG(t)
	e := mustEstimator(t)
	for _, k := range randomKeys(rng, 100) {
		e.Encode(k)
	}
	c := e.Clone()
	if !c.Equal(e) {
		t.Fatal("clone should equal its source")
	}
	c.Encode(randomKey(rng))
	if c.Equal(e) {
		t.Fatal("mutating a clone must not affect the source")
	}
}

func TestEstimatorEndToEndWithBuilders(t *testing.T) {
	// Same flow as TestEstimateThenReconcile but through the parallel
	// builders, exercising the sharded path on both structure kinds.
	rng := newTestRNG(t)
	common, localOnly, remoteOnly := splitKeys(rng, 9000, 100, 100)

	localKeys := append(append([]Key{}, common...), localOnly...)
	remoteKeys := append(append([]Key{}, common...), remoteOnly...)

	ctx := context.Background()
	localEst, err := BuildEstimator(ctx, localKeys, WithWorkers(4))
	if err != nil {
		t.Fatalf("BuildEstimator: %v", err)
	}
	remoteEst, err := BuildEstimator(ctx, remoteKeys, WithWorkers(4))
	if err != nil {
		t.Fatalf("BuildEstimator: %v", err)
	}

	hint, err := localEst.EstimateDiff(remoteEst)
	if err != nil {
		t.Fatalf("EstimateDiff: %v", err)
	}

	local, err := BuildFilter(ctx, hint, localKeys, WithWorkers(4))
	if err != nil {
		t.Fatalf("BuildFilter: %v", err)
	}
	remote, err := BuildFilter(ctx, hint, remoteKeys, WithWorkers(4))
	if err != nil {
		t.Fatalf("BuildFilter: %v", err)
	}

	diff := reconcile(t, local, remote)
	requireSameKeySet(t, "OnlyLocal", diff.OnlyLocal, localOnly)
	requireSameKeySet(t, "OnlyRemote", diff.OnlyRemote, remoteOnly)
}
