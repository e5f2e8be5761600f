package setdiff

import (
	"math/bits"

	seterrors "github.com/tamirms/setdiff/errors"
)

const (
	// strataSeedOffset separates the stratification hash from the bucket
	// index family derived from the same base seed. Murmur3 finalizer
	// constant; odd, so the derived seed keeps the base seed's entropy.
	strataSeedOffset = 0xff51afd7ed558ccd

	// estimateSafetyFactor is applied to the raw difference estimate to
	// produce a capacity hint. Decode needs headroom over the true
	// difference; doubling absorbs both the peeling threshold and
	// estimator noise.
	estimateSafetyFactor = 2

	// estimateShiftLimit caps the power-of-two extrapolation. Differences
	// beyond 2^31 are off the scale this estimator is meant for; capping
	// keeps the arithmetic in range instead of overflowing.
	estimateShiftLimit = 31
)

// Estimator estimates the size of a set difference before either party
// commits to a filter capacity. It is a stack of small filters ("strata"):
// each element is routed to the single stratum matching the trailing-zero
// count of its routing hash, so stratum 0 holds roughly half the elements,
// stratum 1 a quarter, and so on. High strata are sparse enough to decode
// even when the total difference is large; the decodable strata are counted
// and the rest extrapolated.
//
// Like Filter, an Estimator is a value container owned by the caller: not
// safe for concurrent mutation, safe for concurrent reads once built.
type Estimator[T Symbol[T]] struct {
	strata []*Filter[T]
	seed   uint64
}

// NewEstimator creates an empty estimator. Defaults: 32 strata of 80-bucket
// filters with 3 hashes; see WithStrataCount, WithStratumCapacity,
// WithHashCount, WithSeed. Both parties must construct their estimators with
// identical options.
func NewEstimator[T Symbol[T]](opts ...Option) (*Estimator[T], error) {
	cfg := applyOptions(opts)
	if cfg.strataCount < 1 || cfg.strataCount > maxStrataCount {
		return nil, seterrors.ErrInvalidStrataCount
	}
	strata := make([]*Filter[T], cfg.strataCount)
	for i := range strata {
		f, err := newFilter[T](cfg.stratumCapacity, cfg.hashCount, cfg.seed)
		if err != nil {
			return nil, err
		}
		strata[i] = f
	}
	return &Estimator[T]{strata: strata, seed: cfg.seed}, nil
}

// StrataCount returns the number of strata.
func (e *Estimator[T]) StrataCount() int {
	return len(e.strata)
}

// Seed returns the routing seed carried in the estimator's shape.
func (e *Estimator[T]) Seed() uint64 {
	return e.seed
}

// SameShape reports whether e and other can be compared: equal stratum
// count, equal per-stratum shape.
func (e *Estimator[T]) SameShape(other *Estimator[T]) bool {
	if len(e.strata) != len(other.strata) || e.seed != other.seed {
		return false
	}
	for i := range e.strata {
		if !e.strata[i].SameShape(other.strata[i]) {
			return false
		}
	}
	return true
}

// stratumOf routes an element to its stratum: the trailing-zero count of the
// routing hash, clamped into the top stratum so deep hashes are folded up
// rather than scattered.
func (e *Estimator[T]) stratumOf(x T) int {
	t := bits.TrailingZeros64(x.Hash(e.seed + strataSeedOffset))
	if t >= len(e.strata) {
		t = len(e.strata) - 1
	}
	return t
}

// Encode inserts an element into exactly one stratum. It cannot fail.
func (e *Estimator[T]) Encode(x T) {
	e.strata[e.stratumOf(x)].Encode(x)
}

// Merge returns a new estimator folding other's elements into e's, stratum
// by stratum. Used to combine shards built in parallel (see BuildEstimator).
func (e *Estimator[T]) Merge(other *Estimator[T]) (*Estimator[T], error) {
	if !e.SameShape(other) {
		return nil, seterrors.ErrShapeMismatch
	}
	strata := make([]*Filter[T], len(e.strata))
	for i := range e.strata {
		m, err := e.strata[i].Merge(other.strata[i])
		if err != nil {
			return nil, err
		}
		strata[i] = m
	}
	return &Estimator[T]{strata: strata, seed: e.seed}, nil
}

// Clone returns a deep copy of the estimator.
func (e *Estimator[T]) Clone() *Estimator[T] {
	strata := make([]*Filter[T], len(e.strata))
	for i := range e.strata {
		strata[i] = e.strata[i].Clone()
	}
	return &Estimator[T]{strata: strata, seed: e.seed}
}

// Equal reports whether e and other have identical shape and contents.
func (e *Estimator[T]) Equal(other *Estimator[T]) bool {
	if !e.SameShape(other) {
		return false
	}
	for i := range e.strata {
		if !e.strata[i].Equal(other.strata[i]) {
			return false
		}
	}
	return true
}

// EstimateDiff estimates the size of the symmetric difference between the
// local set sketched in e and the remote set sketched in other, and returns
// it as a capacity hint for sizing a Filter.
//
// Strata are subtracted and decoded from the sparsest (highest index) down.
// Each stratum that decodes fully contributes its exact recovered count. The
// first stratum that fails to decode stops the descent: it and every
// stratum below it hold the same elements a power-of-two more densely, so
// the accumulated count is scaled by 2^(i+1) to cover them. The scaled
// estimate is multiplied by a safety factor and floored at MinCapacity.
//
// The hint is probabilistic, never a guaranteed exact count: if the filter
// sized from it fails to decode, double and re-exchange.
func (e *Estimator[T]) EstimateDiff(other *Estimator[T]) (int, error) {
	if !e.SameShape(other) {
		return 0, seterrors.ErrShapeMismatch
	}

	count := 0
	for i := len(e.strata) - 1; i >= 0; i-- {
		delta, err := e.strata[i].Subtract(other.strata[i])
		if err != nil {
			return 0, err
		}
		diff, err := delta.Decode()
		if err != nil {
			shift := uint(i + 1)
			if shift > estimateShiftLimit {
				shift = estimateShiftLimit
			}
			return capacityHint(count << shift), nil
		}
		count += diff.Count()
	}
	return capacityHint(count), nil
}

func capacityHint(estimate int) int {
	hint := estimate * estimateSafetyFactor
	if hint < MinCapacity {
		hint = MinCapacity
	}
	return hint
}
